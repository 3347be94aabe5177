// File: yaecs/builder.go
package yaecs

import (
	"errors"
	"fmt"
	"log/slog"
)

// ValidatorFunc validates a fully built Config. It receives the config
// after post-processing and should return an error to abort Build.
type ValidatorFunc func(c *Config) error

// Builder assembles the construction pipeline: one default source
// seeding the key set, any number of experiment sources, command-line
// overrides, processing hooks and the overwriting regime. Errors are
// captured and surfaced by Build.
type Builder struct {
	name        string
	defaultPath string
	defaultData []byte
	sources     []sourceSpec
	args        []string
	registry    *ProcessingRegistry
	regime      OverwritingRegime
	logger      *slog.Logger
	validators  []ValidatorFunc
	err         error
}

type sourceSpec struct {
	path  string
	patch map[string]any
}

// NewBuilder creates a builder with the auto-save regime and no
// processing hooks.
func NewBuilder() *Builder {
	return &Builder{regime: RegimeAutoSave}
}

// WithName sets the config name used in Details output.
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithDefault sets the default source file. Exactly one default source
// is required; it alone may introduce keys.
func (b *Builder) WithDefault(path string) *Builder {
	if b.defaultPath != "" || b.defaultData != nil {
		b.err = errors.New("default source set twice")
		return b
	}
	b.defaultPath = path
	return b
}

// WithDefaultBytes sets raw YAML as the default source.
func (b *Builder) WithDefaultBytes(data []byte) *Builder {
	if b.defaultPath != "" || b.defaultData != nil {
		b.err = errors.New("default source set twice")
		return b
	}
	b.defaultData = data
	return b
}

// WithSource appends experiment source files, merged in the given order
// after the default source.
func (b *Builder) WithSource(paths ...string) *Builder {
	for _, p := range paths {
		b.sources = append(b.sources, sourceSpec{path: p})
	}
	return b
}

// WithPatch appends an inline partial mapping as an experiment source.
func (b *Builder) WithPatch(patch map[string]any) *Builder {
	b.sources = append(b.sources, sourceSpec{patch: patch})
	return b
}

// WithArgs sets the command-line tokens scanned for "--config" source
// selection and parameter overrides, typically os.Args[1:].
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// WithRegistry sets the processing hook registry.
func (b *Builder) WithRegistry(reg *ProcessingRegistry) *Builder {
	b.registry = reg
	return b
}

// WithRegime fixes the overwriting regime. It cannot change after
// Build; building again is the only way to a different regime.
func (b *Builder) WithRegime(regime OverwritingRegime) *Builder {
	b.regime = regime
	return b
}

// WithLogger sets the logger receiving non-fatal signals (match
// reports, zero-match hook warnings, auto-save notices).
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithValidator appends a validation function run at the end of Build.
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	b.validators = append(b.validators, fn)
	return b
}

// Build runs the pipeline: default merge (with per-leaf
// pre-processing), declared sources, sources selected by --config, CLI
// overrides, then the post-processing pass, zero-match warnings and
// validators. The returned config has its mutation guard engaged.
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}

	overrides, cliSources, err := ParseOverrides(b.args)
	if err != nil {
		return nil, err
	}

	cfg := newNode(b.name, nil)
	cfg.regime = b.regime
	cfg.registry = b.registry
	cfg.logger = b.logger

	var defaultSrc *Source
	switch {
	case b.defaultPath != "":
		defaultSrc, err = LoadSource(b.defaultPath)
	case b.defaultData != nil:
		defaultSrc, err = SourceFromBytes(b.defaultData)
	default:
		return nil, errors.New("a default source is required")
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.mergeSource(defaultSrc, true); err != nil {
		return nil, fmt.Errorf("default source: %w", err)
	}
	if err := cfg.drainPendingFiles(); err != nil {
		return nil, err
	}

	for _, spec := range b.sources {
		if err := cfg.mergeSpec(spec); err != nil {
			return nil, err
		}
	}
	for _, path := range cliSources {
		if err := cfg.mergeSpec(sourceSpec{path: path}); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyOverrides(overrides); err != nil {
		return nil, err
	}
	if err := cfg.runPostProcessing(); err != nil {
		return nil, err
	}
	if b.registry != nil {
		b.registry.warnUnmatched(cfg)
	}
	for _, validate := range b.validators {
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}
	}
	cfg.constructed = true
	return cfg, nil
}

func (c *Config) mergeSpec(spec sourceSpec) error {
	var src *Source
	if spec.path != "" {
		loaded, err := LoadSource(spec.path)
		if err != nil {
			return err
		}
		src = loaded
	} else {
		src = SourceFromMap(spec.patch)
	}
	if err := c.mergeSource(src, false); err != nil {
		if spec.path != "" {
			return fmt.Errorf("source %q: %w", spec.path, err)
		}
		return fmt.Errorf("inline source: %w", err)
	}
	return c.drainPendingFiles()
}

// FromFiles builds a config from a default source and experiment
// sources with the standard pipeline and the auto-save regime.
func FromFiles(defaultPath string, sources ...string) (*Config, error) {
	return NewBuilder().WithDefault(defaultPath).WithSource(sources...).Build()
}

// FromBytes builds a config from raw YAML default content.
func FromBytes(data []byte) (*Config, error) {
	return NewBuilder().WithDefaultBytes(data).Build()
}
