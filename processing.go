// File: yaecs/processing.go
package yaecs

import (
	"fmt"
	"os"
	"strings"
)

// TransformFunc is a processing hook: it takes the current value of a
// matched parameter and returns its replacement. Returning an error
// aborts the pipeline with a ProcessingError.
type TransformFunc func(value any) (any, error)

type phase int

const (
	phasePre phase = iota
	phasePost
)

func (p phase) String() string {
	if p == phasePre {
		return "pre"
	}
	return "post"
}

type builtinKind int

const (
	builtinNone builtinKind = iota
	builtinExperimentPath
	builtinAdditionalFile
	builtinVariations
	builtinGrid
)

type processingRule struct {
	pattern string
	phase   phase
	builtin builtinKind
	fn      TransformFunc
}

// ProcessingRegistry holds the ordered (pattern, transform) bindings
// for both phases. Declaration order is the composition rule: when
// several patterns match one path, their transforms thread the value in
// the order they were registered, regardless of pattern specificity.
//
// Pre-processing fires once per leaf, at the moment the default source
// sets it. Post-processing fires once per leaf after the whole
// construction pipeline completes.
type ProcessingRegistry struct {
	rules []processingRule
}

// NewProcessingRegistry returns an empty registry.
func NewProcessingRegistry() *ProcessingRegistry {
	return &ProcessingRegistry{}
}

// Pre registers a pre-processing transform for a dotted pattern.
func (r *ProcessingRegistry) Pre(pattern string, fn TransformFunc) *ProcessingRegistry {
	r.rules = append(r.rules, processingRule{pattern: pattern, phase: phasePre, fn: fn})
	return r
}

// Post registers a post-processing transform for a dotted pattern.
func (r *ProcessingRegistry) Post(pattern string, fn TransformFunc) *ProcessingRegistry {
	r.rules = append(r.rules, processingRule{pattern: pattern, phase: phasePost, fn: fn})
	return r
}

// RegisterAsExperimentPath marks matching parameters as the experiment
// directory: when the default source sets one, the directory is created
// and recorded on the config.
func (r *ProcessingRegistry) RegisterAsExperimentPath(pattern string) *ProcessingRegistry {
	r.rules = append(r.rules, processingRule{pattern: pattern, phase: phasePre, builtin: builtinExperimentPath})
	return r
}

// RegisterAsAdditionalConfigFile marks matching parameters as holding
// the path (or list of paths) of further sources to merge at the same
// pipeline point, recursively subject to the default/override contract.
func (r *ProcessingRegistry) RegisterAsAdditionalConfigFile(pattern string) *ProcessingRegistry {
	r.rules = append(r.rules, processingRule{pattern: pattern, phase: phasePre, builtin: builtinAdditionalFile})
	return r
}

// RegisterAsConfigVariations marks matching parameters as Variation
// declarations: a named mapping or list of partial patches expanded by
// CreateVariations.
func (r *ProcessingRegistry) RegisterAsConfigVariations(pattern string) *ProcessingRegistry {
	r.rules = append(r.rules, processingRule{pattern: pattern, phase: phasePre, builtin: builtinVariations})
	return r
}

// RegisterAsGrid marks matching parameters as Grid declarations: a list
// of variation parameter names whose entries combine as a cartesian
// product.
func (r *ProcessingRegistry) RegisterAsGrid(pattern string) *ProcessingRegistry {
	r.rules = append(r.rules, processingRule{pattern: pattern, phase: phasePre, builtin: builtinGrid})
	return r
}

// apply threads value through every rule of the given phase whose
// pattern matches path, in declaration order.
func (r *ProcessingRegistry) apply(c *Config, path string, value any, ph phase) (any, error) {
	segments := strings.Split(path, ".")
	for _, rule := range r.rules {
		if rule.phase != ph {
			continue
		}
		if !matchSegments(strings.Split(rule.pattern, "."), segments) {
			continue
		}
		if rule.builtin != builtinNone {
			if err := c.applyBuiltin(rule.builtin, path, value); err != nil {
				return nil, err
			}
			continue
		}
		out, err := rule.fn(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s-processing of %q: %v", ErrProcessing, ph, path, err)
		}
		value = out
	}
	return value, nil
}

// warnUnmatched emits a warning for every registered pattern that
// matches no parameter of the final tree. A dangling hook pattern is
// almost always a typo and is never silently ignored.
func (r *ProcessingRegistry) warnUnmatched(c *Config) {
	for _, rule := range r.rules {
		matched, err := c.Match(rule.pattern)
		if err != nil || len(matched) == 0 {
			c.warnf("%s-processing pattern %q matches no parameter", rule.phase, rule.pattern)
		}
	}
}

// applyBuiltin dispatches the closed set of reserved side-effecting
// transforms. Builtins pass the value through unchanged.
func (c *Config) applyBuiltin(kind builtinKind, path string, value any) error {
	r := c.root()
	switch kind {
	case builtinExperimentPath:
		dir, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: experiment path %q must be a string, got %s",
				ErrProcessing, path, kindOf(value))
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: creating experiment path %q: %v", ErrProcessing, dir, err)
		}
		r.experimentPath = dir

	case builtinAdditionalFile:
		switch val := value.(type) {
		case string:
			r.pendingFiles = append(r.pendingFiles, val)
		case []any:
			for _, item := range val {
				file, ok := item.(string)
				if !ok {
					return fmt.Errorf("%w: additional config file list %q must hold strings",
						ErrProcessing, path)
				}
				r.pendingFiles = append(r.pendingFiles, file)
			}
		default:
			return fmt.Errorf("%w: additional config file %q must be a path or list of paths, got %s",
				ErrProcessing, path, kindOf(value))
		}

	case builtinVariations:
		switch value.(type) {
		case map[string]any, []any:
			for _, decl := range r.variations {
				if decl.param == path {
					return nil
				}
			}
			r.variations = append(r.variations, variationDecl{param: path})
		default:
			return fmt.Errorf("%w: variations %q must be a mapping or list of patches, got %s",
				ErrProcessing, path, kindOf(value))
		}

	case builtinGrid:
		dims, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%w: grid %q must be a list of variation names, got %s",
				ErrProcessing, path, kindOf(value))
		}
		decl := gridDecl{param: path}
		for _, d := range dims {
			name, ok := d.(string)
			if !ok {
				return fmt.Errorf("%w: grid %q dimensions must be variation names", ErrProcessing, path)
			}
			decl.dims = append(decl.dims, name)
		}
		for i, existing := range r.grids {
			if existing.param == path {
				r.grids[i] = decl
				return nil
			}
		}
		r.grids = append(r.grids, decl)
	}
	return nil
}
