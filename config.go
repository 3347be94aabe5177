// File: yaecs/config.go
package yaecs

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// OverwritingRegime governs direct mutation of a Config after the
// construction pipeline has finished. It is fixed at construction and
// never changes afterwards.
type OverwritingRegime int

const (
	// RegimeAutoSave applies mutations and immediately re-serializes the
	// config to its save path when it has one. This is the default.
	RegimeAutoSave OverwritingRegime = iota
	// RegimeLocked rejects every direct mutation with ErrImmutableConfig.
	RegimeLocked
	// RegimeUnsafe applies mutations with no safety net. A one-time
	// notice is emitted at the first mutation.
	RegimeUnsafe
)

// String returns the regime name as used in saved metadata.
func (r OverwritingRegime) String() string {
	switch r {
	case RegimeLocked:
		return "locked"
	case RegimeUnsafe:
		return "unsafe"
	default:
		return "auto-save"
	}
}

// ParseRegime converts a saved metadata regime name back to its value.
func ParseRegime(s string) (OverwritingRegime, error) {
	switch strings.TrimSpace(s) {
	case "auto-save":
		return RegimeAutoSave, nil
	case "locked":
		return RegimeLocked, nil
	case "unsafe":
		return RegimeUnsafe, nil
	}
	return RegimeAutoSave, fmt.Errorf("unknown overwriting regime %q", s)
}

// Kind classifies the runtime kind of a parameter value. Non-default
// merges and CLI overrides may only replace a value with one of the same
// kind.
type Kind int

const (
	KindInvalid Kind = iota
	KindNil
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMapping
	KindNode
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMapping:
		return "mapping"
	case KindNode:
		return "sub-config"
	}
	return "invalid"
}

// kindOf reports the kind of a normalized parameter value.
func kindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNil
	case bool:
		return KindBool
	case int:
		return KindInt
	case float64:
		return KindFloat
	case string:
		return KindString
	case []any:
		return KindList
	case map[string]any:
		return KindMapping
	case *Config:
		return KindNode
	}
	return KindInvalid
}

// coerceKind reconciles a new value with the kind of the value it
// replaces. Int literals promote onto float parameters; every other kind
// change is rejected. All non-default writes (experiment sources, CLI
// overrides, Set) share this contract.
func coerceKind(current, value any) (coerced any, want, got Kind, ok bool) {
	want, got = kindOf(current), kindOf(value)
	if want == KindFloat && got == KindInt {
		return float64(value.(int)), want, want, true
	}
	return value, want, got, want == got
}

// normalize collapses the value types produced by the different source
// front ends (yaml.v3, BurntSushi/toml, CLI literals) onto the canonical
// in-tree representation: int, float64, bool, string, nil, []any and
// map[string]any.
func normalize(v any) any {
	switch val := v.(type) {
	case int8:
		return int(val)
	case int16:
		return int(val)
	case int32:
		return int(val)
	case int64:
		return int(val)
	case uint:
		return int(val)
	case uint8:
		return int(val)
	case uint16:
		return int(val)
	case uint32:
		return int(val)
	case uint64:
		return int(val)
	case float32:
		return float64(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprintf("%v", k)] = normalize(item)
		}
		return out
	default:
		return v
	}
}

// Config is a node of the parameter tree. The root node carries the
// hierarchy record, the overwriting regime and the processing registry;
// nested sub-configs delegate to the root through their parent link.
//
// A Config is built by merging a default source, which seeds the
// complete key set, followed by any number of experiment sources and CLI
// overrides, which may only update existing keys. Construction goes
// through a Builder; after Build returns, direct mutation goes through
// Set and is governed by the overwriting regime.
type Config struct {
	name   string
	parent *Config // lookup only, never ownership

	order  []string
	params map[string]any

	// Root-only state. Zero on nested nodes.
	hierarchy      []SourceRef
	regime         OverwritingRegime
	savedPath      string
	variationName  string
	experimentPath string
	variations     []variationDecl
	grids          []gridDecl
	pendingFiles   []string
	registry       *ProcessingRegistry
	logger         *slog.Logger
	warnings       []string
	unsafeNotified bool
	constructed    bool
}

func newNode(name string, parent *Config) *Config {
	return &Config{
		name:   name,
		parent: parent,
		params: make(map[string]any),
	}
}

// root walks parent links up to the tree root.
func (c *Config) root() *Config {
	n := c
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// Name returns the node name; empty for an unnamed root.
func (c *Config) Name() string { return c.name }

// FullName returns the dotted path of this node from the root, empty for
// the root itself.
func (c *Config) FullName() string {
	if c.parent == nil {
		return ""
	}
	prefix := c.parent.FullName()
	if prefix == "" {
		return c.name
	}
	return prefix + "." + c.name
}

// Regime returns the overwriting regime fixed at construction.
func (c *Config) Regime() OverwritingRegime { return c.root().regime }

// SavedPath returns the path of the last save, empty if never saved.
func (c *Config) SavedPath() string { return c.root().savedPath }

// VariationName returns the name of the variation this config was
// expanded from, empty for a non-variation config.
func (c *Config) VariationName() string { return c.root().variationName }

// ExperimentPath returns the directory recorded by the
// register-as-experiment-path hook, empty if the hook never fired.
func (c *Config) ExperimentPath() string { return c.root().experimentPath }

// Hierarchy returns the ordered record of sources merged into this tree,
// default source first. The slice is a copy.
func (c *Config) Hierarchy() []SourceRef {
	r := c.root()
	out := make([]SourceRef, len(r.hierarchy))
	for i, ref := range r.hierarchy {
		out[i] = ref.clone()
	}
	return out
}

// Warnings returns every non-fatal signal emitted so far: wildcard match
// reports, zero-match hook-pattern warnings, auto-save overwrite
// warnings and the one-time unsafe notice.
func (c *Config) Warnings() []string {
	r := c.root()
	out := make([]string, len(r.warnings))
	copy(out, r.warnings)
	return out
}

func (c *Config) warnf(format string, args ...any) {
	r := c.root()
	msg := fmt.Sprintf(format, args...)
	r.warnings = append(r.warnings, msg)
	if r.logger != nil {
		r.logger.Warn(msg)
	}
}

// Keys returns the parameter names of this node in creation order.
func (c *Config) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Get retrieves the value at a literal dotted path relative to this
// node. A missing path returns ErrPathNotFound.
func (c *Config) Get(path string) (any, error) {
	return c.getPath(path)
}

// GetOr retrieves the value at path, falling back to def when the path
// does not resolve.
func (c *Config) GetOr(path string, def any) any {
	v, err := c.getPath(path)
	if err != nil {
		return def
	}
	return v
}

// Sub returns the sub-config at a literal dotted path.
func (c *Config) Sub(path string) (*Config, error) {
	v, err := c.getPath(path)
	if err != nil {
		return nil, err
	}
	node, ok := v.(*Config)
	if !ok {
		return nil, fmt.Errorf("%w: %q is a %s, not a sub-config", ErrStructure, path, kindOf(v))
	}
	return node, nil
}

// String retrieves a string parameter, converting common scalar kinds.
func (c *Config) String(path string) (string, error) {
	v, err := c.getPath(path)
	if err != nil {
		return "", err
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("%w: %q is a %s, not a string", ErrTypeMismatch, path, kindOf(v))
}

// Int retrieves an integer parameter.
func (c *Config) Int(path string) (int, error) {
	v, err := c.getPath(path)
	if err != nil {
		return 0, err
	}
	switch val := v.(type) {
	case int:
		return val, nil
	case string:
		if i, convErr := strconv.Atoi(val); convErr == nil {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q is a %s, not an int", ErrTypeMismatch, path, kindOf(v))
}

// Float retrieves a float parameter, promoting integers.
func (c *Config) Float(path string) (float64, error) {
	v, err := c.getPath(path)
	if err != nil {
		return 0, err
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case string:
		if f, convErr := strconv.ParseFloat(val, 64); convErr == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q is a %s, not a float", ErrTypeMismatch, path, kindOf(v))
}

// Bool retrieves a boolean parameter.
func (c *Config) Bool(path string) (bool, error) {
	v, err := c.getPath(path)
	if err != nil {
		return false, err
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		if b, convErr := strconv.ParseBool(val); convErr == nil {
			return b, nil
		}
	}
	return false, fmt.Errorf("%w: %q is a %s, not a bool", ErrTypeMismatch, path, kindOf(v))
}

// StringSlice retrieves a list parameter whose elements convert to
// strings.
func (c *Config) StringSlice(path string) ([]string, error) {
	v, err := c.getPath(path)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is a %s, not a list", ErrTypeMismatch, path, kindOf(v))
	}
	out := make([]string, len(list))
	for i, item := range list {
		out[i] = fmt.Sprintf("%v", item)
	}
	return out, nil
}

// Set mutates a parameter after construction. The mutation is governed
// by the overwriting regime fixed at construction: locked configs reject
// it with ErrImmutableConfig, unsafe configs apply it with a one-time
// notice, auto-save configs apply it and immediately re-save when a save
// path is recorded. The new value must keep the parameter's kind; use
// Replace for a full structural replacement.
func (c *Config) Set(path string, value any) error {
	return c.mutate(path, value, true)
}

// Replace mutates a parameter after construction without the kind
// equality check. This is the explicit full structural replacement
// escape hatch; it is still governed by the overwriting regime.
func (c *Config) Replace(path string, value any) error {
	return c.mutate(path, value, false)
}

func (c *Config) mutate(path string, value any, checkKind bool) error {
	r := c.root()
	if !r.constructed {
		// The guard is not engaged inside the construction pipeline.
		return c.setChecked(path, value, checkKind)
	}
	switch r.regime {
	case RegimeLocked:
		return fmt.Errorf("%w: cannot set %q", ErrImmutableConfig, path)
	case RegimeUnsafe:
		if !r.unsafeNotified {
			r.unsafeNotified = true
			c.warnf("mutating config in unsafe regime: no safety net, changes are not tracked")
		}
		return c.setChecked(path, value, checkKind)
	default: // RegimeAutoSave
		if err := c.setChecked(path, value, checkKind); err != nil {
			return err
		}
		if r.savedPath != "" {
			if err := r.Save(r.savedPath); err != nil {
				return fmt.Errorf("auto-save after mutation: %w", err)
			}
			c.warnf("auto-save: overwrote %s after setting %q", r.savedPath, path)
		}
		return nil
	}
}

func (c *Config) setChecked(path string, value any, checkKind bool) error {
	value = normalize(value)
	current, err := c.getPath(path)
	if err != nil {
		return err
	}
	if checkKind {
		coerced, want, got, ok := coerceKind(current, value)
		if !ok {
			return fmt.Errorf("%w: %q is a %s, cannot set %s value", ErrTypeMismatch, path, want, got)
		}
		value = coerced
	}
	return c.setPath(path, value)
}

// clone produces a fully independent deep copy of the tree rooted at c.
// Root-only state carried over: hierarchy, regime, registry, logger and
// recorded warnings. The clone has no save path and no variation or grid
// declarations of its own.
func (c *Config) clone() *Config {
	out := c.cloneNode(nil)
	if c.parent == nil {
		out.hierarchy = make([]SourceRef, len(c.hierarchy))
		for i, ref := range c.hierarchy {
			out.hierarchy[i] = ref.clone()
		}
		out.regime = c.regime
		out.registry = c.registry
		out.logger = c.logger
		out.experimentPath = c.experimentPath
		out.warnings = append([]string(nil), c.warnings...)
		out.constructed = c.constructed
	}
	return out
}

func (c *Config) cloneNode(parent *Config) *Config {
	out := newNode(c.name, parent)
	out.order = append([]string(nil), c.order...)
	for name, v := range c.params {
		out.params[name] = cloneValue(v, out)
	}
	return out
}

func cloneValue(v any, parent *Config) any {
	switch val := v.(type) {
	case *Config:
		return val.cloneNode(parent)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item, parent)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item, parent)
		}
		return out
	default:
		return v
	}
}

// native converts the tree rooted at c into plain nested maps, suitable
// for serialization or struct decoding. Sub-configs become nested
// mappings; opaque values are deep-copied.
func (c *Config) native() map[string]any {
	out := make(map[string]any, len(c.order))
	for _, name := range c.order {
		switch val := c.params[name].(type) {
		case *Config:
			out[name] = val.native()
		default:
			out[name] = cloneValue(val, nil)
		}
	}
	return out
}

// equalValue reports deep equality of two normalized parameter values.
func equalValue(a, b any) bool {
	na, isNodeA := a.(*Config)
	nb, isNodeB := b.(*Config)
	if isNodeA || isNodeB {
		if !isNodeA || !isNodeB {
			return false
		}
		return reflect.DeepEqual(na.native(), nb.native())
	}
	return reflect.DeepEqual(a, b)
}

// Details returns a human-readable dump of the config: name, regime,
// hierarchy and every parameter in creation order.
func (c *Config) Details() string {
	r := c.root()
	var b strings.Builder
	name := r.name
	if name == "" {
		name = "config"
	}
	fmt.Fprintf(&b, "%s (regime: %s)\n", name, r.regime)
	if r.variationName != "" {
		fmt.Fprintf(&b, "variation: %s\n", r.variationName)
	}
	b.WriteString("hierarchy:\n")
	for _, ref := range r.hierarchy {
		fmt.Fprintf(&b, "  - %s\n", ref)
	}
	b.WriteString("parameters:\n")
	for _, path := range r.leafPaths() {
		v, _ := r.getPath(path)
		fmt.Fprintf(&b, "  %s: %v\n", path, v)
	}
	return b.String()
}

// sortedKeys gives deterministic iteration over an unordered map (TOML
// tables, inline patches).
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
