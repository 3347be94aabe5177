// File: yaecs/errors.go
package yaecs

import "errors"

// Sentinel errors returned by merge, resolution and mutation operations.
// Wrap them with fmt.Errorf("...: %w", Err...) to add context; callers
// test with errors.Is.
var (
	// ErrStructure indicates a sub-config tag conflicting with the shape
	// of the existing tree, e.g. a tag colliding with a plain parameter.
	ErrStructure = errors.New("config structure conflict")

	// ErrUnknownParameter indicates a non-default source referencing a
	// key that the default source never introduced.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrTypeMismatch indicates an override whose value kind differs
	// from the current value kind at the target path.
	ErrTypeMismatch = errors.New("parameter type mismatch")

	// ErrPathNotFound indicates a literal (wildcard-free) path that does
	// not resolve to any parameter.
	ErrPathNotFound = errors.New("path not found")

	// ErrImmutableConfig indicates a direct mutation attempted on a
	// config constructed under the locked overwriting regime.
	ErrImmutableConfig = errors.New("config is locked")

	// ErrProcessing indicates a processing hook that failed or produced
	// an unusable value.
	ErrProcessing = errors.New("processing hook failed")
)
