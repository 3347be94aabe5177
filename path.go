// File: yaecs/path.go
package yaecs

import (
	"fmt"
	"strings"
)

// Paths are dot-separated. Each segment of a pattern is either a literal
// parameter name or "*", which matches exactly one segment; "*.lr"
// therefore matches "data.lr" and "model.lr" but neither "lr" nor
// "a.nested.lr". Multi-segment wildcards are deliberately unsupported.

// hasWildcard reports whether any segment of path is "*".
func hasWildcard(path string) bool {
	for _, seg := range strings.Split(path, ".") {
		if seg == "*" {
			return true
		}
	}
	return false
}

// isValidKeySegment checks that a single path segment is a bare key:
// ASCII letters, digits, underscores and dashes, no dots.
func isValidKeySegment(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !(isLetter || isDigit || r == '_' || r == '-') {
			return false
		}
	}
	return true
}

// validatePath checks every segment of a literal dotted path.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrPathNotFound)
	}
	for _, seg := range strings.Split(path, ".") {
		if !isValidKeySegment(seg) {
			return fmt.Errorf("%w: invalid segment %q in path %q", ErrPathNotFound, seg, path)
		}
	}
	return nil
}

// getPath resolves a literal dotted path relative to c. Intermediate
// segments must be sub-config nodes; anything else fails with
// ErrPathNotFound.
func (c *Config) getPath(path string) (any, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrPathNotFound)
	}
	segments := strings.Split(path, ".")
	node := c
	for i, seg := range segments[:len(segments)-1] {
		v, ok := node.params[seg]
		if !ok {
			return nil, fmt.Errorf("%w: %q (no parameter %q)", ErrPathNotFound, path, strings.Join(segments[:i+1], "."))
		}
		sub, ok := v.(*Config)
		if !ok {
			return nil, fmt.Errorf("%w: %q (%q is not a sub-config)", ErrPathNotFound, path, strings.Join(segments[:i+1], "."))
		}
		node = sub
	}
	last := segments[len(segments)-1]
	v, ok := node.params[last]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPathNotFound, path)
	}
	return v, nil
}

// setPath writes a value at an existing literal path. It never creates
// keys; that is the default merge's privilege (see createPath).
func (c *Config) setPath(path string, value any) error {
	segments := strings.Split(path, ".")
	node := c
	for _, seg := range segments[:len(segments)-1] {
		sub, ok := node.params[seg].(*Config)
		if !ok {
			return fmt.Errorf("%w: %q", ErrPathNotFound, path)
		}
		node = sub
	}
	last := segments[len(segments)-1]
	if _, ok := node.params[last]; !ok {
		return fmt.Errorf("%w: %q", ErrPathNotFound, path)
	}
	node.params[last] = value
	return nil
}

// createPath writes a value at a literal path, creating the key and any
// intermediate sub-config nodes. An intermediate segment occupied by a
// non-node parameter is a structure conflict.
func (c *Config) createPath(path string, value any) error {
	if err := validatePath(path); err != nil {
		return err
	}
	segments := strings.Split(path, ".")
	node := c
	for i, seg := range segments[:len(segments)-1] {
		v, ok := node.params[seg]
		if !ok {
			sub := newNode(seg, node)
			node.params[seg] = sub
			node.order = append(node.order, seg)
			node = sub
			continue
		}
		sub, ok := v.(*Config)
		if !ok {
			return fmt.Errorf("%w: %q is a %s, not a sub-config (path %q)",
				ErrStructure, strings.Join(segments[:i+1], "."), kindOf(v), path)
		}
		node = sub
	}
	last := segments[len(segments)-1]
	if _, ok := node.params[last]; !ok {
		node.order = append(node.order, last)
	}
	node.params[last] = value
	return nil
}

// leafPaths enumerates every fully-qualified leaf path of the tree in
// creation order. Sub-configs recurse; opaque mappings and lists are
// leaves.
func (c *Config) leafPaths() []string {
	var out []string
	c.walkLeaves("", func(path string, _ any) {
		out = append(out, path)
	})
	return out
}

func (c *Config) walkLeaves(prefix string, visit func(path string, value any)) {
	for _, name := range c.order {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		if sub, ok := c.params[name].(*Config); ok {
			sub.walkLeaves(path, visit)
			continue
		}
		visit(path, c.params[name])
	}
}

// Match returns every leaf path matching the dotted pattern, in tree
// order. A "*" segment matches exactly one path segment, across
// sub-config boundaries. Several matches for one pattern are reported to
// the caller, never treated as an error; a literal pattern that resolves
// nothing is a PathNotFoundError.
func (c *Config) Match(pattern string) ([]string, error) {
	if !hasWildcard(pattern) {
		if _, err := c.getPath(pattern); err != nil {
			return nil, err
		}
		return []string{pattern}, nil
	}
	want := strings.Split(pattern, ".")
	var out []string
	c.walkLeaves("", func(path string, _ any) {
		if matchSegments(want, strings.Split(path, ".")) {
			out = append(out, path)
		}
	})
	return out, nil
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i, seg := range pattern {
		if seg != "*" && seg != path[i] {
			return false
		}
	}
	return true
}
