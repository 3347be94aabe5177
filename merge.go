// File: yaecs/merge.go
package yaecs

import (
	"fmt"
	"strings"
)

// mergeSource applies one parsed source to the tree rooted at c and
// records its descriptor in the hierarchy. The default merge (the first
// one, defining the root) may create keys and sub-configs and fires
// pre-processing on each leaf as it is set; every later merge may only
// update keys that already exist.
//
// The descriptor is recorded before the documents are applied and the
// engine performs no rollback: a merge failing partway may leave the
// tree partially updated. Callers needing atomicity clone first.
func (c *Config) mergeSource(src *Source, isDefault bool) error {
	r := c.root()
	r.hierarchy = append(r.hierarchy, src.ref)
	for _, doc := range src.docs {
		target := c
		if doc.tag != "" {
			node, err := c.docTarget(doc.tag, isDefault)
			if err != nil {
				return err
			}
			target = node
		}
		if err := target.mergeEntries(doc.entries, isDefault); err != nil {
			return err
		}
	}
	return nil
}

// docTarget resolves a document-level tag to the sub-config it names.
// The default merge may create the node; later merges must find it.
func (c *Config) docTarget(tag string, isDefault bool) (*Config, error) {
	if existing, ok := c.params[tag]; ok {
		sub, isNode := existing.(*Config)
		if !isNode {
			return nil, fmt.Errorf("%w: document tag !%s collides with a %s parameter",
				ErrStructure, tag, kindOf(existing))
		}
		return sub, nil
	}
	if !isDefault {
		return nil, fmt.Errorf("%w: document tag !%s names no existing sub-config", ErrUnknownParameter, tag)
	}
	sub := newNode(tag, c)
	c.params[tag] = sub
	c.order = append(c.order, tag)
	return sub, nil
}

func (c *Config) mergeEntries(entries []sourceEntry, isDefault bool) error {
	for _, e := range entries {
		if e.tag != "" {
			if err := c.mergeTagged(e, isDefault); err != nil {
				return err
			}
			continue
		}
		if err := c.mergeLeaf(e.key, e.value, isDefault); err != nil {
			return err
		}
	}
	return nil
}

// mergeTagged handles a tagged mapping entry: a sub-config source. The
// tag name must equal the parameter name it targets, and outside the
// default merge the sub-config must already exist.
func (c *Config) mergeTagged(e sourceEntry, isDefault bool) error {
	if e.tag != e.key {
		return fmt.Errorf("%w: tag !%s must match its parameter name %q", ErrStructure, e.tag, e.key)
	}
	if existing, ok := c.params[e.key]; ok {
		sub, isNode := existing.(*Config)
		if !isNode {
			return fmt.Errorf("%w: tag !%s collides with a %s parameter at %q",
				ErrStructure, e.tag, kindOf(existing), c.childPath(e.key))
		}
		return sub.mergeEntries(e.children, isDefault)
	}
	if !isDefault {
		return fmt.Errorf("%w: sub-config %q cannot be created outside the default source",
			ErrUnknownParameter, c.childPath(e.key))
	}
	sub := newNode(e.key, c)
	c.params[e.key] = sub
	c.order = append(c.order, e.key)
	return sub.mergeEntries(e.children, isDefault)
}

// mergeLeaf handles a plain entry. The key may be dotted, reaching into
// sub-configs, and outside key creation may carry "*" wildcards.
func (c *Config) mergeLeaf(key string, value any, isDefault bool) error {
	value = normalize(value)

	if isDefault && !hasWildcard(key) {
		if err := c.createPath(key, value); err != nil {
			return err
		}
		return c.firePre(c.childPath(key))
	}

	// Update of existing keys: wildcard patterns expand against the
	// current tree and the full match list is always reported.
	var targets []string
	if hasWildcard(key) {
		matched, err := c.Match(key)
		if err != nil {
			return err
		}
		qualified := make([]string, len(matched))
		for i, m := range matched {
			qualified[i] = c.childPath(m)
		}
		c.warnf("pattern %q matched %d parameter(s): %v", c.childPath(key), len(matched), qualified)
		targets = matched
	} else {
		if _, err := c.getPath(key); err != nil {
			return fmt.Errorf("%w: %q was not defined by the default source", ErrUnknownParameter, c.childPath(key))
		}
		targets = []string{key}
	}

	for _, path := range targets {
		current, err := c.getPath(path)
		if err != nil {
			return err
		}
		toSet := value
		if !isDefault {
			coerced, want, got, ok := coerceKind(current, value)
			if !ok {
				return fmt.Errorf("%w: %q holds a %s, source sets a %s",
					ErrTypeMismatch, c.childPath(path), want, got)
			}
			toSet = coerced
		}
		// Each target gets its own copy so expanded wildcard writes
		// never share mutable state.
		if err := c.setPath(path, cloneValue(toSet, nil)); err != nil {
			return err
		}
		if isDefault {
			if err := c.firePre(c.childPath(path)); err != nil {
				return err
			}
		}
	}
	return nil
}

// childPath qualifies a path relative to c with c's position in the
// tree, so reports and errors always carry fully-qualified paths.
func (c *Config) childPath(path string) string {
	prefix := c.FullName()
	if prefix == "" {
		return path
	}
	return prefix + "." + path
}

// firePre runs the pre-processing rules for a leaf that the default
// source just set. Rules run in declaration order and may observe the
// values of siblings set earlier in the same pass.
func (c *Config) firePre(fullPath string) error {
	r := c.root()
	if r.registry == nil {
		return nil
	}
	current, err := r.getPath(fullPath)
	if err != nil {
		return err
	}
	out, err := r.registry.apply(r, fullPath, current, phasePre)
	if err != nil {
		return err
	}
	if !equalValue(out, current) {
		return r.setPath(fullPath, normalize(out))
	}
	return nil
}

// runPostProcessing threads every leaf through the post-phase rules. It
// runs once, after the full construction pipeline (default + declared
// sources + CLI overrides) completes.
func (c *Config) runPostProcessing() error {
	r := c.root()
	if r.registry == nil {
		return nil
	}
	for _, path := range r.leafPaths() {
		current, err := r.getPath(path)
		if err != nil {
			return err
		}
		out, err := r.registry.apply(r, path, current, phasePost)
		if err != nil {
			return err
		}
		if !equalValue(out, current) {
			if err := r.setPath(path, normalize(out)); err != nil {
				return err
			}
		}
	}
	return nil
}

// drainPendingFiles merges the sources queued by the
// register-as-additional-config-file hook, recursively: a drained file
// may itself queue further files. They merge as non-default sources,
// subject to the same key contract.
func (c *Config) drainPendingFiles() error {
	r := c.root()
	for len(r.pendingFiles) > 0 {
		next := r.pendingFiles[0]
		r.pendingFiles = r.pendingFiles[1:]
		src, err := LoadSource(next)
		if err != nil {
			return err
		}
		if err := r.mergeSource(src, false); err != nil {
			return fmt.Errorf("additional config file %q: %w", next, err)
		}
	}
	return nil
}

// splitLast splits a dotted path into its parent part and final segment.
func splitLast(path string) (parent, leaf string) {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}
