// File: yaecs/variation.go
package yaecs

import (
	"fmt"
	"strings"
)

// variationDecl marks a parameter registered as a Variation: its value
// holds a named mapping or ordered list of partial patches. The patches
// are read at expansion time, so later sources may still override them.
type variationDecl struct {
	param string
}

// gridDecl marks a parameter registered as a Grid: its value lists the
// variation parameters whose entries combine as a cartesian product.
type gridDecl struct {
	param string
	dims  []string
}

// CreateVariations expands the declared Variations and Grids of this
// config into fully independent deep-cloned children.
//
// Each Grid yields the cartesian product of its dimensions, built by
// merging one patch per dimension into a fresh clone, in the grid's
// declared order. Variations not consumed by any grid then each yield
// one child per patch. Children append exactly the patches they
// received to their hierarchy, so a saved parent plus its hierarchy
// fully determines every child. The children share no mutable state
// with the parent or each other.
func (c *Config) CreateVariations() ([]*Config, error) {
	r := c.root()
	if len(r.variations) == 0 {
		return nil, nil
	}

	consumed := make(map[string]bool)
	var children []*Config

	for _, grid := range r.grids {
		combos := [][]namedPatch{nil}
		for _, dim := range grid.dims {
			decl, err := r.findVariation(dim)
			if err != nil {
				return nil, fmt.Errorf("grid %q: %w", grid.param, err)
			}
			consumed[decl.param] = true
			patches, err := r.variationPatches(decl.param)
			if err != nil {
				return nil, err
			}
			var next [][]namedPatch
			for _, combo := range combos {
				for _, p := range patches {
					extended := make([]namedPatch, len(combo), len(combo)+1)
					copy(extended, combo)
					next = append(next, append(extended, p))
				}
			}
			combos = next
		}
		for _, combo := range combos {
			child := r.clone()
			var names []string
			for _, p := range combo {
				if err := child.mergeSource(SourceFromMap(p.patch), false); err != nil {
					return nil, fmt.Errorf("applying variation %q: %w", p.name, err)
				}
				names = append(names, p.name)
			}
			child.variationName = strings.Join(names, "+")
			children = append(children, child)
		}
	}

	for _, decl := range r.variations {
		if consumed[decl.param] {
			continue
		}
		patches, err := r.variationPatches(decl.param)
		if err != nil {
			return nil, err
		}
		for _, p := range patches {
			child := r.clone()
			if err := child.mergeSource(SourceFromMap(p.patch), false); err != nil {
				return nil, fmt.Errorf("applying variation %q: %w", p.name, err)
			}
			child.variationName = p.name
			children = append(children, child)
		}
	}
	return children, nil
}

type namedPatch struct {
	name  string
	patch map[string]any
}

// findVariation resolves a grid dimension to a declared variation, by
// full parameter path or by its final segment.
func (c *Config) findVariation(name string) (variationDecl, error) {
	for _, decl := range c.variations {
		if decl.param == name {
			return decl, nil
		}
	}
	for _, decl := range c.variations {
		if _, leaf := splitLast(decl.param); leaf == name {
			return decl, nil
		}
	}
	return variationDecl{}, fmt.Errorf("%w: %q is not a registered variation", ErrProcessing, name)
}

// variationPatches reads the current value of a variation parameter and
// returns its ordered, named patches. A named mapping iterates in
// sorted name order; a list names its entries <param>_<index>.
func (c *Config) variationPatches(param string) ([]namedPatch, error) {
	value, err := c.getPath(param)
	if err != nil {
		return nil, err
	}
	_, leaf := splitLast(param)
	switch val := value.(type) {
	case map[string]any:
		out := make([]namedPatch, 0, len(val))
		for _, name := range sortedKeys(val) {
			patch, ok := val[name].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: variation %q entry %q is a %s, not a mapping",
					ErrProcessing, param, name, kindOf(val[name]))
			}
			out = append(out, namedPatch{name: name, patch: patch})
		}
		return out, nil
	case []any:
		out := make([]namedPatch, 0, len(val))
		for i, item := range val {
			patch, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: variation %q entry %d is a %s, not a mapping",
					ErrProcessing, param, i, kindOf(item))
			}
			out = append(out, namedPatch{name: fmt.Sprintf("%s_%d", leaf, i), patch: patch})
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: variation %q must hold a mapping or list of patches, got %s",
		ErrProcessing, param, kindOf(value))
}
