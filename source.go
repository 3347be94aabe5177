// File: yaecs/source.go
package yaecs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// SourceRef describes one entry of a config's hierarchy: either a file
// identifier or an inline partial mapping.
type SourceRef struct {
	Path   string
	Inline map[string]any
}

// IsFile reports whether the descriptor names a file source.
func (r SourceRef) IsFile() bool { return r.Path != "" }

// clone deep-copies the inline mapping so callers holding a descriptor
// can never mutate the recorded hierarchy through it.
func (r SourceRef) clone() SourceRef {
	if r.Inline == nil {
		return r
	}
	return SourceRef{Path: r.Path, Inline: cloneValue(r.Inline, nil).(map[string]any)}
}

func (r SourceRef) String() string {
	if r.IsFile() {
		return r.Path
	}
	return fmt.Sprintf("%v", r.Inline)
}

// MarshalYAML serializes the descriptor for the hierarchy artifact: file
// sources as plain strings, inline patches as mappings. The mapping goes
// through the same encoding walk as saved leaves, so float kinds survive
// a replay of the artifact.
func (r SourceRef) MarshalYAML() (any, error) {
	if r.IsFile() {
		return r.Path, nil
	}
	return encodeValueNode(r.Inline)
}

// UnmarshalYAML restores a descriptor from a hierarchy artifact.
func (r *SourceRef) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	switch val := normalize(v).(type) {
	case string:
		r.Path = val
	case map[string]any:
		r.Inline = val
	default:
		return fmt.Errorf("hierarchy entry must be a path or a mapping, got %T", v)
	}
	return nil
}

// sourceEntry is one ordered key of a parsed source. A non-empty tag
// marks the value as a sub-config source with its own ordered children;
// otherwise value holds a native leaf (scalars, lists and untagged
// mappings, which stay opaque).
type sourceEntry struct {
	key      string
	tag      string
	children []sourceEntry
	value    any
}

// sourceDoc is one document of a parsed source. A non-empty tag targets
// the named sub-config instead of the root.
type sourceDoc struct {
	tag     string
	entries []sourceEntry
}

// Source is a fully parsed config source ready to merge: one or more
// ordered documents plus the descriptor recorded in the hierarchy.
type Source struct {
	ref  SourceRef
	docs []sourceDoc
}

// Ref returns the hierarchy descriptor of this source.
func (s *Source) Ref() SourceRef { return s.ref }

// LoadSource reads and parses a source file. The format is selected by
// extension: ".toml" goes through BurntSushi/toml, everything else
// (".yaml", ".yml", ".json") through yaml.v3, which also accepts JSON.
func LoadSource(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source %q: %w", path, err)
	}
	var src *Source
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		src, err = parseTOMLSource(data)
	} else {
		src, err = parseYAMLSource(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing source %q: %w", path, err)
	}
	src.ref = SourceRef{Path: path}
	return src, nil
}

// SourceFromBytes parses raw YAML (or JSON) as an inline source. The
// hierarchy records the content flattened to dotted leaf paths, so
// replaying the descriptor through a default merge rebuilds the same
// sub-config structure the tags described.
func SourceFromBytes(data []byte) (*Source, error) {
	src, err := parseYAMLSource(data)
	if err != nil {
		return nil, err
	}
	inline := make(map[string]any)
	for _, doc := range src.docs {
		flattenEntries(doc.entries, doc.tag, inline)
	}
	src.ref = SourceRef{Inline: inline}
	return src, nil
}

func flattenEntries(entries []sourceEntry, prefix string, out map[string]any) {
	for _, e := range entries {
		path := e.key
		if prefix != "" {
			path = prefix + "." + e.key
		}
		if e.tag != "" {
			flattenEntries(e.children, path, out)
			continue
		}
		out[path] = cloneValue(e.value, nil)
	}
}

// SourceFromMap wraps a partial parameter mapping as an inline source.
// Dotted keys reach into sub-configs; nested mappings stay opaque
// values. Keys iterate in sorted order.
func SourceFromMap(patch map[string]any) *Source {
	patch = normalize(patch).(map[string]any)
	entries := make([]sourceEntry, 0, len(patch))
	for _, k := range sortedKeys(patch) {
		entries = append(entries, sourceEntry{key: k, value: patch[k]})
	}
	return &Source{
		ref:  SourceRef{Inline: cloneValue(patch, nil).(map[string]any)},
		docs: []sourceDoc{{entries: entries}},
	}
}

// parseYAMLSource parses every document of a YAML stream in order. A
// file may hold several documents, each optionally tagged to target a
// sub-config.
func parseYAMLSource(data []byte) (*Source, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	src := &Source{}
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		target := &node
		if node.Kind == yaml.DocumentNode {
			target = node.Content[0]
		}
		doc, err := parseYAMLDoc(target)
		if err != nil {
			return nil, err
		}
		src.docs = append(src.docs, doc)
	}
	return src, nil
}

func parseYAMLDoc(node *yaml.Node) (sourceDoc, error) {
	node = resolveAlias(node)
	doc := sourceDoc{tag: localTag(node)}
	if node.Kind != yaml.MappingNode {
		if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
			return doc, nil
		}
		return doc, fmt.Errorf("%w: source document must be a mapping", ErrStructure)
	}
	entries, err := parseMappingEntries(node)
	if err != nil {
		return doc, err
	}
	doc.entries = entries
	return doc, nil
}

func parseMappingEntries(node *yaml.Node) ([]sourceEntry, error) {
	entries := make([]sourceEntry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := resolveAlias(node.Content[i+1])
		key := keyNode.Value

		if tag := localTag(valNode); tag != "" {
			if valNode.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("%w: tag !%s must annotate a mapping", ErrStructure, tag)
			}
			children, err := parseMappingEntries(valNode)
			if err != nil {
				return nil, err
			}
			entries = append(entries, sourceEntry{key: key, tag: tag, children: children})
			continue
		}

		value, err := nodeToNative(valNode)
		if err != nil {
			return nil, err
		}
		entries = append(entries, sourceEntry{key: key, value: value})
	}
	return entries, nil
}

// nodeToNative converts an untagged YAML node to a native value. A
// sub-config tag nested inside an opaque mapping is a structure error:
// opaque values cannot contain scopes.
func nodeToNative(node *yaml.Node) (any, error) {
	node = resolveAlias(node)
	if tag := localTag(node); tag != "" {
		return nil, fmt.Errorf("%w: tag !%s inside an opaque value", ErrStructure, tag)
	}
	switch node.Kind {
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			// Unresolvable scalar tags fall back to the raw string.
			return node.Value, nil
		}
		return normalize(v), nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := nodeToNative(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		out := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := nodeToNative(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[node.Content[i].Value] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unsupported YAML node kind %d", ErrStructure, node.Kind)
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// localTag extracts a sub-config tag name ("!model" -> "model"); stock
// YAML tags ("!!str", ...) are not sub-config tags.
func localTag(n *yaml.Node) string {
	if strings.HasPrefix(n.Tag, "!") && !strings.HasPrefix(n.Tag, "!!") {
		return strings.TrimPrefix(n.Tag, "!")
	}
	return ""
}

// parseTOMLSource parses TOML content. TOML carries no tags, so tables
// flatten to dotted paths: on a default merge each table becomes a
// sub-config. Table keys iterate in sorted order since the TOML decoder
// does not preserve declaration order.
func parseTOMLSource(data []byte) (*Source, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	flat := make(map[string]any)
	flattenTOML(normalize(raw).(map[string]any), "", flat)
	entries := make([]sourceEntry, 0, len(flat))
	for _, k := range sortedKeys(flat) {
		entries = append(entries, sourceEntry{key: k, value: flat[k]})
	}
	return &Source{docs: []sourceDoc{{entries: entries}}}, nil
}

func flattenTOML(table map[string]any, prefix string, out map[string]any) {
	for _, key := range sortedKeys(table) {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if sub, ok := table[key].(map[string]any); ok {
			flattenTOML(sub, path, out)
			continue
		}
		out[path] = table[key]
	}
}
