// File: yaecs/io.go
package yaecs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// metadataKey is the reserved parameter carrying save metadata. It never
// enters the parameter tree.
const metadataKey = "config_metadata"

// Save serializes the tree to path as YAML: the reserved metadata entry
// first, then every leaf as a dotted path in creation order. The write
// is atomic (temp file + rename). A hierarchy artifact listing the
// merged sources in order is written next to it, so the saved pair
// fully determines the config.
func (c *Config) Save(path string) error {
	r := c.root()

	doc := &yaml.Node{Kind: yaml.MappingNode}
	if err := appendMapEntry(doc, metadataKey, r.formatMetadata(time.Now())); err != nil {
		return err
	}
	var encodeErr error
	r.walkLeaves("", func(leafPath string, value any) {
		if encodeErr != nil {
			return
		}
		encodeErr = appendMapEntry(doc, leafPath, value)
	})
	if encodeErr != nil {
		return fmt.Errorf("encoding config: %w", encodeErr)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := atomicWrite(path, data); err != nil {
		return err
	}
	if err := r.saveHierarchy(hierarchyPath(path)); err != nil {
		return err
	}
	r.savedPath = path
	return nil
}

// saveHierarchy writes the ordered source record: the default-source
// descriptor first, then one entry per later merge.
func (c *Config) saveHierarchy(path string) error {
	data, err := yaml.Marshal(c.root().hierarchy)
	if err != nil {
		return fmt.Errorf("marshaling hierarchy: %w", err)
	}
	return atomicWrite(path, data)
}

// hierarchyPath derives the artifact path: "run.yaml" ->
// "run_hierarchy.yaml".
func hierarchyPath(savePath string) string {
	ext := filepath.Ext(savePath)
	return strings.TrimSuffix(savePath, ext) + "_hierarchy" + ext
}

// LoadSaved restores a config from a file produced by Save. The saved
// leaf values load as a fresh default source; the metadata entry
// restores the overwriting regime and variation name instead of
// becoming a parameter.
func LoadSaved(path string) (*Config, error) {
	src, err := LoadSource(path)
	if err != nil {
		return nil, err
	}

	cfg := newNode("", nil)
	cfg.regime = RegimeAutoSave
	for d, doc := range src.docs {
		kept := doc.entries[:0]
		for _, e := range doc.entries {
			if doc.tag == "" && e.tag == "" && e.key == metadataKey {
				meta, ok := e.value.(string)
				if !ok {
					return nil, fmt.Errorf("%w: %s must be a string", ErrStructure, metadataKey)
				}
				regime, variation, err := parseMetadata(meta)
				if err != nil {
					return nil, err
				}
				cfg.regime = regime
				cfg.variationName = variation
				continue
			}
			kept = append(kept, e)
		}
		src.docs[d].entries = kept
	}

	if err := cfg.mergeSource(src, true); err != nil {
		return nil, err
	}
	cfg.savedPath = path
	cfg.constructed = true
	return cfg, nil
}

// LoadHierarchy reads a hierarchy artifact back into source
// descriptors.
func LoadHierarchy(path string) ([]SourceRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hierarchy %q: %w", path, err)
	}
	var refs []SourceRef
	if err := yaml.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("parsing hierarchy %q: %w", path, err)
	}
	return refs, nil
}

// Replay rebuilds a config from an ordered list of source descriptors,
// first entry as the default source. Replaying the recorded hierarchy
// of a live config reproduces its final leaf values.
func Replay(refs []SourceRef, registry *ProcessingRegistry, regime OverwritingRegime) (*Config, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: empty hierarchy", ErrStructure)
	}
	cfg := newNode("", nil)
	cfg.regime = regime
	cfg.registry = registry
	for i, ref := range refs {
		var src *Source
		var err error
		if ref.IsFile() {
			src, err = LoadSource(ref.Path)
			if err != nil {
				return nil, err
			}
		} else {
			src = SourceFromMap(ref.Inline)
		}
		if err := cfg.mergeSource(src, i == 0); err != nil {
			return nil, err
		}
		if err := cfg.drainPendingFiles(); err != nil {
			return nil, err
		}
	}
	if err := cfg.runPostProcessing(); err != nil {
		return nil, err
	}
	if registry != nil {
		registry.warnUnmatched(cfg)
	}
	cfg.constructed = true
	return cfg, nil
}

// formatMetadata renders the reserved metadata entry: human-readable
// and numeric save time, the regime in effect, and the variation name
// when set.
func (c *Config) formatMetadata(now time.Time) string {
	meta := fmt.Sprintf("Saving time : %s (%d) ; Regime : %s", now.Format(time.ANSIC), now.Unix(), c.regime)
	if c.variationName != "" {
		meta += fmt.Sprintf(" ; Variation : %s", c.variationName)
	}
	return meta
}

// parseMetadata inverts formatMetadata. The saving time is validated
// but only regime and variation feed the loaded config.
func parseMetadata(meta string) (OverwritingRegime, string, error) {
	regime := RegimeAutoSave
	variation := ""
	for _, chunk := range strings.Split(meta, ";") {
		label, value, ok := strings.Cut(chunk, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(label) {
		case "Regime":
			r, err := ParseRegime(value)
			if err != nil {
				return regime, "", fmt.Errorf("%w: %v", ErrStructure, err)
			}
			regime = r
		case "Variation":
			variation = value
		case "Saving time":
			if open := strings.LastIndex(value, "("); open >= 0 {
				numeric := strings.TrimSuffix(value[open+1:], ")")
				if _, err := strconv.ParseInt(strings.TrimSpace(numeric), 10, 64); err != nil {
					return regime, "", fmt.Errorf("%w: bad saving time %q", ErrStructure, value)
				}
			}
		}
	}
	return regime, variation, nil
}

func appendMapEntry(mapping *yaml.Node, key string, value any) error {
	valNode, err := encodeValueNode(value)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
	mapping.Content = append(mapping.Content, keyNode, valNode)
	return nil
}

// encodeValueNode builds the YAML node for a leaf value, recursing into
// lists and opaque mappings. Floats always carry the !!float tag: a bare
// Encode of float64(1) emits the scalar "1", which reloads as an int and
// changes the parameter's kind.
func encodeValueNode(value any) (*yaml.Node, error) {
	switch val := value.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case float64:
		return &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!float",
			Value: strconv.FormatFloat(val, 'g', -1, 64),
		}, nil
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range val {
			child, err := encodeValueNode(item)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case map[string]any:
		node := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range sortedKeys(val) {
			child, err := encodeValueNode(val[k])
			if err != nil {
				return nil, err
			}
			keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: k}
			node.Content = append(node.Content, keyNode, child)
		}
		return node, nil
	default:
		node := &yaml.Node{}
		if err := node.Encode(value); err != nil {
			return nil, err
		}
		return node, nil
	}
}

// atomicWrite writes data through a temp file in the target directory,
// then renames it into place.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %q: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %q: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %q: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into %q: %w", path, err)
	}
	if err := os.Chmod(path, 0644); err != nil {
		return fmt.Errorf("setting permissions on %q: %w", path, err)
	}
	return nil
}
