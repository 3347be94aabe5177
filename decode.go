// File: yaecs/decode.go
package yaecs

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Decode materializes the parameters under basePath into target, which
// must be a non-nil pointer to a struct or map. An empty basePath
// decodes the whole node. Sub-configs decode as nested structs; numeric
// kinds convert weakly, durations parse from strings.
func (c *Config) Decode(basePath string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", target)
	}

	var data map[string]any
	if basePath == "" {
		data = c.native()
	} else {
		v, err := c.getPath(basePath)
		if err != nil {
			return err
		}
		switch val := v.(type) {
		case *Config:
			data = val.native()
		case map[string]any:
			data = cloneValue(val, nil).(map[string]any)
		default:
			return fmt.Errorf("%w: %q is a %s, cannot decode into a struct",
				ErrStructure, basePath, kindOf(v))
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return fmt.Errorf("decoding %q: %w", basePath, err)
	}
	return nil
}
