// File: yaecs/path_test.go
package yaecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWildcardScoping(t *testing.T) {
	cfg, err := FromBytes([]byte(`
lr: 0.1
a: !a
  lr: 0.2
  nested: !nested
    lr: 0.3
b: !b
  lr: 0.4
`))
	require.NoError(t, err)

	tests := []struct {
		pattern string
		want    []string
	}{
		{"*.lr", []string{"a.lr", "b.lr"}},
		{"lr", []string{"lr"}},
		{"a.*", []string{"a.lr"}},
		{"a.*.lr", []string{"a.nested.lr"}},
		{"*.*.lr", []string{"a.nested.lr"}},
		{"*.missing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := cfg.Match(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLiteralPathResolution(t *testing.T) {
	cfg, err := FromBytes([]byte(defaultYAML))
	require.NoError(t, err)

	t.Run("PointRead", func(t *testing.T) {
		v, err := cfg.Get("model.lr")
		require.NoError(t, err)
		assert.Equal(t, 0.1, v)
	})

	t.Run("MissingLiteralFails", func(t *testing.T) {
		_, err := cfg.Get("model.missing")
		assert.ErrorIs(t, err, ErrPathNotFound)
		_, err = cfg.Match("model.missing")
		assert.ErrorIs(t, err, ErrPathNotFound)
	})

	t.Run("TraversalThroughLeafFails", func(t *testing.T) {
		_, err := cfg.Get("lr.deeper")
		assert.ErrorIs(t, err, ErrPathNotFound)
	})

	t.Run("OpaqueMappingIsALeaf", func(t *testing.T) {
		// Pattern resolution stops at opaque values: keys inside the
		// schedule mapping are not parameters.
		paths := cfg.leafPaths()
		assert.Contains(t, paths, "schedule")
		assert.NotContains(t, paths, "schedule.warmup")
	})
}

func TestLeafPathOrder(t *testing.T) {
	cfg, err := FromBytes([]byte(defaultYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"batch_size", "lr", "use_cuda", "tags", "schedule",
		"data.path", "data.lr", "model.lr", "model.dropout",
	}, cfg.leafPaths())
}
