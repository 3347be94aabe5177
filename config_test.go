// File: yaecs/config_test.go
package yaecs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedGetters(t *testing.T) {
	cfg, err := FromBytes([]byte(defaultYAML))
	require.NoError(t, err)

	t.Run("String", func(t *testing.T) {
		s, err := cfg.String("data.path")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/data", s)
		s, err = cfg.String("batch_size")
		require.NoError(t, err)
		assert.Equal(t, "32", s)
	})

	t.Run("Int", func(t *testing.T) {
		i, err := cfg.Int("batch_size")
		require.NoError(t, err)
		assert.Equal(t, 32, i)
		_, err = cfg.Int("data.path")
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("Float", func(t *testing.T) {
		f, err := cfg.Float("lr")
		require.NoError(t, err)
		assert.Equal(t, 0.001, f)
		f, err = cfg.Float("batch_size")
		require.NoError(t, err)
		assert.Equal(t, 32.0, f)
	})

	t.Run("Bool", func(t *testing.T) {
		b, err := cfg.Bool("use_cuda")
		require.NoError(t, err)
		assert.True(t, b)
	})

	t.Run("StringSlice", func(t *testing.T) {
		s, err := cfg.StringSlice("tags")
		require.NoError(t, err)
		assert.Equal(t, []string{"baseline"}, s)
	})

	t.Run("GetOr", func(t *testing.T) {
		assert.Equal(t, 32, cfg.GetOr("batch_size", -1))
		assert.Equal(t, -1, cfg.GetOr("missing", -1))
	})
}

func TestLockedRegime(t *testing.T) {
	cfg, err := NewBuilder().
		WithDefaultBytes([]byte(defaultYAML)).
		WithRegime(RegimeLocked).
		Build()
	require.NoError(t, err)

	before := cfg.native()

	err = cfg.Set("lr", 0.5)
	assert.ErrorIs(t, err, ErrImmutableConfig)
	err = cfg.Replace("lr", "anything")
	assert.ErrorIs(t, err, ErrImmutableConfig)

	assert.Equal(t, before, cfg.native(), "locked config is unchanged after rejected mutations")
	assert.Equal(t, RegimeLocked, cfg.Regime())
}

func TestUnsafeRegimeOneTimeNotice(t *testing.T) {
	cfg, err := NewBuilder().
		WithDefaultBytes([]byte(defaultYAML)).
		WithRegime(RegimeUnsafe).
		Build()
	require.NoError(t, err)

	require.NoError(t, cfg.Set("lr", 0.5))
	require.NoError(t, cfg.Set("batch_size", 64))
	assert.Equal(t, 0.5, cfg.GetOr("lr", nil))
	assert.Equal(t, 64, cfg.GetOr("batch_size", nil))

	var notices int
	for _, w := range cfg.Warnings() {
		if strings.Contains(w, "no safety net") {
			notices++
		}
	}
	assert.Equal(t, 1, notices, "the unsafe notice is emitted exactly once")
}

func TestMutationKindContract(t *testing.T) {
	cfg, err := NewBuilder().
		WithDefaultBytes([]byte(defaultYAML)).
		WithRegime(RegimeUnsafe).
		Build()
	require.NoError(t, err)

	err = cfg.Set("lr", "fast")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	// Replace is the explicit structural replacement escape hatch.
	require.NoError(t, cfg.Replace("lr", "fast"))
	assert.Equal(t, "fast", cfg.GetOr("lr", nil))

	err = cfg.Set("missing", 1)
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestSetThroughSubConfig(t *testing.T) {
	cfg, err := NewBuilder().
		WithDefaultBytes([]byte(defaultYAML)).
		WithRegime(RegimeUnsafe).
		Build()
	require.NoError(t, err)

	model, err := cfg.Sub("model")
	require.NoError(t, err)

	// Sub-config mutations delegate to the root's regime.
	require.NoError(t, model.Set("lr", 0.9))
	assert.Equal(t, 0.9, cfg.GetOr("model.lr", nil))
}

func TestCloneIndependence(t *testing.T) {
	cfg, err := NewBuilder().
		WithDefaultBytes([]byte(defaultYAML)).
		WithRegime(RegimeUnsafe).
		Build()
	require.NoError(t, err)

	copied := cfg.clone()
	require.NoError(t, copied.Set("model.lr", 0.7))
	require.NoError(t, copied.Set("tags", []any{"changed"}))

	assert.Equal(t, 0.1, cfg.GetOr("model.lr", nil))
	assert.Equal(t, []any{"baseline"}, cfg.GetOr("tags", nil))
	assert.Equal(t, cfg.Hierarchy(), copied.Hierarchy())
}

func TestHierarchyInlineDescriptorsAreCopies(t *testing.T) {
	cfg, err := NewBuilder().
		WithDefaultBytes([]byte(defaultYAML)).
		WithPatch(map[string]any{"lr": 0.5}).
		Build()
	require.NoError(t, err)

	// Mutating a returned descriptor must not rewrite the record.
	refs := cfg.Hierarchy()
	require.Len(t, refs, 2)
	refs[1].Inline["lr"] = 99.0
	assert.Equal(t, 0.5, cfg.Hierarchy()[1].Inline["lr"])

	// Clones carry their own copy of each inline descriptor.
	copied := cfg.clone()
	copied.hierarchy[1].Inline["lr"] = 77.0
	assert.Equal(t, 0.5, cfg.Hierarchy()[1].Inline["lr"])
}

func TestDetails(t *testing.T) {
	cfg, err := NewBuilder().
		WithName("experiment").
		WithDefaultBytes([]byte(defaultYAML)).
		Build()
	require.NoError(t, err)

	out := cfg.Details()
	assert.Contains(t, out, "experiment (regime: auto-save)")
	assert.Contains(t, out, "model.lr: 0.1")
	assert.Contains(t, out, "hierarchy:")
}

func TestParseRegime(t *testing.T) {
	for _, name := range []string{"auto-save", "locked", "unsafe"} {
		r, err := ParseRegime(name)
		require.NoError(t, err)
		assert.Equal(t, name, r.String())
	}
	_, err := ParseRegime("yolo")
	assert.Error(t, err)
}
