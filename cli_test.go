// File: yaecs/cli_test.go
package yaecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverrides(t *testing.T) {
	tests := []struct {
		name        string
		tokens      []string
		wantPaths   []string
		wantValues  []any
		wantConfigs []string
	}{
		{
			name:       "EqualsForm",
			tokens:     []string{"--lr=0.01"},
			wantPaths:  []string{"lr"},
			wantValues: []any{0.01},
		},
		{
			name:       "SpaceForm",
			tokens:     []string{"--batch_size", "64"},
			wantPaths:  []string{"batch_size"},
			wantValues: []any{64},
		},
		{
			name:       "BareFlag",
			tokens:     []string{"--use_cuda"},
			wantPaths:  []string{"use_cuda"},
			wantValues: []any{true},
		},
		{
			name:       "ListLiteral",
			tokens:     []string{"--tags=[a, b]"},
			wantPaths:  []string{"tags"},
			wantValues: []any{[]any{"a", "b"}},
		},
		{
			name:       "MappingLiteral",
			tokens:     []string{"--schedule={warmup: 1, decay: 0.5}"},
			wantPaths:  []string{"schedule"},
			wantValues: []any{map[string]any{"warmup": 1, "decay": 0.5}},
		},
		{
			name:        "ReservedConfigComma",
			tokens:      []string{"--config", "a.yaml,b.yaml"},
			wantConfigs: []string{"a.yaml", "b.yaml"},
		},
		{
			name:        "ReservedConfigBracketList",
			tokens:      []string{"--config=[a.yaml, b.yaml]"},
			wantConfigs: []string{"a.yaml", "b.yaml"},
		},
		{
			name:       "MixedTokens",
			tokens:     []string{"positional", "--lr=0.5", "--config", "exp.yaml", "--model.dropout", "0.2"},
			wantPaths:  []string{"lr", "model.dropout"},
			wantValues: []any{0.5, 0.2},

			wantConfigs: []string{"exp.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overrides, configs, err := ParseOverrides(tt.tokens)
			require.NoError(t, err)
			assert.Equal(t, tt.wantConfigs, configs)
			require.Len(t, overrides, len(tt.wantPaths))
			for i, p := range tt.wantPaths {
				assert.Equal(t, p, overrides[i].Path)
				assert.Equal(t, tt.wantValues[i], overrides[i].Value)
			}
		})
	}
}

func TestParseOverridesErrors(t *testing.T) {
	_, _, err := ParseOverrides([]string{"--bad!name=1"})
	assert.Error(t, err)

	_, _, err = ParseOverrides([]string{"--config"})
	assert.Error(t, err)
}

func TestOverrideDecoding(t *testing.T) {
	tests := []struct {
		name    string
		tokens  []string
		path    string
		want    any
		wantErr error
	}{
		{"BareFlagOnBool", []string{"--use_cuda"}, "use_cuda", true, nil},
		{"FloatLiteral", []string{"--lr=0.01"}, "lr", 0.01, nil},
		{"IntPromotesOntoFloat", []string{"--lr=1"}, "lr", 1.0, nil},
		{"TextOnInt", []string{"--batch_size=text"}, "", nil, ErrTypeMismatch},
		{"BareFlagOnNonBool", []string{"--batch_size"}, "", nil, ErrTypeMismatch},
		{"NilNeverOverridable", []string{"--model.dropout=0.5"}, "", nil, ErrTypeMismatch},
		{"NullLiteralStaysString", []string{"--model.dropout=null"}, "", nil, ErrTypeMismatch},
		{"UnknownParameter", []string{"--missing=1"}, "", nil, ErrUnknownParameter},
		{"QuotedStringOnString", []string{"--data.path=/data/run1"}, "data.path", "/data/run1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewBuilder().
				WithDefaultBytes([]byte(defaultYAML)).
				WithArgs(tt.tokens).
				Build()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.GetOr(tt.path, nil))
		})
	}
}

func TestWildcardOverride(t *testing.T) {
	cfg, err := NewBuilder().
		WithDefaultBytes([]byte(defaultYAML)).
		WithArgs([]string{"--*.lr=0.9"}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.GetOr("data.lr", nil))
	assert.Equal(t, 0.9, cfg.GetOr("model.lr", nil))
	assert.Equal(t, 0.001, cfg.GetOr("lr", nil))

	warnings := cfg.Warnings()
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0], "matched 2 parameter(s)")
}

func TestConfigTokenSelectsSources(t *testing.T) {
	exp := writeSource(t, "exp.yaml", "lr: 0.07\n")
	cfg, err := NewBuilder().
		WithDefaultBytes([]byte(defaultYAML)).
		WithArgs([]string{"--config", exp, "--batch_size=128"}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, 0.07, cfg.GetOr("lr", nil))
	assert.Equal(t, 128, cfg.GetOr("batch_size", nil))

	// --config is never a parameter override.
	_, err = cfg.Get("config")
	assert.ErrorIs(t, err, ErrPathNotFound)

	// Hierarchy: default, selected source, then the override patch.
	refs := cfg.Hierarchy()
	require.Len(t, refs, 3)
	assert.Equal(t, exp, refs[1].Path)
	assert.Equal(t, map[string]any{"batch_size": 128}, refs[2].Inline)
}

func TestOverridesApplyAfterAllSources(t *testing.T) {
	exp := writeSource(t, "exp.yaml", "lr: 0.07\n")
	cfg, err := NewBuilder().
		WithDefaultBytes([]byte(defaultYAML)).
		WithSource(exp).
		WithArgs([]string{"--lr=0.5"}).
		Build()
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.GetOr("lr", nil))
}
