// File: yaecs/decode_test.go
package yaecs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSubConfig(t *testing.T) {
	type ModelParams struct {
		LR      float64  `yaml:"lr"`
		Dropout *float64 `yaml:"dropout"`
	}

	cfg, err := FromBytes([]byte(defaultYAML))
	require.NoError(t, err)

	var m ModelParams
	require.NoError(t, cfg.Decode("model", &m))
	assert.Equal(t, 0.1, m.LR)
	assert.Nil(t, m.Dropout)
}

func TestDecodeWholeTree(t *testing.T) {
	type Params struct {
		BatchSize int      `yaml:"batch_size"`
		LR        float64  `yaml:"lr"`
		UseCuda   bool     `yaml:"use_cuda"`
		Tags      []string `yaml:"tags"`
		Data      struct {
			Path string  `yaml:"path"`
			LR   float64 `yaml:"lr"`
		} `yaml:"data"`
	}

	cfg, err := FromBytes([]byte(defaultYAML))
	require.NoError(t, err)

	var p Params
	require.NoError(t, cfg.Decode("", &p))
	assert.Equal(t, 32, p.BatchSize)
	assert.Equal(t, 0.001, p.LR)
	assert.True(t, p.UseCuda)
	assert.Equal(t, []string{"baseline"}, p.Tags)
	assert.Equal(t, "/tmp/data", p.Data.Path)
	assert.Equal(t, 0.01, p.Data.LR)
}

func TestDecodeOpaqueMapping(t *testing.T) {
	type Schedule struct {
		Warmup int     `yaml:"warmup"`
		Decay  float64 `yaml:"decay"`
	}

	cfg, err := FromBytes([]byte(defaultYAML))
	require.NoError(t, err)

	var s Schedule
	require.NoError(t, cfg.Decode("schedule", &s))
	assert.Equal(t, 5, s.Warmup)
	assert.Equal(t, 0.9, s.Decay)
}

func TestDecodeDurationHook(t *testing.T) {
	cfg, err := FromBytes([]byte("timeout: 30s\n"))
	require.NoError(t, err)

	var out struct {
		Timeout time.Duration `yaml:"timeout"`
	}
	require.NoError(t, cfg.Decode("", &out))
	assert.Equal(t, 30*time.Second, out.Timeout)
}

func TestDecodeErrors(t *testing.T) {
	cfg, err := FromBytes([]byte(defaultYAML))
	require.NoError(t, err)

	var out struct{}
	assert.Error(t, cfg.Decode("model", nil))
	assert.ErrorIs(t, cfg.Decode("missing", &out), ErrPathNotFound)
	assert.ErrorIs(t, cfg.Decode("lr", &out), ErrStructure)
}
