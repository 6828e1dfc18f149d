package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/dispatch/internal/typeid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
types:
  - id: 100
    name: XLATensor
parallel:
  enabled: true
  workers: 3
  min_chunk: 64
verbosity: 4
`))
	require.NoError(t, err)

	assert.Equal(t, []Type{{ID: 100, Name: "XLATensor"}}, cfg.Types)
	assert.Equal(t, 4, cfg.Verbosity)

	p := cfg.ParallelConfig()
	assert.True(t, p.Enabled)
	assert.Equal(t, 3, p.NumWorkers)
	assert.Equal(t, 64, p.MinChunkSize)
	require.NoError(t, p.Validate())

	reg, err := cfg.TypeRegistry()
	require.NoError(t, err)
	xla, ok := reg.LookupName("XLATensor")
	require.True(t, ok)
	assert.Equal(t, int64(100), xla.ID())
	assert.True(t, reg.Contains(typeid.CPUTensor))
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	_, err := Parse([]byte(`
types:
  - id: 1
    name: Shadow
  - id: 7
    name: A
  - id: 7
  - id: -3
    name: B
parallel:
  workers: -1
`))
	require.Error(t, err)
	errs := multierr.Errors(err)
	// reserved id, duplicate id, missing name, negative id, negative workers
	assert.Len(t, errs, 5)
	assert.Contains(t, err.Error(), "reserved for CPUTensor")
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("types: ["))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parallel:\n  enabled: false\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.ParallelConfig().Enabled)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
