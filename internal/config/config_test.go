package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JPFrancoia/scipy/internal/config"
	"github.com/JPFrancoia/scipy/optimize/zeros"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "rootfind.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDefault_Valid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, zeros.DefaultOptions(), cfg.Solver)
}

func TestResolve_MergesSetFieldsOnly(t *testing.T) {
	p := writeFile(t, `
addr: "127.0.0.1:9000"
log_format: json
max_iter: 0
xtol: 1e-10
batch_concurrency: 2
run_retention: 90s
`)
	cfg, err := config.Resolve(p)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel, "unset keys keep the default")
	assert.Equal(t, 1e-10, cfg.Solver.XTol)
	assert.Equal(t, zeros.DefaultRTol, cfg.Solver.RTol)
	assert.Zero(t, cfg.Solver.MaxIter)
	assert.Equal(t, 2, cfg.BatchConcurrency)
	assert.Equal(t, 400, cfg.PreviewPoints)
	assert.Equal(t, 90*time.Second, cfg.RunRetention)
}

func TestResolve_NoFile(t *testing.T) {
	cfg, err := config.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = config.Resolve(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFile_BadYAML(t *testing.T) {
	_, err := config.LoadFile(writeFile(t, "addr: [unterminated"))
	assert.Error(t, err)
}

// TestValidate_AggregatesAll reports every broken field in one error.
func TestValidate_AggregatesAll(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = ""
	cfg.LogLevel = "loud"
	cfg.LogFormat = "xml"
	cfg.Solver.RTol = 0
	cfg.BatchConcurrency = 0
	cfg.RunRetention = 0

	err := cfg.Validate()
	require.ErrorIs(t, err, config.ErrInvalid)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 6)
	assert.ErrorContains(t, err, "run_retention")
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "error", "INFO"} {
		_, err := config.ParseLevel(s)
		assert.NoError(t, err, s)
	}
	_, err := config.ParseLevel("chatty")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestLogger(t *testing.T) {
	cfg := config.Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"
	assert.NotNil(t, cfg.Logger())
}

func TestLoadFile_BadRetention(t *testing.T) {
	_, err := config.LoadFile(writeFile(t, "run_retention: soon\n"))
	assert.Error(t, err)
}
