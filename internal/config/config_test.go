package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/goquad"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.Equal(t, goquad.DefaultTolerance1D, cfg.Tolerance1D)
	assert.Equal(t, goquad.DefaultMaxIterations1D, cfg.MaxIterations1D)
	assert.Equal(t, goquad.DefaultTolerance2D, cfg.Tolerance2D)
	assert.Equal(t, goquad.DefaultMaxIterations2D, cfg.MaxIterations2D)
	assert.Empty(t, cfg.ExplainURL)
	assert.Equal(t, 30*time.Second, cfg.ExplainTimeout)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("GOQUAD_PORT", "9090")
	t.Setenv("GOQUAD_TOLERANCE_2D", "1e-3")
	t.Setenv("GOQUAD_EXPLAIN_URL", "http://localhost:8888/api/explain")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 1e-3, cfg.Tolerance2D)
	assert.Equal(t, "http://localhost:8888/api/explain", cfg.ExplainURL)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goquad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 7070\nmax_iterations_1d: 12\nexplain_timeout: 5s\n"), 0o600))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, 12, cfg.MaxIterations1D)
	assert.Equal(t, 5*time.Second, cfg.ExplainTimeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestValidate(t *testing.T) {
	base, err := Load(New(), "")
	require.NoError(t, err)

	cases := map[string]func(c *Config){
		"port":           func(c *Config) { c.Port = 0 },
		"body":           func(c *Config) { c.MaxBodyBytes = -1 },
		"tolerance":      func(c *Config) { c.Tolerance1D = 0 },
		"iterations 1d":  func(c *Config) { c.MaxIterations1D = goquad.MaxToolIterations1D + 1 },
		"iterations 2d":  func(c *Config) { c.MaxIterations2D = -1 },
		"explain window": func(c *Config) { c.ExplainURL = "http://x"; c.ExplainTimeout = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrConfiguration)
		})
	}
}
