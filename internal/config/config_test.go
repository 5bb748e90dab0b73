package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/needle-digital/dh-importer/internal/config"
)

func chtemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chtemp(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, 50_000, cfg.Fetch.PageLimit)
	require.Equal(t, 1_000_000, cfg.Fetch.HardCeiling)
	require.Equal(t, 10_000, cfg.Fetch.ChunkSize)
	require.Equal(t, 5_000, cfg.Fetch.ChunkThreshold)
	require.Equal(t, 1_000, cfg.Display.Ceiling)
	require.Equal(t, 100, cfg.Display.RecordsPerPage)
	require.Equal(t, time.Minute, cfg.Identity.RefreshLead)
	require.Equal(t, 5*time.Minute, cfg.API.Timeout)
	require.NotEmpty(t, cfg.Settings.Path)
}

func TestLoad_ConfigFile(t *testing.T) {
	chtemp(t)

	contents := `
environment: development
api:
  baseurl: http://localhost:8080
  timeout: 30s
fetch:
  pagelimit: 500
  hardceiling: 10000
`
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(wd, "config.yaml"), []byte(contents), 0o600))

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	require.Equal(t, 30*time.Second, cfg.API.Timeout)
	require.Equal(t, 500, cfg.Fetch.PageLimit)
	require.Equal(t, 10_000, cfg.Fetch.HardCeiling)

	// Unset sections keep their defaults.
	require.Equal(t, 100, cfg.Display.RecordsPerPage)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chtemp(t)
	t.Setenv("NEEDLE_API_BASEURL", "http://staging.internal:9000")
	t.Setenv("NEEDLE_IDENTITY_APIKEY", "test-api-key")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "http://staging.internal:9000", cfg.API.BaseURL)
	require.Equal(t, "test-api-key", cfg.Identity.APIKey)
}

func TestLoad_RejectsInvalidLimits(t *testing.T) {
	chtemp(t)
	t.Setenv("NEEDLE_FETCH_PAGELIMIT", "0")

	_, err := config.Load()
	require.Error(t, err)
}
