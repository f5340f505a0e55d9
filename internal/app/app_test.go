package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RaihanArvi/producthunt-scraper/internal/app"
	"github.com/RaihanArvi/producthunt-scraper/internal/config"
)

func baseConfig(t *testing.T, port int) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Scraper: config.ScraperConfig{StartDate: "2024-05-01"},
		Sinks: config.SinksConfig{
			Warehouse: "noop",
		},
		Snapshot:   config.SnapshotConfig{Provider: "noop"},
		Checkpoint: config.CheckpointConfig{Path: filepath.Join(dir, "checkpoint.json")},
		Server:     config.ServerConfig{Port: port},
		Logging:    config.LoggingConfig{Development: false},
	}
}

func TestNew_NoopProviders(t *testing.T) {
	cfg := baseConfig(t, 19213)
	require.NoError(t, cfg.Validate())

	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Logger())
	require.NotNil(t, a.Session())
	require.NotNil(t, a.Snapshots())
	require.NotNil(t, a.Checkpoint())
	require.Len(t, a.Sinks(), 1)
	require.Equal(t, "noop", a.Sinks()[0].Name())
}

func TestNew_OptionalFileSink(t *testing.T) {
	cfg := baseConfig(t, 19214)
	cfg.Sinks.File.Enabled = true
	cfg.Sinks.File.Path = filepath.Join(t.TempDir(), "products.json")

	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	require.Len(t, a.Sinks(), 2)
	require.Equal(t, "file", a.Sinks()[1].Name())
}

func TestNew_LocalSnapshotFailureAborts(t *testing.T) {
	cfg := baseConfig(t, 19215)
	cfg.Snapshot.Provider = "local"
	cfg.Snapshot.LocalDir = ""

	_, err := app.New(context.Background(), cfg)
	require.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	a, err := app.New(context.Background(), baseConfig(t, 19216))
	require.NoError(t, err)

	a.Close()
	a.Close()
}
