package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmemory/memento/internal/config"
)

func TestDefault_HasSaneDefaults(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 0.95, cfg.Capture.SkipThreshold)
	assert.Equal(t, 3, cfg.Graph.MaxAutoRelations)
	assert.Equal(t, "development", cfg.Server.SecurityMode)
	assert.Equal(t, 6363, cfg.Server.Port)
}

func TestLoad_NoFilesReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Embedding, cfg.Embedding)
}

func TestLoad_ProjectTierOverridesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	projectDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, ".memento"), 0o755))
	configBody := "[storage]\nbackend = \"remote\"\n\n[capture]\nskip_threshold = 0.9\n"
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".memento", "config.toml"), []byte(configBody), 0o644))

	cfg, err := config.Load(projectDir)
	require.NoError(t, err)
	assert.Equal(t, "remote", cfg.Storage.Backend)
	assert.Equal(t, 0.9, cfg.Capture.SkipThreshold)
	// Untouched fields keep their defaults.
	assert.Equal(t, 0.85, cfg.Capture.UpdateThreshold)
}

func TestLoad_LocalOverrideWinsOverProjectTier(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	projectDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, ".memento"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(projectDir, ".memento", "config.toml"),
		[]byte("[storage]\nbackend = \"remote\"\n"),
		0o644,
	))
	require.NoError(t, os.WriteFile(
		filepath.Join(projectDir, ".memento", "config.local.toml"),
		[]byte("[storage]\nbackend = \"sqlite\"\ndata_path = \"/tmp/local-memento\"\n"),
		0o644,
	))

	cfg, err := config.Load(projectDir)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/local-memento", cfg.Storage.DataPath)
}

func TestLoad_WalksUpToFindProjectConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	projectDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, ".memento"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(projectDir, ".memento", "config.toml"),
		[]byte("[llm]\nprovider = \"anthropic\"\n"),
		0o644,
	))

	nested := filepath.Join(projectDir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, err := config.Load(nested)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
}

func TestLoad_HelixTokenEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MEMENTO_HELIX_TOKEN", "sekrit")
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "sekrit", cfg.Helix.Token)
}
