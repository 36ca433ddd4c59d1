package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sa-retail/strukindex/internal/errors"
)

func TestLoad_DefaultsFromEnvOnly(t *testing.T) {
	// Given: only the base path via env
	base := t.TempDir()
	t.Setenv("STRUKINDEX_BASE_PATH", base)

	// When: loading without a file
	cfg, err := Load("")
	require.NoError(t, err)

	// Then: defaults are applied and data dir is derived
	assert.Equal(t, base, cfg.Storage.BasePath)
	assert.Equal(t, filepath.Join(base, ".strukindex"), cfg.Storage.DataDir)
	assert.Equal(t, time.Hour, cfg.CooldownDuration())
	assert.Equal(t, 1000, cfg.Index.BatchSize)
	assert.Equal(t, 500, cfg.Index.ProgressEvery)
	assert.Equal(t, 200, cfg.Normalize.BatchSize)
}

func TestLoad_FileValues(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(t.TempDir(), "strukindex.yaml")
	yaml := `
version: 1
storage:
  base_path: ` + base + `
index:
  cooldown: 30m
  batch_size: 250
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.CooldownDuration())
	assert.Equal(t, 250, cfg.Index.BatchSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	base := t.TempDir()
	other := t.TempDir()
	path := filepath.Join(t.TempDir(), "strukindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  base_path: "+base+"\n"), 0o644))

	t.Setenv("STRUKINDEX_BASE_PATH", other)
	t.Setenv("STRUKINDEX_COOLDOWN", "5m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, other, cfg.Storage.BasePath)
	assert.Equal(t, 5*time.Minute, cfg.CooldownDuration())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, errors.ErrCodeConfigNotFound, errors.GetCode(err))
}

func TestLoad_BadCooldown(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(t.TempDir(), "strukindex.yaml")
	require.NoError(t, os.WriteFile(path,
		[]byte("storage:\n  base_path: "+base+"\nindex:\n  cooldown: often\n"), 0o644))

	_, err := Load(path)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
}

func TestValidate_BasePathRequired(t *testing.T) {
	cfg := New()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeBasePathAbsent, errors.GetCode(err))
	assert.True(t, errors.IsFatal(err))
}

func TestValidate_BasePathMustExist(t *testing.T) {
	cfg := New()
	cfg.Storage.BasePath = filepath.Join(t.TempDir(), "missing")
	err := cfg.Validate()
	assert.Equal(t, errors.ErrCodeBasePathAbsent, errors.GetCode(err))
}

func TestSaveAndReload(t *testing.T) {
	base := t.TempDir()
	cfg := New()
	cfg.Storage.BasePath = base
	cfg.Index.BatchSize = 42

	path := filepath.Join(t.TempDir(), "cfg", "strukindex.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Index.BatchSize)
	assert.Equal(t, base, loaded.Storage.BasePath)
}
