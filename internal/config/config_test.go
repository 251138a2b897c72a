package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_DirectModeRequiresDSN(t *testing.T) {
	cfg := CAGConfig{Mode: ModeDirect, Context: ContextConfig{MaxContextTokens: 128000}}
	err := cfg.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "database.dsn", cfgErr.Field)
}

func TestValidate_ToolModeRequiresEndpoint(t *testing.T) {
	cfg := CAGConfig{Mode: ModeTool, Context: ContextConfig{MaxContextTokens: 128000}}
	err := cfg.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "tool.endpoint", cfgErr.Field)
}

func TestValidate_UnknownModeIsRejected(t *testing.T) {
	cfg := CAGConfig{Mode: "bogus", Context: ContextConfig{MaxContextTokens: 128000}}
	err := cfg.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "mode", cfgErr.Field)
}

func TestValidate_PriorityThresholdMustBeUnitInterval(t *testing.T) {
	cfg := CAGConfig{
		Mode:     ModeDirect,
		Database: DatabaseConfig{DSN: "postgres://x"},
		Cache:    CacheConfig{PriorityThreshold: 1.5},
		Context:  ContextConfig{MaxContextTokens: 128000},
	}
	err := cfg.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "cache.priority_threshold", cfgErr.Field)
}

func TestValidate_MaxContextTokensMustBePositive(t *testing.T) {
	cfg := CAGConfig{
		Mode:     ModeDirect,
		Database: DatabaseConfig{DSN: "postgres://x"},
		Context:  ContextConfig{MaxContextTokens: 0},
	}
	err := cfg.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "context.max_context_tokens", cfgErr.Field)
}

func TestValidate_ValidDirectConfigPasses(t *testing.T) {
	cfg := CAGConfig{
		Mode:     ModeDirect,
		Database: DatabaseConfig{DSN: "postgres://x"},
		Cache:    CacheConfig{PriorityThreshold: 0.3},
		Context:  ContextConfig{MaxContextTokens: 128000},
	}
	assert.NoError(t, cfg.Validate())
}

func TestLoad_AppliesDefaultsWhenNoFileOrEnv(t *testing.T) {
	t.Setenv("CAG_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("CAG_DATABASE_DSN", "postgres://default-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ModeDirect, cfg.Mode)
	assert.Equal(t, 0.3, cfg.Cache.PriorityThreshold)
	assert.Equal(t, 100, cfg.Cache.MaxItems)
	assert.Equal(t, 128000, cfg.Context.MaxContextTokens)
}

func TestLoad_YAMLFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cag.yaml")
	yaml := `
mode: direct
database:
  dsn: postgres://from-file
cache:
  priority_threshold: 0.5
context:
  max_context_tokens: 64000
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CAG_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-file", cfg.Database.DSN)
	assert.Equal(t, 0.5, cfg.Cache.PriorityThreshold)
	assert.Equal(t, 64000, cfg.Context.MaxContextTokens)
}

func TestLoad_EnvVarOverridesYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cag.yaml")
	yaml := `
mode: direct
database:
  dsn: postgres://from-file
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CAG_CONFIG_FILE", path)
	t.Setenv("CAG_DATABASE_DSN", "postgres://from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-env", cfg.Database.DSN)
}

func TestLoad_MissingRequiredFieldFailsValidation(t *testing.T) {
	t.Setenv("CAG_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("CAG_MODE", "tool")
	t.Setenv("CAG_TOOL_ENDPOINT", "")

	_, err := Load()
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
