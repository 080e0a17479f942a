package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "core.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	return path
}

func TestLoadCoreAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `{"databaseUrl": "postgres://localhost/tx"}`)

	cfg, err := LoadCore(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 162, cfg.TrapPort)
	assert.Equal(t, 10162, cfg.TrapFallbackPort)
	assert.Equal(t, "attached_assets", cfg.AssetsDir)
	assert.Equal(t, 10*time.Second, time.Duration(cfg.DefaultPollInterval))
	assert.Equal(t, 90*24*time.Hour, time.Duration(cfg.RetentionWindow))
}

func TestLoadCoreRejectsMissingDatabaseURL(t *testing.T) {
	path := writeConfigFile(t, `{}`)

	_, err := LoadCore(path)
	assert.Error(t, err)
}

func TestLoadCoreEnvSatisfiesMissingDatabaseURL(t *testing.T) {
	path := writeConfigFile(t, `{}`)

	t.Setenv("DATABASE_URL", "postgres://localhost/from-env")

	cfg, err := LoadCore(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/from-env", cfg.DatabaseURL)
}

func TestLoadCoreEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `{"databaseUrl": "postgres://localhost/tx", "trapPort": 1620}`)

	t.Setenv("SNMP_TRAP_PORT", "1621")

	cfg, err := LoadCore(path)
	require.NoError(t, err)
	assert.Equal(t, 1621, cfg.TrapPort)
}

func TestLoadCoreMissingFile(t *testing.T) {
	_, err := LoadCore(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadCoreInvalidJSON(t *testing.T) {
	path := writeConfigFile(t, `{not valid json`)

	_, err := LoadCore(path)
	assert.Error(t, err)
}

func TestDurationUnmarshalsFromStringAndNumber(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"5s"`), &d))
	assert.Equal(t, 5*time.Second, time.Duration(d))

	require.NoError(t, json.Unmarshal([]byte(`1000000000`), &d))
	assert.Equal(t, time.Second, time.Duration(d))

	assert.Error(t, json.Unmarshal([]byte(`"not-a-duration"`), &d))
}
