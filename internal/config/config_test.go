package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pricecalc.json")

	cfg := Default()
	cfg.Pricing.FormulaCacheSize = 32
	cfg.Pricing.StrictMinorUnits = true
	cfg.Server.Addr = "127.0.0.1:9000"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricecalc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"output": {"default_format": "markdown"}}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.Output.DefaultFormat)
	assert.Equal(t, 256, cfg.Pricing.FormulaCacheSize)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricecalc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pricing": {"formula_cache_size": -1}}`), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "formula_cache_size")

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PRICECALC_LOG_LEVEL", "debug")
	t.Setenv("PRICECALC_ADDR", ":9999")
	t.Setenv("PRICECALC_CACHE_SIZE", "0")
	t.Setenv("PRICECALC_STRICT_MINOR_UNITS", "true")
	t.Setenv("PRICECALC_FORMAT", "json")
	t.Setenv("PRICECALC_CURRENCY", "eur")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 0, cfg.Pricing.FormulaCacheSize)
	assert.True(t, cfg.Pricing.StrictMinorUnits)
	assert.Equal(t, "json", cfg.Output.DefaultFormat)
	assert.Equal(t, "EUR", cfg.Pricing.DefaultCurrency)
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("PRICECALC_CACHE_SIZE", "many")
	assert.Error(t, Default().ApplyEnv())
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PRICECALC_ADDR=:7000\nPRICECALC_FORMAT=markdown\n"), 0644))

	t.Setenv("PRICECALC_ADDR", ":6000")
	t.Setenv("PRICECALC_FORMAT", "")
	require.NoError(t, os.Unsetenv("PRICECALC_FORMAT"))

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, ":6000", os.Getenv("PRICECALC_ADDR"))
	assert.Equal(t, "markdown", os.Getenv("PRICECALC_FORMAT"))
}
