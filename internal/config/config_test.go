package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caderidris/senseurcity-etl/internal/zenodo"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, DefaultZipURL, cfg.ZipURL)
	assert.Equal(t, "senseurcity.zip", cfg.ZipPath)
	assert.Equal(t, "sqlite:senseurcity.db", cfg.DBURL)
	assert.Equal(t, "measurement", cfg.Schema)
	assert.False(t, cfg.Force)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SENSEURCITY_DB_URL", "postgres://etl@localhost/senseurcity")
	t.Setenv("SENSEURCITY_BATCH_SIZE", "250")
	t.Setenv("SENSEURCITY_LOG_FORMAT", "text")
	t.Setenv("SENSEURCITY_VERBOSE", "true")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "postgres://etl@localhost/senseurcity", cfg.DBURL)
	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.True(t, cfg.Verbose)
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("SENSEURCITY_BATCH_SIZE", "0")
	_, err := Load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch-size")
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	t.Setenv("SENSEURCITY_LOG_FORMAT", "yaml")
	_, err := Load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log-format")
}

func TestLoad_MissingDBURL(t *testing.T) {
	v := viper.New()
	v.Set("db-url", "")
	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db-url")
}

func TestCities_NoneSelectedMeansAll(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, zenodo.AllCities(), cfg.Cities())
}

func TestCities_SubsetSelected(t *testing.T) {
	cfg := &Config{Oslo: true}
	assert.Equal(t, zenodo.Oslo, cfg.Cities())

	cfg = &Config{Antwerp: true, Zagreb: true}
	assert.True(t, cfg.Cities().Has(zenodo.Antwerp))
	assert.True(t, cfg.Cities().Has(zenodo.Zagreb))
	assert.False(t, cfg.Cities().Has(zenodo.Oslo))
}
