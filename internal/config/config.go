// Package config assembles run settings from flags and environment
// variables. Every flag is also reachable as SENSEURCITY_<FLAG> with dashes
// replaced by underscores.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/caderidris/senseurcity-etl/internal/zenodo"
)

// DefaultZipURL points at the published SensEURCity dataset archive.
const DefaultZipURL = "https://zenodo.org/records/7256406/files/senseurcity_data_v02.zip"

const maxBatchSize = 50000

// Config holds all run settings.
type Config struct {
	ZipURL  string
	ZipPath string

	DBURL  string
	Schema string

	Antwerp bool
	Oslo    bool
	Zagreb  bool

	Force     bool
	Verbose   bool
	BatchSize int

	HTTPAddr        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// SetDefaults registers every setting's default on v. Call before binding
// command-line flags so flag values take precedence.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("zip-url", DefaultZipURL)
	v.SetDefault("zip-path", "senseurcity.zip")
	v.SetDefault("db-url", "sqlite:senseurcity.db")
	v.SetDefault("schema", "measurement")
	v.SetDefault("antwerp", false)
	v.SetDefault("oslo", false)
	v.SetDefault("zagreb", false)
	v.SetDefault("force", false)
	v.SetDefault("verbose", false)
	v.SetDefault("batch-size", 1000)
	v.SetDefault("http-addr", ":8080")
	v.SetDefault("log-format", "json")
	v.SetDefault("shutdown-timeout", "10s")
}

// Load resolves the configuration from v, applying environment overrides and
// validating the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("SENSEURCITY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		ZipURL:          v.GetString("zip-url"),
		ZipPath:         v.GetString("zip-path"),
		DBURL:           v.GetString("db-url"),
		Schema:          v.GetString("schema"),
		Antwerp:         v.GetBool("antwerp"),
		Oslo:            v.GetBool("oslo"),
		Zagreb:          v.GetBool("zagreb"),
		Force:           v.GetBool("force"),
		Verbose:         v.GetBool("verbose"),
		BatchSize:       v.GetInt("batch-size"),
		HTTPAddr:        v.GetString("http-addr"),
		LogFormat:       v.GetString("log-format"),
		ShutdownTimeout: v.GetDuration("shutdown-timeout"),
	}

	if cfg.ZipURL == "" && cfg.ZipPath == "" {
		return nil, errors.New("one of zip-url or zip-path is required")
	}
	if cfg.DBURL == "" {
		return nil, errors.New("db-url is required")
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > maxBatchSize {
		return nil, fmt.Errorf("batch-size must be between 1 and %d", maxBatchSize)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("log-format must be json or text, got %q", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout <= 0 {
		return nil, errors.New("shutdown-timeout must be positive")
	}

	return cfg, nil
}

// Cities returns the selected city set. Selecting no city means all of them,
// so a bare invocation processes the whole archive.
func (c *Config) Cities() zenodo.Cities {
	var cities zenodo.Cities
	if c.Antwerp {
		cities |= zenodo.Antwerp
	}
	if c.Oslo {
		cities |= zenodo.Oslo
	}
	if c.Zagreb {
		cities |= zenodo.Zagreb
	}
	if cities == 0 {
		return zenodo.AllCities()
	}
	return cities
}
