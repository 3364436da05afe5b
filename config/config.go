// Package config loads levels settings from a .env file, an optional TOML file
// and the process environment, and builds the host editor registration stanza.
package config

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/levelsai/levels/api/muna"
	"github.com/morikuni/failure/v2"
	"github.com/pelletier/go-toml/v2"
)

// ErrorCode defines error types for configuration
type ErrorCode string

const (
	ErrEnvFile          ErrorCode = "EnvFile"
	ErrConfigFile       ErrorCode = "ConfigFile"
	ErrMissingAccessKey ErrorCode = "MissingAccessKey"
	ErrInvalidConfig    ErrorCode = "InvalidConfig"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// Environment variables read by Load
const (
	EnvAccessKey = "MUNA_ACCESS_KEY"
	EnvAPIURL    = "MUNA_API_URL"
	EnvDebug     = "LEVELS_DEBUG"
	EnvConfig    = "LEVELS_CONFIG"
)

// DefaultSearchableTags are the predictors search_predictors can return
var DefaultSearchableTags = []string{
	"@fxn/greeting",
	"@cuhk/modnet",
	"@natml/movenet-multipose",
	"@pytorch/resnet-50",
	"@yusuf/yolo-v8-nano",
}

// Config holds runtime settings
type Config struct {
	AccessKey         string   `toml:"-"`
	APIURL            string   `toml:"api_url"`
	SearchableTags    []string `toml:"searchable_tags"`
	OutputDir         string   `toml:"output_dir"`
	CacheDir          string   `toml:"cache_dir"`
	CacheTTL          string   `toml:"cache_ttl"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
	Debug             bool     `toml:"debug"`
}

// LoadOptions locates the files Load reads
type LoadOptions struct {
	// EnvFile is a dotenv file; it must exist when set
	EnvFile string
	// ConfigFile is a TOML file; it must exist when set
	ConfigFile string
}

// Load reads the env file, then the TOML file, then applies environment variables and defaults.
// Variables already present in the environment win over the env file.
func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return nil, failure.Wrap(err, failure.WithCode(ErrEnvFile),
				failure.Message("Failed to load env file"),
				failure.Context{"path": opts.EnvFile})
		}
	}

	cfg := &Config{}
	path, required := opts.ConfigFile, true
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path, required = DefaultConfigPath(), false
	}
	if path != "" {
		if err := readTOML(path, cfg, required); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv(EnvAccessKey); v != "" {
		cfg.AccessKey = v
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.APIURL = v
	}
	if os.Getenv(EnvDebug) != "" {
		cfg.Debug = true
	}

	cfg.applyDefaults()
	return cfg, nil
}

// DefaultConfigPath returns <user config dir>/levels/config.toml, or "" if unknown
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "levels", "config.toml")
}

func readTOML(path string, cfg *Config, required bool) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return failure.Wrap(err, failure.WithCode(ErrConfigFile),
			failure.Message("Failed to read config file"),
			failure.Context{"path": path})
	}
	if err := toml.Unmarshal(b, cfg); err != nil {
		return failure.Wrap(err, failure.WithCode(ErrConfigFile),
			failure.Messagef("Invalid config file: %v", err),
			failure.Context{"path": path})
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.APIURL == "" {
		c.APIURL = muna.DefaultBaseURL
	}
	if len(c.SearchableTags) == 0 {
		c.SearchableTags = append([]string(nil), DefaultSearchableTags...)
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(os.TempDir(), "levels")
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = muna.DefaultRateLimit.RequestsPerSecond
	}
	if c.Burst == 0 {
		c.Burst = muna.DefaultRateLimit.BurstSize
	}
}

// TTL returns the predictor cache TTL, 24h when unset
func (c *Config) TTL() (time.Duration, error) {
	if c.CacheTTL == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 0, failure.Wrap(err, failure.WithCode(ErrInvalidConfig),
			failure.Messagef("Invalid cache_ttl %q", c.CacheTTL))
	}
	return d, nil
}

// Validate checks the settings needed to call the Muna API
func (c *Config) Validate() error {
	if c.AccessKey == "" {
		return failure.New(ErrMissingAccessKey,
			failure.Message("MUNA_ACCESS_KEY is not set. Add it to your .env file and pass --env-file"))
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return failure.New(ErrInvalidConfig,
			failure.Messagef("Invalid Muna API URL %q", c.APIURL))
	}
	if _, err := c.TTL(); err != nil {
		return err
	}
	return nil
}

// RateLimit returns the client rate limit settings
func (c *Config) RateLimit() muna.RateLimitConfig {
	return muna.RateLimitConfig{RequestsPerSecond: c.RequestsPerSecond, BurstSize: c.Burst}
}
