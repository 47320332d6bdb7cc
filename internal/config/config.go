// Package config loads server configuration from an optional YAML file
// and the environment. Environment variables override file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/tragent/account-engine/internal/automaton"
	"github.com/tragent/account-engine/internal/store"
)

var ErrInvalid = errors.New("config: invalid value")

// Config is the resolved server configuration.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	StateDir    string
	StateKey    string
	CacheTTL    time.Duration

	ConwayAPIURL string
	ConwayAPIKey string

	MaxPerToken      decimal.Decimal // 0 disables
	MaxTotalExposure decimal.Decimal // 0 disables
}

// file mirrors the YAML layout.
type file struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	StateDir    string `yaml:"state_dir"`
	StateKey    string `yaml:"state_key"`
	CacheTTL    string `yaml:"cache_ttl"`

	Conway struct {
		APIURL string `yaml:"api_url"`
		APIKey string `yaml:"api_key"`
	} `yaml:"conway"`

	Limits struct {
		MaxPerToken      string `yaml:"max_per_token"`
		MaxTotalExposure string `yaml:"max_total_exposure"`
	} `yaml:"limits"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:         "8080",
		StateKey:     store.DefaultStateKey,
		CacheTTL:     30 * time.Second,
		ConwayAPIURL: automaton.DefaultBaseURL,

		MaxPerToken:      decimal.Zero,
		MaxTotalExposure: decimal.Zero,
	}
}

// Load reads path (if non-empty) and then applies environment overrides
// looked up through getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	var f file
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &f); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	override := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	override(&f.Port, "PORT")
	override(&f.DatabaseURL, "DATABASE_URL")
	override(&f.RedisURL, "REDIS_URL")
	override(&f.StateDir, "STATE_DIR")
	override(&f.StateKey, "STATE_KEY")
	override(&f.CacheTTL, "CACHE_TTL")
	override(&f.Conway.APIURL, "CONWAY_API_URL")
	override(&f.Conway.APIKey, "CONWAY_API_KEY")
	override(&f.Limits.MaxPerToken, "MAX_PER_TOKEN")
	override(&f.Limits.MaxTotalExposure, "MAX_TOTAL_EXPOSURE")

	cfg := Defaults()
	setIf(&cfg.Port, f.Port)
	setIf(&cfg.DatabaseURL, f.DatabaseURL)
	setIf(&cfg.RedisURL, f.RedisURL)
	setIf(&cfg.StateDir, f.StateDir)
	setIf(&cfg.StateKey, f.StateKey)
	setIf(&cfg.ConwayAPIURL, f.Conway.APIURL)
	setIf(&cfg.ConwayAPIKey, f.Conway.APIKey)

	if f.CacheTTL != "" {
		ttl, err := time.ParseDuration(f.CacheTTL)
		if err != nil || ttl <= 0 {
			return Config{}, fmt.Errorf("%w: cache_ttl %q", ErrInvalid, f.CacheTTL)
		}
		cfg.CacheTTL = ttl
	}

	var err error
	if cfg.MaxPerToken, err = parseCap("max_per_token", f.Limits.MaxPerToken); err != nil {
		return Config{}, err
	}
	if cfg.MaxTotalExposure, err = parseCap("max_total_exposure", f.Limits.MaxTotalExposure); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func parseCap(name, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil || v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s %q", ErrInvalid, name, raw)
	}
	return v, nil
}
