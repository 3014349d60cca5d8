package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv  = "CINESCANNER_CONFIG"
	databasePathEnv = "CINESCANNER_DB_PATH"
	logLevelEnv    = "CINESCANNER_LOG_LEVEL"
	headlessEnv    = "CINESCANNER_HEADLESS"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	IMDb     SourceConfig   `yaml:"imdb"`
	Rotten   SourceConfig   `yaml:"rottenTomatoes"`
	Browser  BrowserConfig  `yaml:"browser"`
	Scrape   ScrapeConfig   `yaml:"scrape"`
}

// DatabaseConfig describes the SQLite data file location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig selects console log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SourceConfig tunes one source's politeness and matching behavior.
type SourceConfig struct {
	BaseURL          string  `yaml:"baseUrl"`
	RateLimitSeconds float64 `yaml:"rateLimitSeconds"`
	FuzzyThreshold   float64 `yaml:"fuzzyThreshold"`
	FetchTimeout     int     `yaml:"fetchTimeoutSeconds"`
	ElementTimeout   int     `yaml:"elementTimeoutSeconds"`
	RetryAttempts    int     `yaml:"retryAttempts"`
}

// BrowserConfig controls the headless Chrome session owner.
type BrowserConfig struct {
	Headless        bool `yaml:"headless"`
	RestartAttempts int  `yaml:"restartAttempts"`
}

// ScrapeConfig bounds the per-movie collection workload.
type ScrapeConfig struct {
	MaxReviews      int `yaml:"maxReviews"`
	MinReviewLength int `yaml:"minReviewLength"`
	CommitBatchSize int `yaml:"commitBatchSize"`
}

// RateLimit returns the mandatory inter-request delay for the source.
func (s SourceConfig) RateLimit() time.Duration {
	return time.Duration(s.RateLimitSeconds * float64(time.Second))
}

// FetchTimeoutDuration bounds a single document fetch.
func (s SourceConfig) FetchTimeoutDuration() time.Duration {
	return time.Duration(s.FetchTimeout) * time.Second
}

// ElementTimeoutDuration bounds a wait-for-element condition.
func (s SourceConfig) ElementTimeoutDuration() time.Duration {
	return time.Duration(s.ElementTimeout) * time.Second
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(headlessEnv); v == "false" || v == "0" {
		c.Browser.Headless = false
	}
}

func mergeConfig(base, override Config) Config {
	if override.Database.Path != "" {
		base.Database = override.Database
	}
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	base.IMDb = mergeSource(base.IMDb, override.IMDb)
	base.Rotten = mergeSource(base.Rotten, override.Rotten)
	if override.Browser.RestartAttempts > 0 {
		base.Browser.RestartAttempts = override.Browser.RestartAttempts
	}
	if override.Scrape.MaxReviews > 0 {
		base.Scrape.MaxReviews = override.Scrape.MaxReviews
	}
	if override.Scrape.MinReviewLength > 0 {
		base.Scrape.MinReviewLength = override.Scrape.MinReviewLength
	}
	if override.Scrape.CommitBatchSize > 0 {
		base.Scrape.CommitBatchSize = override.Scrape.CommitBatchSize
	}
	return base
}

func mergeSource(base, override SourceConfig) SourceConfig {
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.RateLimitSeconds > 0 {
		base.RateLimitSeconds = override.RateLimitSeconds
	}
	if override.FuzzyThreshold > 0 {
		base.FuzzyThreshold = override.FuzzyThreshold
	}
	if override.FetchTimeout > 0 {
		base.FetchTimeout = override.FetchTimeout
	}
	if override.ElementTimeout > 0 {
		base.ElementTimeout = override.ElementTimeout
	}
	if override.RetryAttempts > 0 {
		base.RetryAttempts = override.RetryAttempts
	}
	return base
}

func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Path: "data/cinescanner.db"},
		Logging:  LoggingConfig{Level: "info"},
		IMDb: SourceConfig{
			BaseURL:          "https://www.imdb.com",
			RateLimitSeconds: 2.0,
			FuzzyThreshold:   0.7,
			FetchTimeout:     30,
			RetryAttempts:    3,
		},
		Rotten: SourceConfig{
			BaseURL:          "https://www.rottentomatoes.com",
			RateLimitSeconds: 3.0,
			FuzzyThreshold:   0.7,
			FetchTimeout:     30,
			ElementTimeout:   15,
			RetryAttempts:    3,
		},
		Browser: BrowserConfig{Headless: true, RestartAttempts: 3},
		Scrape: ScrapeConfig{
			MaxReviews:      50,
			MinReviewLength: 20,
			CommitBatchSize: 100,
		},
	}
}
