package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Jobs    JobsConfig    `yaml:"jobs"`
	Search  SearchConfig  `yaml:"search"`
	Source  SourceConfig  `yaml:"source"`
	Metrics MetricsConfig `yaml:"metrics"`
	Indexes []IndexConfig `yaml:"indexes"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
	RateLimit       float64       `yaml:"rateLimit"` // requests per second, 0 disables limiting
	RateBurst       int           `yaml:"rateBurst"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// JobsConfig controls the background job worker pool.
type JobsConfig struct {
	MaxWorkers int           `yaml:"maxWorkers"`
	Retention  time.Duration `yaml:"retention"`
}

// SearchConfig controls query execution.
type SearchConfig struct {
	CacheSize int `yaml:"cacheSize"` // per-index result cache entries, 0 disables caching
}

// SourceConfig controls how document collections are fetched.
type SourceConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxAttempts  int           `yaml:"maxAttempts"`
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`
	// AllowLocalFiles lets the HTTP load endpoint read paths on the server.
	// Startup indexes may always use local files.
	AllowLocalFiles bool `yaml:"allowLocalFiles"`
}

// MetricsConfig controls the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// IndexConfig describes an index created and loaded at startup.
type IndexConfig struct {
	IndexSettings `yaml:",inline"`
	Sources       []string `yaml:"sources"` // file paths or http(s) URLs, concatenated in order
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for i := range cfg.Indexes {
		cfg.Indexes[i].ApplyDefaults()
	}
	return cfg, nil
}

// Default returns a Config with defaults suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    10 << 20,
			RateLimit:       0,
			RateBurst:       20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Jobs: JobsConfig{
			MaxWorkers: 4,
			Retention:  24 * time.Hour,
		},
		Search: SearchConfig{
			CacheSize: 1024,
		},
		Source: SourceConfig{
			Timeout:      30 * time.Second,
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks values that would make the application misbehave.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Jobs.MaxWorkers <= 0 {
		return fmt.Errorf("jobs.maxWorkers must be positive, got %d", c.Jobs.MaxWorkers)
	}
	if c.Search.CacheSize < 0 {
		return fmt.Errorf("search.cacheSize cannot be negative, got %d", c.Search.CacheSize)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit cannot be negative, got %v", c.Server.RateLimit)
	}
	seen := make(map[string]bool)
	for _, idx := range c.Indexes {
		if problems := idx.Validate(); len(problems) > 0 {
			return fmt.Errorf("index %q: %s", idx.Name, strings.Join(problems, "; "))
		}
		if seen[idx.Name] {
			return fmt.Errorf("index %q configured more than once", idx.Name)
		}
		seen[idx.Name] = true
	}
	return nil
}

// applyEnvOverrides reads BOOKINDEX_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BOOKINDEX_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BOOKINDEX_RATE_LIMIT"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit = rps
		}
	}
	if v := os.Getenv("BOOKINDEX_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BOOKINDEX_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("BOOKINDEX_JOBS_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Jobs.MaxWorkers = n
		}
	}
	if v := os.Getenv("BOOKINDEX_SEARCH_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.CacheSize = n
		}
	}
	if v := os.Getenv("BOOKINDEX_SOURCE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Source.Timeout = d
		}
	}
	if v := os.Getenv("BOOKINDEX_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
}
