package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the bimlink server configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Host     HostConfig     `yaml:"host"`
	Cache    CacheConfig    `yaml:"cache"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Planner  PlannerConfig  `yaml:"planner"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Database drivers.
const (
	DriverNone  = "none"
	DriverRedis = "redis"
)

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // none, redis (default: none)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a store is configured.
func (d DatabaseConfig) Enabled() bool { return d.Driver == DriverRedis }

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// HostConfig describes the in-process host.
type HostConfig struct {
	ModelPath string         `yaml:"model_path"`
	QueueSize int            `yaml:"queue_size"`
	Timeouts  map[string]int `yaml:"timeouts"` // command name -> seconds
}

// CommandTimeouts converts the per-command overrides to durations.
func (h HostConfig) CommandTimeouts() map[string]time.Duration {
	if len(h.Timeouts) == 0 {
		return nil
	}
	out := make(map[string]time.Duration, len(h.Timeouts))
	for name, sec := range h.Timeouts {
		out[name] = time.Duration(sec) * time.Second
	}
	return out
}

// CacheConfig holds query cache settings.
type CacheConfig struct {
	QueryTTLSec *int `yaml:"query_ttl_sec"` // 0 disables the cache
}

// TTL returns the query cache lifetime. Zero means disabled.
func (c CacheConfig) TTL() time.Duration {
	if c.QueryTTLSec == nil {
		return 0
	}
	return time.Duration(*c.QueryTTLSec) * time.Second
}

// SnapshotConfig controls document persistence.
type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
	Reset   bool   `yaml:"reset"` // discard the saved snapshot and start from the seed model
}

// PlannerConfig holds the language model planner settings.
type PlannerConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Enabled reports whether the planner has credentials.
func (p PlannerConfig) Enabled() bool { return p.APIKey != "" }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes a YAML configuration, expanding ${VAR} references.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// long enough for get_current_view_elements
		c.HTTP.WriteTimeoutSec = 75
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverNone
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "bimlink:"
	}
	if c.Host.ModelPath == "" {
		c.Host.ModelPath = "config/models/sample.yaml"
	}
	if c.Host.QueueSize <= 0 {
		c.Host.QueueSize = 64
	}
	if c.Cache.QueryTTLSec == nil {
		ttl := 300
		c.Cache.QueryTTLSec = &ttl
	}
	if c.Snapshot.Name == "" {
		c.Snapshot.Name = "default"
	}
	if c.Planner.Model == "" {
		c.Planner.Model = "gpt-4o-mini"
	}
	if c.Planner.TimeoutSec <= 0 {
		c.Planner.TimeoutSec = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverNone:
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return errors.New("database.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("database.driver must be \"none\" or \"redis\", got %q", c.Database.Driver)
	}
	if c.Cache.QueryTTLSec != nil && *c.Cache.QueryTTLSec < 0 {
		return fmt.Errorf("cache.query_ttl_sec must not be negative, got %d", *c.Cache.QueryTTLSec)
	}
	if c.Snapshot.Enabled && !c.Database.Enabled() {
		return errors.New("snapshot.enabled requires a database")
	}
	for name, sec := range c.Host.Timeouts {
		if sec <= 0 {
			return fmt.Errorf("host.timeouts.%s must be positive, got %d", name, sec)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := env + ".yaml"

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
