package bimlink

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	modelPath string
	model     []byte

	addrs     []string
	password  string
	keyPrefix string
	cacheTTL  time.Duration

	queueSize int
	timeouts  map[string]time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithModelFile loads the seed model from a YAML file.
func WithModelFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.modelPath = path
		c.model = nil
	})
}

// WithModel loads the seed model from YAML bytes.
func WithModel(yaml []byte) Option {
	return optionFunc(func(c *clientConfig) {
		c.model = yaml
		c.modelPath = ""
	})
}

// WithRedis connects a Redis (or Valkey) server and enables the filter
// result cache.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithCacheTTL sets the filter cache lifetime. Zero disables the cache.
// Default: 5 minutes. Has no effect without WithRedis.
func WithCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithKeyPrefix sets the namespace for cache keys. Default: "bimlink:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithQueueSize sets the capacity of the host UI callback queue.
func WithQueueSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.queueSize = n
	})
}

// WithTimeout overrides how long callers wait for the named command.
func WithTimeout(command string, d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		if c.timeouts == nil {
			c.timeouts = make(map[string]time.Duration)
		}
		c.timeouts[command] = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
