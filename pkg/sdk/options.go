package staydex

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
	driver    string // "valkey", "redis" or "memory"
	addrs     []string
	password  string
	keyPrefix string

	postgresDSN      string
	postgresMaxConns int32

	minResults    int
	searchTimeout time.Duration
	horizonDays   int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemory keeps the index in process. The index is lost on Close;
// intended for tests and local experiments.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
		c.addrs = nil
	})
}

// WithKeyPrefix sets the prefix of every index key. Defaults to "staydex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithPostgres connects the source-of-truth database, enabling lifecycle
// hooks and maintenance. Without it the client is search-only.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.postgresDSN = dsn
	})
}

// WithPostgresMaxConns bounds the source database pool.
func WithPostgresMaxConns(n int32) Option {
	return optionFunc(func(c *clientConfig) {
		c.postgresMaxConns = n
	})
}

// WithMinResults sets the result count below which a search is relaxed.
// Default: 1.
func WithMinResults(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.minResults = n
	})
}

// WithSearchTimeout bounds each search, relaxation retries included.
// Default: 5s.
func WithSearchTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.searchTimeout = d
	})
}

// WithScheduleHorizon sets how many days of schedule are indexed per unit.
// Default: 365.
func WithScheduleHorizon(days int) Option {
	return optionFunc(func(c *clientConfig) {
		c.horizonDays = days
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithMetrics registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithMetrics(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
