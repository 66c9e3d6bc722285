package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/staydex/internal/domain/search/relax"
)

// Config holds the staydex service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Source     SourceConfig     `yaml:"source"`
	Search     SearchConfig     `yaml:"search"`
	Relaxation RelaxationConfig `yaml:"relaxation"`
	Indexing   IndexingConfig   `yaml:"indexing"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json, console (default: determined by env)
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

// DatabaseConfig holds index store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SourceConfig holds the source-of-truth database settings. An empty DSN
// runs the service search-only: lifecycle hooks and maintenance are disabled.
type SourceConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

// SearchConfig holds query execution settings.
type SearchConfig struct {
	MinResults      int `yaml:"min_results"`
	TimeoutMs       int `yaml:"timeout_ms"`
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
	LoadBatchSize   int `yaml:"load_batch_size"`
	Concurrency     int `yaml:"concurrency"`
}

// RelaxationConfig holds the widening applied at each intermediate level.
// Levels left empty use the built-in ladder.
type RelaxationConfig struct {
	Minor    RelaxationStep `yaml:"minor"`
	Moderate RelaxationStep `yaml:"moderate"`
	Major    RelaxationStep `yaml:"major"`
}

// RelaxationStep is the widening of one level, relative to the original request.
type RelaxationStep struct {
	PriceTolerancePct float64 `yaml:"price_tolerance_pct"`
	RatingStep        float64 `yaml:"rating_step"`
	DropRating        bool    `yaml:"drop_rating"`
	RadiusMultiplier  float64 `yaml:"radius_multiplier"`
	CapacityStep      int     `yaml:"capacity_step"`
	DropServices      bool    `yaml:"drop_services"`
	DropAmenities     bool    `yaml:"drop_amenities"`
	DropFields        bool    `yaml:"drop_fields"`
	DropText          bool    `yaml:"drop_text"`
	DropPropertyType  bool    `yaml:"drop_property_type"`
}

// IsZero reports whether the step was left unset.
func (s RelaxationStep) IsZero() bool { return s == RelaxationStep{} }

// Policy converts the configured levels into a relaxation policy.
func (r RelaxationConfig) Policy() relax.Policy {
	return relax.Policy{
		Minor:    r.Minor.step(),
		Moderate: r.Moderate.step(),
		Major:    r.Major.step(),
	}
}

func (s RelaxationStep) step() relax.Step {
	return relax.Step{
		RatingDrop:       s.RatingStep,
		DropRating:       s.DropRating,
		PriceTolerance:   s.PriceTolerancePct / 100,
		RadiusMultiplier: s.RadiusMultiplier,
		CapacityDrop:     s.CapacityStep,
		DropServices:     s.DropServices,
		DropAmenities:    s.DropAmenities,
		DropFields:       s.DropFields,
		DropText:         s.DropText,
		DropPropertyType: s.DropPropertyType,
	}
}

// IndexingConfig holds index writer settings.
type IndexingConfig struct {
	ScheduleHorizonDays int `yaml:"schedule_horizon_days"`
	RebuildBatchSize    int `yaml:"rebuild_batch_size"`
	Concurrency         int `yaml:"concurrency"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Source.MaxConns <= 0 {
		c.Source.MaxConns = 10
	}
	if c.Search.MinResults <= 0 {
		c.Search.MinResults = 1
	}
	if c.Search.TimeoutMs <= 0 {
		c.Search.TimeoutMs = 5000
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 20
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if c.Search.LoadBatchSize <= 0 {
		c.Search.LoadBatchSize = 100
	}
	if c.Search.Concurrency <= 0 {
		c.Search.Concurrency = 8
	}
	c.Relaxation.applyDefaults()
	if c.Indexing.ScheduleHorizonDays <= 0 {
		c.Indexing.ScheduleHorizonDays = 365
	}
	if c.Indexing.RebuildBatchSize <= 0 {
		c.Indexing.RebuildBatchSize = 200
	}
	if c.Indexing.Concurrency <= 0 {
		c.Indexing.Concurrency = 8
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "staydex:"
	}
}

func (r *RelaxationConfig) applyDefaults() {
	if r.Minor.IsZero() {
		r.Minor = RelaxationStep{PriceTolerancePct: 10, RatingStep: 0.5, RadiusMultiplier: 1.5}
	}
	if r.Moderate.IsZero() {
		r.Moderate = RelaxationStep{
			PriceTolerancePct: 25, RatingStep: 1, RadiusMultiplier: 2,
			CapacityStep: 1, DropServices: true,
		}
	}
	if r.Major.IsZero() {
		r.Major = RelaxationStep{
			PriceTolerancePct: 50, DropRating: true, RadiusMultiplier: 3, CapacityStep: 2,
			DropServices: true, DropAmenities: true, DropFields: true, DropText: true, DropPropertyType: true,
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "valkey", "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be \"valkey\", \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format must be \"json\" or \"console\", got %q", c.Logging.Format)
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size %d exceeds search.max_page_size %d",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	for name, s := range map[string]RelaxationStep{
		"minor": c.Relaxation.Minor, "moderate": c.Relaxation.Moderate, "major": c.Relaxation.Major,
	} {
		if s.PriceTolerancePct < 0 || s.PriceTolerancePct > 100 {
			return fmt.Errorf("relaxation.%s.price_tolerance_pct must be between 0 and 100, got %v",
				name, s.PriceTolerancePct)
		}
		if s.RatingStep < 0 || s.CapacityStep < 0 {
			return fmt.Errorf("relaxation.%s: rating_step and capacity_step must not be negative", name)
		}
		if s.RadiusMultiplier != 0 && s.RadiusMultiplier < 1 {
			return fmt.Errorf("relaxation.%s.radius_multiplier must be at least 1, got %v", name, s.RadiusMultiplier)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

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
