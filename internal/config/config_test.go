package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/staydex/internal/domain/search/relax"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = []string{}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_MemoryNeedsNoAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "memory"
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "memcached"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	expected := `database.driver must be "valkey", "redis" or "memory", got "memcached"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_LogFormat(t *testing.T) {
	for _, format := range []string{"", "json", "console"} {
		cfg := validConfig()
		cfg.Logging.Format = format
		if err := cfg.Validate(); err != nil {
			t.Errorf("format %q: unexpected error: %v", format, err)
		}
	}

	cfg := validConfig()
	cfg.Logging.Format = "logfmt"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}

func TestValidate_PageSizes(t *testing.T) {
	cfg := validConfig()
	cfg.Search.DefaultPageSize = 200

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for default page size above max")
	}
}

func TestValidate_Relaxation(t *testing.T) {
	tests := []struct {
		name string
		step RelaxationStep
	}{
		{"tolerance above 100", RelaxationStep{PriceTolerancePct: 150}},
		{"negative tolerance", RelaxationStep{PriceTolerancePct: -1}},
		{"negative rating step", RelaxationStep{RatingStep: -0.5}},
		{"negative capacity step", RelaxationStep{CapacityStep: -1}},
		{"shrinking radius", RelaxationStep{RadiusMultiplier: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Relaxation.Moderate = tt.step

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.HasPrefix(err.Error(), "relaxation.moderate") {
				t.Errorf("error %q should name the level", err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != "valkey" {
		t.Errorf("expected Driver=valkey, got %q", cfg.Database.Driver)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Source.MaxConns != 10 {
		t.Errorf("expected MaxConns=10, got %d", cfg.Source.MaxConns)
	}
	if cfg.Search.MinResults != 1 {
		t.Errorf("expected MinResults=1, got %d", cfg.Search.MinResults)
	}
	if cfg.Search.TimeoutMs != 5000 {
		t.Errorf("expected TimeoutMs=5000, got %d", cfg.Search.TimeoutMs)
	}
	if cfg.Search.DefaultPageSize != 20 || cfg.Search.MaxPageSize != 100 {
		t.Errorf("expected page sizes 20/100, got %d/%d", cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)
	}
	if cfg.Relaxation.Minor.PriceTolerancePct != 10 || cfg.Relaxation.Minor.RatingStep != 0.5 {
		t.Errorf("unexpected minor step: %+v", cfg.Relaxation.Minor)
	}
	if !cfg.Relaxation.Major.DropAmenities || !cfg.Relaxation.Major.DropRating {
		t.Errorf("unexpected major step: %+v", cfg.Relaxation.Major)
	}
	if cfg.Indexing.ScheduleHorizonDays != 365 {
		t.Errorf("expected ScheduleHorizonDays=365, got %d", cfg.Indexing.ScheduleHorizonDays)
	}
	if cfg.Indexing.RebuildBatchSize != 200 {
		t.Errorf("expected RebuildBatchSize=200, got %d", cfg.Indexing.RebuildBatchSize)
	}
	if cfg.Storage.KeyPrefix != "staydex:" {
		t.Errorf("expected KeyPrefix='staydex:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:       HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database:   DatabaseConfig{ReadinessTimeout: 15},
		Search:     SearchConfig{MinResults: 5, TimeoutMs: 800},
		Relaxation: RelaxationConfig{Minor: RelaxationStep{PriceTolerancePct: 5}},
		Indexing:   IndexingConfig{ScheduleHorizonDays: 90},
		Storage:    StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Search.MinResults != 5 || cfg.Search.TimeoutMs != 800 {
		t.Errorf("search overridden: %+v", cfg.Search)
	}
	if cfg.Relaxation.Minor != (RelaxationStep{PriceTolerancePct: 5}) {
		t.Errorf("minor step overridden: %+v", cfg.Relaxation.Minor)
	}
	if cfg.Indexing.ScheduleHorizonDays != 90 {
		t.Errorf("expected ScheduleHorizonDays=90, got %d", cfg.Indexing.ScheduleHorizonDays)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestRelaxationPolicy_DefaultsMatchBuiltIn(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if got, want := cfg.Relaxation.Policy(), relax.DefaultPolicy(); got != want {
		t.Errorf("policy = %+v\nwant %+v", got, want)
	}
}

func TestRelaxationPolicy_Percent(t *testing.T) {
	r := RelaxationConfig{Minor: RelaxationStep{PriceTolerancePct: 15, RatingStep: 0.25, CapacityStep: 1}}

	step := r.Policy().Minor
	if step.PriceTolerance != 0.15 || step.RatingDrop != 0.25 || step.CapacityDrop != 1 {
		t.Errorf("minor step = %+v", step)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("STAYDEX_TEST_DSN", "postgres://db/staydex")

	in := "dsn: ${STAYDEX_TEST_DSN}\nport: ${STAYDEX_TEST_UNSET:-8080}\nempty: ${STAYDEX_TEST_UNSET}\n"
	got := string(expandEnvVars([]byte(in)))
	want := "dsn: postgres://db/staydex\nport: 8080\nempty: \n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o750); err != nil {
		t.Fatal(err)
	}
	yml := `http:
  port: ${STAYDEX_TEST_PORT:-9090}
database:
  driver: redis
  addrs: ["localhost:6379"]
source:
  dsn: postgres://localhost/staydex
search:
  min_results: 3
relaxation:
  minor:
    price_tolerance_pct: 15
    rating_step: 0.25
`
	if err := os.WriteFile(filepath.Join(dir, "config", "unittest.yaml"), []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("unittest")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.Database.Driver != "redis" || cfg.Source.DSN != "postgres://localhost/staydex" {
		t.Errorf("database/source = %+v / %+v", cfg.Database, cfg.Source)
	}
	if cfg.Search.MinResults != 3 || cfg.Search.TimeoutMs != 5000 {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Relaxation.Minor.PriceTolerancePct != 15 || cfg.Relaxation.Moderate.PriceTolerancePct != 25 {
		t.Errorf("relaxation = %+v", cfg.Relaxation)
	}
}
