package staydex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kailas-cloud/staydex/internal/db"
	"github.com/kailas-cloud/staydex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/staydex/internal/db/redis"
	"github.com/kailas-cloud/staydex/internal/domain/batch"
	"github.com/kailas-cloud/staydex/internal/domain/search/request"
	"github.com/kailas-cloud/staydex/internal/domain/search/result"
	"github.com/kailas-cloud/staydex/internal/repository/source/postgres"
	"github.com/kailas-cloud/staydex/internal/repository/unitindex"
	healthuc "github.com/kailas-cloud/staydex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/staydex/internal/usecase/indexing"
	searchuc "github.com/kailas-cloud/staydex/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, replaced by fakes in tests.
type searchUseCase interface {
	SearchUnits(ctx context.Context, p request.Params) (result.Page[result.Unit], error)
	SearchPropertiesWithUnits(ctx context.Context, p request.Params) (result.Page[result.Property], error)
}

type indexingUseCase interface {
	OnUnitCreated(ctx context.Context, unitID string) (int, error)
	OnUnitUpdated(ctx context.Context, unitID string) (int, error)
	OnUnitDeleted(ctx context.Context, unitID, propertyID string) (int, error)
	OnPropertyCreated(ctx context.Context, propertyID string) (int, error)
	OnPropertyUpdated(ctx context.Context, propertyID string) (int, error)
	OnPropertyDeleted(ctx context.Context, propertyID string) (int, error)
	OnAvailabilityChanged(ctx context.Context, unitID string) (int, error)
	OnDailyScheduleChanged(ctx context.Context, unitID string) (int, error)
	OnUnitTypeDeleted(ctx context.Context, unitTypeID string) (int, error)
	OnUnitTypeFieldUpdated(
		ctx context.Context, oldName, newName, fieldTypeID string, isPrimaryFilter bool, unitTypeID string,
	) (int, error)
	OnUnitTypeFieldDeleted(ctx context.Context, fieldName, unitTypeID string) (int, error)
	RebuildUnitIndex(ctx context.Context, unitID string) (int, error)
	RebuildPropertyUnitsIndex(ctx context.Context, propertyID string) (int, error)
	RebuildAllIndexes(ctx context.Context, batchSize int) (batch.Report, error)
	CleanupIndexes(ctx context.Context) (indexinguc.CleanupReport, error)
	GetIndexStatistics(ctx context.Context) (unitindex.Statistics, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the staydex SDK entry point.
type Client struct {
	store    db.Store
	pool     *pgxpool.Pool
	search   searchUseCase
	indexing indexingUseCase // nil without a source database
	health   healthUseCase
	obs      *observer
}

// New creates a Client, connects to the index store and, when configured,
// the source database. The provided context is used for the initial
// readiness checks.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 && cfg.driver != "memory" {
		return nil, errors.New("staydex: index store address required (use WithValkey, WithRedis or WithMemory)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("staydex: index store not ready: %w", err)
	}

	var pool *pgxpool.Pool
	if cfg.postgresDSN != "" {
		pool, err = postgres.Connect(ctx, cfg.postgresDSN, cfg.postgresMaxConns)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("staydex: %w", err)
		}
	}

	return wireClient(store, pool, cfg, obs), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("staydex: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("staydex: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, pool *pgxpool.Pool, cfg *clientConfig, obs *observer) *Client {
	// Services log through zap; the SDK reports outcomes through its own
	// slog observer instead.
	logger := zap.NewNop()
	index := unitindex.New(store, unitindex.NewKeys(cfg.keyPrefix))

	c := &Client{store: store, pool: pool, obs: obs}

	var (
		schedules searchuc.ScheduleReader
		source    healthuc.Pinger
	)
	if pool != nil {
		repo := postgres.New(pool, logger)
		schedules, source = repo, repo
		ix := indexinguc.New(index, repo, logger)
		if cfg.horizonDays > 0 {
			ix = ix.WithHorizon(cfg.horizonDays)
		}
		c.indexing = ix
	}

	svc := searchuc.New(index, schedules, logger).WithMinResults(cfg.minResults)
	if cfg.searchTimeout > 0 {
		svc = svc.WithTimeout(cfg.searchTimeout)
	}
	c.search = svc
	c.health = healthuc.New(store, source)
	return c
}

// Close releases all resources.
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks index store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search returns the search service.
func (c *Client) Search() *SearchService {
	return &SearchService{svc: c.search, obs: c.obs}
}

// Index returns the indexing service: lifecycle hooks and maintenance.
func (c *Client) Index() *IndexService {
	return &IndexService{svc: c.indexing, obs: c.obs}
}
