package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/staydex/internal/domain"
	"github.com/kailas-cloud/staydex/internal/domain/search/relax"
	"github.com/kailas-cloud/staydex/internal/domain/search/request"
	"github.com/kailas-cloud/staydex/internal/domain/search/result"
	"github.com/kailas-cloud/staydex/internal/logger"
	"github.com/kailas-cloud/staydex/internal/metrics"
)

// Defaults used when the service is not configured otherwise.
const (
	DefaultMinResults  = 1
	DefaultTimeout     = 5 * time.Second
	DefaultLoadBatch   = 100
	DefaultConcurrency = 8
)

// Search kinds, used as metric labels.
const (
	KindUnits      = "units"
	KindProperties = "properties"
)

// Service answers unit and property searches over the secondary index,
// relaxing constraints when strict search under-returns.
type Service struct {
	index       Index
	source      ScheduleReader
	logger      *zap.Logger
	policy      relax.Policy
	minResults  int
	timeout     time.Duration
	loadBatch   int
	concurrency int
}

// New creates a search service. source may be nil, in which case stays
// outside the indexed horizon are checked against the indexed schedule only.
func New(index Index, source ScheduleReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		index:       index,
		source:      source,
		logger:      logger,
		policy:      relax.DefaultPolicy(),
		minResults:  DefaultMinResults,
		timeout:     DefaultTimeout,
		loadBatch:   DefaultLoadBatch,
		concurrency: DefaultConcurrency,
	}
}

// WithPolicy sets the relaxation ladder.
func (s *Service) WithPolicy(p relax.Policy) *Service {
	s.policy = p
	return s
}

// WithMinResults sets the result count below which the search is relaxed.
func (s *Service) WithMinResults(n int) *Service {
	if n > 0 {
		s.minResults = n
	}
	return s
}

// WithTimeout bounds a whole search, relaxation retries included.
// Zero disables the bound.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d >= 0 {
		s.timeout = d
	}
	return s
}

// WithLoadBatch sets how many documents are fetched per round-trip.
func (s *Service) WithLoadBatch(n int) *Service {
	if n > 0 {
		s.loadBatch = n
	}
	return s
}

// WithConcurrency bounds parallel document loads and schedule reads.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// SearchUnits returns one page of matching units plus the strategy that
// produced them.
func (s *Service) SearchUnits(ctx context.Context, p request.Params) (result.Page[result.Unit], error) {
	start := time.Now()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	a, err := climb(ctx, s, p, s.matchUnits)
	if err != nil {
		return result.Page[result.Unit]{}, s.fail(ctx, KindUnits, err)
	}
	s.observe(ctx, KindUnits, a.strategy, len(a.items), start)
	return result.Paginate(a.items, a.req.Page(), a.req.PageSize(), a.strategy), nil
}

// SearchPropertiesWithUnits returns one page of properties, each carrying
// its matched units. Relaxation counts properties, not units.
func (s *Service) SearchPropertiesWithUnits(
	ctx context.Context, p request.Params,
) (result.Page[result.Property], error) {
	start := time.Now()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	a, err := climb(ctx, s, p, func(ctx context.Context, req *request.Request) ([]result.Property, error) {
		units, err := s.matchUnits(ctx, req)
		if err != nil {
			return nil, err
		}
		return groupByProperty(units), nil
	})
	if err != nil {
		return result.Page[result.Property]{}, s.fail(ctx, KindProperties, err)
	}
	s.observe(ctx, KindProperties, a.strategy, len(a.items), start)
	return result.Paginate(a.items, a.req.Page(), a.req.PageSize(), a.strategy), nil
}

// matchUnits runs the query plan and assembles every surviving unit.
func (s *Service) matchUnits(ctx context.Context, req *request.Request) ([]result.Unit, error) {
	keys, err := buildPlan(s.index, req).execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	if len(keys) == 0 {
		return []result.Unit{}, nil
	}
	return s.assemble(ctx, req, keys)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// fail classifies err, records it and returns it. Any failure once the
// context is done is reported as a timeout rather than a partial result.
func (s *Service) fail(ctx context.Context, kind string, err error) error {
	invalid := errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrInvalidRange)
	if ctxErr := ctx.Err(); ctxErr != nil && !invalid {
		err = fmt.Errorf("%w: %w", domain.ErrSearchTimeout, ctxErr)
	}

	errType := "internal"
	switch {
	case invalid:
		errType = "validation"
	case errors.Is(err, domain.ErrSearchTimeout):
		errType = "timeout"
	}
	metrics.SearchErrorsTotal.WithLabelValues(kind, errType).Inc()

	log := logger.FromContextOr(ctx, s.logger)
	if errType == "internal" {
		log.Error("search failed", zap.String("kind", kind), zap.Error(err))
	} else {
		log.Debug("search rejected", zap.String("kind", kind), zap.String("error_type", errType), zap.Error(err))
	}
	return err
}

func (s *Service) observe(ctx context.Context, kind string, st relax.Strategy, n int, start time.Time) {
	elapsed := time.Since(start)
	metrics.SearchTotal.WithLabelValues(kind, st.Level.String()).Inc()
	metrics.SearchDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	logger.FromContextOr(ctx, s.logger).Debug("search finished",
		zap.String("kind", kind),
		zap.Stringer("level", st.Level),
		zap.Strings("relaxed", st.RelaxedFilters),
		zap.Int("results", n),
		zap.Duration("duration", elapsed),
	)
}
