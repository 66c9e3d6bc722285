package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/staydex/internal/domain/search/relax"
	"github.com/kailas-cloud/staydex/internal/domain/search/request"
	"github.com/kailas-cloud/staydex/internal/logger"
)

// attempt is the outcome of the relaxation ladder.
type attempt[T any] struct {
	items    []T
	req      request.Request
	strategy relax.Strategy
}

// climb walks the relaxation ladder until an attempt yields at least
// minResults items or the terminal level is reached. Zero results never
// produce an error. Levels that would not widen anything are skipped.
// run returns the full, unpaginated result of one attempt.
func climb[T any](
	ctx context.Context, s *Service, p request.Params,
	run func(context.Context, *request.Request) ([]T, error),
) (attempt[T], error) {
	log := logger.FromContextOr(ctx, s.logger)
	for _, level := range relax.Levels {
		params, relaxed := relax.Apply(p, level, s.policy)
		if level != relax.Exact && !level.Terminal() && len(relaxed) == 0 {
			continue
		}

		req, err := request.New(params)
		if err != nil {
			if level == relax.Exact {
				return attempt[T]{}, err
			}
			return attempt[T]{}, fmt.Errorf("relax to %s: %w", level, err)
		}

		items, err := run(ctx, &req)
		if err != nil {
			return attempt[T]{}, err
		}
		if len(items) >= s.minResults || level.Terminal() {
			return attempt[T]{items: items, req: req, strategy: relax.NewStrategy(level, relaxed)}, nil
		}
		log.Debug("search under-returned, relaxing",
			zap.Stringer("level", level),
			zap.Int("results", len(items)),
			zap.Int("min_results", s.minResults),
		)
	}
	// relax.Levels ends with the terminal level.
	return attempt[T]{}, fmt.Errorf("relaxation ladder exhausted")
}
