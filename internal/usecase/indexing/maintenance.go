package indexing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/staydex/internal/domain"
	"github.com/kailas-cloud/staydex/internal/domain/batch"
	"github.com/kailas-cloud/staydex/internal/domain/catalog"
	"github.com/kailas-cloud/staydex/internal/logger"
	"github.com/kailas-cloud/staydex/internal/metrics"
	"github.com/kailas-cloud/staydex/internal/repository/unitindex"
)

// CleanupReport counts what CleanupIndexes removed.
type CleanupReport struct {
	OrphanDocuments int `json:"orphan_documents"`
	unitindex.CleanupResult
}

// RebuildAllIndexes rebuilds the document of every indexable unit, reading
// the source in pages of batchSize. Item failures are collected in the
// report; the error is reserved for failures that stop the walk.
func (s *Service) RebuildAllIndexes(ctx context.Context, batchSize int) (batch.Report, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	start := s.now()
	props := newPropertyCache(s.source)

	var rep batch.Report
	var err error
	after := ""
	for {
		var units []catalog.Unit
		units, err = s.nextPage(ctx, after, batchSize)
		if err != nil || len(units) == 0 {
			break
		}
		outs := s.fanOut(ctx, len(units), func(ctx context.Context, i int) outcome {
			return s.rebuild(ctx, units[i], props)
		})
		for _, o := range outs {
			rep.Add(o.Result)
		}
		if len(units) < batchSize {
			break
		}
		after = units[len(units)-1].ID
	}
	if err != nil {
		_, err = s.finish(ctx, HookRebuildAll, rep.Affected(), err)
		return rep, err
	}

	if err := s.index.SetMeta(ctx, map[string]string{
		unitindex.MetaLastRebuild:      start.UTC().Format(time.RFC3339),
		unitindex.MetaDocumentsRebuilt: strconv.Itoa(rep.Indexed),
	}); err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("record rebuild metadata", zap.Error(err))
	}

	logger.FromContextOr(ctx, s.logger).Info("Index rebuild finished",
		zap.Int("indexed", rep.Indexed),
		zap.Int("removed", rep.Removed),
		zap.Int("failed", rep.Failed),
		zap.Duration("duration", s.now().Sub(start)),
	)
	metrics.ObserveIndexEvent(HookRebuildAll, rep.Affected(), nil)
	return rep, nil
}

func (s *Service) nextPage(ctx context.Context, after string, limit int) ([]catalog.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	units, err := s.source.ListIndexableUnits(ctx, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list units after %q: %w", after, err)
	}
	return units, nil
}

// CleanupIndexes removes documents that no indexable unit backs, then drops
// index references to documents that no longer exist.
func (s *Service) CleanupIndexes(ctx context.Context) (CleanupReport, error) {
	var rep CleanupReport

	live, err := s.liveKeys(ctx)
	if err != nil {
		_, err = s.finish(ctx, HookCleanup, 0, err)
		return rep, err
	}
	docs, err := s.index.DocKeys(ctx)
	if err != nil {
		_, err = s.finish(ctx, HookCleanup, 0, err)
		return rep, err
	}

	// A document missing from the live snapshot may belong to a unit created
	// since; reconcile re-reads the source before anything is removed.
	var suspects []string
	for _, key := range docs {
		if _, ok := live[key]; ok {
			continue
		}
		if _, _, ok := s.index.Keys().ParseDoc(key); ok {
			suspects = append(suspects, key)
		}
	}
	props := newPropertyCache(s.source)
	outs := s.fanOut(ctx, len(suspects), func(ctx context.Context, i int) outcome {
		_, unitID, _ := s.index.Keys().ParseDoc(suspects[i])
		return s.reconcile(ctx, unitID, props)
	})
	var failures []error
	for _, o := range outs {
		switch o.Status() {
		case batch.StatusRemoved:
			rep.OrphanDocuments += o.docs
		case batch.StatusError:
			failures = append(failures, o.Err())
		}
	}

	remaining, err := s.index.DocKeys(ctx)
	if err != nil {
		_, err = s.finish(ctx, HookCleanup, rep.OrphanDocuments, errors.Join(append(failures, err)...))
		return rep, err
	}
	kept := make(map[string]struct{}, len(remaining))
	for _, key := range remaining {
		kept[key] = struct{}{}
	}

	res, err := s.index.Cleanup(ctx, func(key string) bool {
		_, ok := kept[key]
		return ok
	})
	rep.CleanupResult = res
	if err != nil {
		failures = append(failures, err)
	}

	if err := s.index.SetMeta(ctx, map[string]string{
		unitindex.MetaLastCleanup:    s.now().UTC().Format(time.RFC3339),
		unitindex.MetaOrphansRemoved: strconv.Itoa(rep.OrphanDocuments),
	}); err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("record cleanup metadata", zap.Error(err))
	}

	_, err = s.finish(ctx, HookCleanup, rep.OrphanDocuments+rep.StaleReferences, errors.Join(failures...),
		zap.Int("indexes_scanned", rep.IndexesScanned),
		zap.Int("stale_references", rep.StaleReferences),
	)
	return rep, err
}

// liveKeys lists the document keys the source of truth currently backs.
func (s *Service) liveKeys(ctx context.Context) (map[string]struct{}, error) {
	props := newPropertyCache(s.source)
	live := make(map[string]struct{})
	after := ""
	for {
		units, err := s.nextPage(ctx, after, DefaultBatchSize)
		if err != nil {
			return nil, err
		}
		for _, u := range units {
			p, err := props.get(ctx, u.PropertyID)
			if err != nil {
				if errors.Is(err, domain.ErrSourceEntityMissing) {
					continue
				}
				return nil, fmt.Errorf("get property %s: %w", u.PropertyID, err)
			}
			if p.Active {
				live[s.index.Keys().Doc(u.PropertyID, u.ID)] = struct{}{}
			}
		}
		if len(units) < DefaultBatchSize {
			return live, nil
		}
		after = units[len(units)-1].ID
	}
}
