// Package indexing keeps the unit index in step with the source of truth:
// lifecycle hooks called after committed catalog mutations, and the
// rebuild/cleanup maintenance surface.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/staydex/internal/domain"
	"github.com/kailas-cloud/staydex/internal/domain/batch"
	"github.com/kailas-cloud/staydex/internal/domain/catalog"
	"github.com/kailas-cloud/staydex/internal/domain/unitdoc"
	"github.com/kailas-cloud/staydex/internal/logger"
	"github.com/kailas-cloud/staydex/internal/metrics"
	"github.com/kailas-cloud/staydex/internal/repository/unitindex"
)

// Defaults used when the service is not configured otherwise.
const (
	DefaultHorizonDays = 365
	DefaultConcurrency = 8
	DefaultBatchSize   = 200
)

// Hook names label logs and metrics.
const (
	HookUnitCreated          = "unit_created"
	HookUnitUpdated          = "unit_updated"
	HookUnitDeleted          = "unit_deleted"
	HookPropertyCreated      = "property_created"
	HookPropertyUpdated      = "property_updated"
	HookPropertyDeleted      = "property_deleted"
	HookAvailabilityChanged  = "availability_changed"
	HookDailyScheduleChanged = "daily_schedule_changed"
	HookUnitTypeDeleted      = "unit_type_deleted"
	HookUnitTypeFieldUpdated = "unit_type_field_updated"
	HookUnitTypeFieldDeleted = "unit_type_field_deleted"
	HookRebuildUnit          = "rebuild_unit"
	HookRebuildPropertyUnits = "rebuild_property_units"
	HookRebuildAll           = "rebuild_all"
	HookCleanup              = "cleanup"
)

// Service is the index writer.
type Service struct {
	index       Index
	source      Source
	logger      *zap.Logger
	horizonDays int
	concurrency int
	now         func() time.Time
}

// New creates an index writer.
func New(index Index, source Source, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		index:       index,
		source:      source,
		logger:      logger,
		horizonDays: DefaultHorizonDays,
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
}

// WithHorizon sets how many days of schedule are summarized into documents.
func (s *Service) WithHorizon(days int) *Service {
	if days > 0 {
		s.horizonDays = days
	}
	return s
}

// WithConcurrency bounds parallel unit rebuilds in fan-out operations.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// outcome is the result of reconciling one unit with its documents.
type outcome struct {
	batch.Result
	docs int // documents written or removed
}

// OnUnitCreated indexes a new unit.
func (s *Service) OnUnitCreated(ctx context.Context, unitID string) (int, error) {
	return s.rebuildByID(ctx, HookUnitCreated, unitID)
}

// OnUnitUpdated rebuilds the unit's document from scratch.
func (s *Service) OnUnitUpdated(ctx context.Context, unitID string) (int, error) {
	return s.rebuildByID(ctx, HookUnitUpdated, unitID)
}

// RebuildUnitIndex rebuilds one unit's document.
func (s *Service) RebuildUnitIndex(ctx context.Context, unitID string) (int, error) {
	return s.rebuildByID(ctx, HookRebuildUnit, unitID)
}

// OnUnitDeleted removes the unit's document and every index entry it held.
func (s *Service) OnUnitDeleted(ctx context.Context, unitID, propertyID string) (int, error) {
	fields := []zap.Field{zap.String("unit_id", unitID), zap.String("property_id", propertyID)}

	keys, err := s.index.Locate(ctx, unitID)
	if err != nil {
		return s.finish(ctx, HookUnitDeleted, 0, err, fields...)
	}
	if propertyID != "" {
		if key := s.index.Keys().Doc(propertyID, unitID); !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	out := s.purge(ctx, unitID, keys, nil)
	return s.finish(ctx, HookUnitDeleted, out.docs, out.Err(), fields...)
}

// OnPropertyCreated indexes every unit of a new property.
func (s *Service) OnPropertyCreated(ctx context.Context, propertyID string) (int, error) {
	return s.rebuildProperty(ctx, HookPropertyCreated, propertyID)
}

// OnPropertyUpdated rebuilds every unit of the property, so snapshotted
// property attributes (city, rating, approval, location) move with it.
func (s *Service) OnPropertyUpdated(ctx context.Context, propertyID string) (int, error) {
	return s.rebuildProperty(ctx, HookPropertyUpdated, propertyID)
}

// RebuildPropertyUnitsIndex rebuilds every unit of a property.
func (s *Service) RebuildPropertyUnitsIndex(ctx context.Context, propertyID string) (int, error) {
	return s.rebuildProperty(ctx, HookRebuildPropertyUnits, propertyID)
}

// OnPropertyDeleted removes the documents of every unit of the property.
func (s *Service) OnPropertyDeleted(ctx context.Context, propertyID string) (int, error) {
	n, err := s.dropProperty(ctx, propertyID)
	return s.finish(ctx, HookPropertyDeleted, n, err, zap.String("property_id", propertyID))
}

// OnAvailabilityChanged refreshes the availability and pricing sections of
// the unit's document.
func (s *Service) OnAvailabilityChanged(ctx context.Context, unitID string) (int, error) {
	return s.patchSchedule(ctx, HookAvailabilityChanged, unitID)
}

// OnDailyScheduleChanged refreshes the availability and pricing sections of
// the unit's document.
func (s *Service) OnDailyScheduleChanged(ctx context.Context, unitID string) (int, error) {
	return s.patchSchedule(ctx, HookDailyScheduleChanged, unitID)
}

// OnUnitTypeDeleted rebuilds every unit that referenced the unit type.
func (s *Service) OnUnitTypeDeleted(ctx context.Context, unitTypeID string) (int, error) {
	return s.rebuildUnitType(ctx, HookUnitTypeDeleted, unitTypeID, zap.String("unit_type_id", unitTypeID))
}

// OnUnitTypeFieldUpdated rebuilds every unit of the unit type after a field
// definition was renamed or changed.
func (s *Service) OnUnitTypeFieldUpdated(
	ctx context.Context, oldName, newName, fieldTypeID string, isPrimaryFilter bool, unitTypeID string,
) (int, error) {
	return s.rebuildUnitType(ctx, HookUnitTypeFieldUpdated, unitTypeID,
		zap.String("unit_type_id", unitTypeID),
		zap.String("old_name", oldName),
		zap.String("new_name", newName),
		zap.String("field_type_id", fieldTypeID),
		zap.Bool("primary_filter", isPrimaryFilter),
	)
}

// OnUnitTypeFieldDeleted rebuilds every unit of the unit type after a field
// definition was removed.
func (s *Service) OnUnitTypeFieldDeleted(ctx context.Context, fieldName, unitTypeID string) (int, error) {
	return s.rebuildUnitType(ctx, HookUnitTypeFieldDeleted, unitTypeID,
		zap.String("unit_type_id", unitTypeID),
		zap.String("field", fieldName),
	)
}

// GetIndexStatistics reports document counts, distributions and maintenance metadata.
func (s *Service) GetIndexStatistics(ctx context.Context) (unitindex.Statistics, error) {
	st, err := s.index.Statistics(ctx)
	if err != nil {
		return unitindex.Statistics{}, fmt.Errorf("index statistics: %w", err)
	}
	return st, nil
}

func (s *Service) rebuildByID(ctx context.Context, hook, unitID string) (int, error) {
	out := s.reconcile(ctx, unitID, newPropertyCache(s.source))
	return s.finish(ctx, hook, out.docs, out.Err(), zap.String("unit_id", unitID))
}

// reconcile reads the unit and rebuilds or removes its documents.
func (s *Service) reconcile(ctx context.Context, unitID string, props *propertyCache) outcome {
	unit, err := s.source.GetUnit(ctx, unitID)
	if err != nil {
		if !errors.Is(err, domain.ErrSourceEntityMissing) {
			return failed(unitID, fmt.Errorf("get unit %s: %w", unitID, err))
		}
		keys, lerr := s.index.Locate(ctx, unitID)
		if lerr != nil {
			return failed(unitID, lerr)
		}
		return s.purge(ctx, unitID, keys, err)
	}
	return s.rebuild(ctx, unit, props)
}

// rebuild writes the document of unit, removing documents it left under
// other properties. Inactive units and units of inactive properties are removed.
func (s *Service) rebuild(ctx context.Context, unit catalog.Unit, props *propertyCache) outcome {
	located, err := s.index.Locate(ctx, unit.ID)
	if err != nil {
		return failed(unit.ID, err)
	}
	if !unit.Indexable() {
		return s.purge(ctx, unit.ID, located, nil)
	}

	prop, err := props.get(ctx, unit.PropertyID)
	if err != nil {
		if errors.Is(err, domain.ErrSourceEntityMissing) {
			return s.purge(ctx, unit.ID, located, err)
		}
		return failed(unit.ID, fmt.Errorf("get property %s: %w", unit.PropertyID, err))
	}
	if !prop.Active {
		return s.purge(ctx, unit.ID, located, nil)
	}

	src, err := s.load(ctx, unit, prop)
	if err != nil {
		return failed(unit.ID, err)
	}
	doc, err := unitdoc.Build(src, s.horizon(), s.now())
	if err != nil {
		return failed(unit.ID, fmt.Errorf("build document: %w", err))
	}

	key := s.index.Keys().Doc(prop.ID, unit.ID)
	if !slices.Contains(located, key) {
		// A document whose entries were never written is not in the unit set.
		located = append(located, key)
	}
	var prev *unitdoc.Document
	for _, k := range located {
		old, exists, err := s.loadPrev(ctx, k)
		if err != nil {
			return failed(unit.ID, err)
		}
		if k == key && (old != nil || !exists) {
			prev = old
			continue
		}
		if err := s.index.Remove(ctx, k, old); err != nil {
			return failed(unit.ID, err)
		}
	}

	if err := s.index.Replace(ctx, prev, &doc); err != nil {
		return failed(unit.ID, err)
	}
	return outcome{Result: batch.NewIndexed(unit.ID), docs: 1}
}

// load reads everything the document of unit is built from.
func (s *Service) load(ctx context.Context, unit catalog.Unit, prop catalog.Property) (unitdoc.Source, error) {
	src := unitdoc.Source{Property: prop, Unit: unit}
	h := s.horizon()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		amenities, err := s.source.ListAmenitiesByUnit(gctx, unit.ID)
		if err != nil {
			return fmt.Errorf("list amenities: %w", err)
		}
		src.Amenities = amenities
		return nil
	})
	g.Go(func() error {
		services, err := s.source.ListServicesByUnit(gctx, unit.ID)
		if err != nil {
			return fmt.Errorf("list services: %w", err)
		}
		src.Services = services
		return nil
	})
	g.Go(func() error {
		if unit.UnitTypeID == "" {
			return nil
		}
		defs, err := s.source.ListFieldDefinitions(gctx, unit.UnitTypeID)
		if err != nil {
			return fmt.Errorf("list field definitions: %w", err)
		}
		src.Fields = defs
		return nil
	})
	g.Go(func() error {
		values, err := s.source.ListFieldValues(gctx, unit.ID)
		if err != nil {
			return fmt.Errorf("list field values: %w", err)
		}
		src.Values = values
		return nil
	})
	g.Go(func() error {
		schedule, err := s.source.ListSchedule(gctx, unit.ID, h.From, h.To)
		if err != nil {
			return fmt.Errorf("list schedule: %w", err)
		}
		src.Schedule = schedule
		return nil
	})
	if err := g.Wait(); err != nil {
		return unitdoc.Source{}, fmt.Errorf("load unit %s: %w", unit.ID, err)
	}
	return src, nil
}

// purge removes the documents under keys. A non-nil cause marks the unit as
// missing from the source of truth.
func (s *Service) purge(ctx context.Context, unitID string, keys []string, cause error) outcome {
	removed := 0
	for _, k := range keys {
		prev, exists, err := s.loadPrev(ctx, k)
		if err != nil {
			return outcome{Result: batch.NewError(unitID, err), docs: removed}
		}
		if err := s.index.Remove(ctx, k, prev); err != nil {
			return outcome{Result: batch.NewError(unitID, err), docs: removed}
		}
		if exists {
			removed++
		}
	}
	if cause != nil {
		return outcome{Result: batch.NewMissing(unitID, cause), docs: removed}
	}
	return outcome{Result: batch.NewRemoved(unitID), docs: removed}
}

// loadPrev loads the document under key. An undecodable document exists but
// yields a nil document, so removal falls back to sweeping.
func (s *Service) loadPrev(ctx context.Context, key string) (*unitdoc.Document, bool, error) {
	d, err := s.index.Load(ctx, key)
	switch {
	case err == nil:
		return &d, true, nil
	case errors.Is(err, domain.ErrDocumentNotFound):
		return nil, false, nil
	case errors.Is(err, domain.ErrInvalidDocument):
		logger.FromContextOr(ctx, s.logger).Warn("undecodable document, sweeping",
			zap.String("key", key), zap.Error(err))
		return nil, true, nil
	default:
		return nil, false, fmt.Errorf("load %s: %w", key, err)
	}
}

func (s *Service) rebuildProperty(ctx context.Context, hook, propertyID string) (int, error) {
	field := zap.String("property_id", propertyID)

	prop, err := s.source.GetProperty(ctx, propertyID)
	if err != nil {
		if !errors.Is(err, domain.ErrSourceEntityMissing) {
			return s.finish(ctx, hook, 0, fmt.Errorf("get property %s: %w", propertyID, err), field)
		}
		n, derr := s.dropProperty(ctx, propertyID)
		if derr != nil {
			return s.finish(ctx, hook, n, derr, field)
		}
		return s.finish(ctx, hook, n, err, field)
	}

	units, err := s.source.ListUnitsByProperty(ctx, propertyID)
	if err != nil {
		return s.finish(ctx, hook, 0, fmt.Errorf("list units of %s: %w", propertyID, err), field)
	}
	props := newPropertyCache(s.source)
	props.put(prop)

	outs := s.fanOut(ctx, len(units), func(ctx context.Context, i int) outcome {
		return s.rebuild(ctx, units[i], props)
	})
	n, err := summarize(outs)

	// Documents whose unit left the property or was hard-deleted.
	indexed, lerr := s.propertyKeys(ctx, propertyID)
	if lerr != nil {
		return s.finish(ctx, hook, n, errors.Join(err, lerr), field)
	}
	inSource := make(map[string]struct{}, len(units))
	for _, u := range units {
		inSource[u.ID] = struct{}{}
	}
	for _, key := range indexed {
		_, unitID, ok := s.index.Keys().ParseDoc(key)
		if !ok {
			continue
		}
		if _, found := inSource[unitID]; found {
			continue
		}
		out := s.purge(ctx, unitID, []string{key}, nil)
		n += out.docs
		if out.Status() == batch.StatusError {
			err = errors.Join(err, out.Err())
		}
	}
	return s.finish(ctx, hook, n, err, field)
}

// dropProperty removes every document stored under the property.
func (s *Service) dropProperty(ctx context.Context, propertyID string) (int, error) {
	keys, err := s.propertyKeys(ctx, propertyID)
	if err != nil {
		return 0, err
	}
	outs := s.fanOut(ctx, len(keys), func(ctx context.Context, i int) outcome {
		_, unitID, _ := s.index.Keys().ParseDoc(keys[i])
		return s.purge(ctx, unitID, keys[i:i+1], nil)
	})
	return summarize(outs)
}

// propertyKeys unions the property membership set with the documents stored
// under the property's key prefix.
func (s *Service) propertyKeys(ctx context.Context, propertyID string) ([]string, error) {
	members, err := s.index.PropertyUnits(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	docs, err := s.index.PropertyDocs(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	keys := append(members, docs...)
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

func (s *Service) patchSchedule(ctx context.Context, hook, unitID string) (int, error) {
	field := zap.String("unit_id", unitID)

	keys, err := s.index.Locate(ctx, unitID)
	if err != nil {
		return s.finish(ctx, hook, 0, err, field)
	}
	if len(keys) != 1 {
		return s.rebuildByID(ctx, hook, unitID)
	}
	prev, _, err := s.loadPrev(ctx, keys[0])
	if err != nil {
		return s.finish(ctx, hook, 0, err, field)
	}
	if prev == nil {
		return s.rebuildByID(ctx, hook, unitID)
	}

	unit, err := s.source.GetUnit(ctx, unitID)
	if err != nil {
		if errors.Is(err, domain.ErrSourceEntityMissing) {
			out := s.purge(ctx, unitID, keys, err)
			return s.finish(ctx, hook, out.docs, out.Err(), field)
		}
		return s.finish(ctx, hook, 0, fmt.Errorf("get unit %s: %w", unitID, err), field)
	}
	if !unit.Indexable() || unit.PropertyID != prev.PropertyID {
		return s.rebuildByID(ctx, hook, unitID)
	}

	h := s.horizon()
	schedule, err := s.source.ListSchedule(ctx, unitID, h.From, h.To)
	if err != nil {
		return s.finish(ctx, hook, 0, fmt.Errorf("list schedule of %s: %w", unitID, err), field)
	}
	avail, pricing := unitdoc.SummarizeSchedule(unit.BasePrice, schedule, h)
	if err := s.index.PatchSchedule(ctx, prev, avail, pricing); err != nil {
		return s.finish(ctx, hook, 0, err, field)
	}
	return s.finish(ctx, hook, 1, nil, field)
}

func (s *Service) rebuildUnitType(ctx context.Context, hook, unitTypeID string, fields ...zap.Field) (int, error) {
	units, err := s.source.ListUnitsByUnitType(ctx, unitTypeID)
	if err != nil {
		return s.finish(ctx, hook, 0, fmt.Errorf("list units of type %s: %w", unitTypeID, err), fields...)
	}
	keys, err := s.index.UnitTypeUnits(ctx, unitTypeID)
	if err != nil {
		return s.finish(ctx, hook, 0, err, fields...)
	}

	// Indexed units the source no longer lists under this type are
	// reconciled by id: they changed type, or are gone.
	known := make(map[string]struct{}, len(units))
	for _, u := range units {
		known[u.ID] = struct{}{}
	}
	var extra []string
	for _, key := range keys {
		if _, unitID, ok := s.index.Keys().ParseDoc(key); ok {
			if _, found := known[unitID]; !found {
				known[unitID] = struct{}{}
				extra = append(extra, unitID)
			}
		}
	}

	props := newPropertyCache(s.source)
	outs := s.fanOut(ctx, len(units)+len(extra), func(ctx context.Context, i int) outcome {
		if i < len(units) {
			return s.rebuild(ctx, units[i], props)
		}
		return s.reconcile(ctx, extra[i-len(units)], props)
	})
	n, err := summarize(outs)
	return s.finish(ctx, hook, n, err, fields...)
}

// fanOut runs fn for 0..n-1 with bounded concurrency.
func (s *Service) fanOut(ctx context.Context, n int, fn func(ctx context.Context, i int) outcome) []outcome {
	outs := make([]outcome, n)
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range n {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outs[i] = failed("", err)
				return nil
			}
			outs[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return outs
}

// summarize counts affected documents and reports item failures. Units that
// turned out to be missing from the source are not failures.
func summarize(outs []outcome) (int, error) {
	n := 0
	var failures int
	var first error
	for _, o := range outs {
		n += o.docs
		if o.Status() == batch.StatusError {
			failures++
			if first == nil {
				first = o.Err()
			}
		}
	}
	if failures > 0 {
		return n, fmt.Errorf("%d of %d units failed, first: %w", failures, len(outs), first)
	}
	return n, nil
}

func failed(unitID string, err error) outcome {
	return outcome{Result: batch.NewError(unitID, err)}
}

func (s *Service) horizon() unitdoc.Horizon {
	return unitdoc.NewHorizon(s.now(), s.horizonDays)
}

// finish records metrics and logs the hook outcome. Missing source entities
// are logged as warnings; other failures as errors.
func (s *Service) finish(ctx context.Context, hook string, n int, err error, fields ...zap.Field) (int, error) {
	metrics.ObserveIndexEvent(hook, n, err)

	l := logger.FromContextOr(ctx, s.logger).With(zap.String("hook", hook), zap.Int("affected", n))
	switch {
	case err == nil:
		l.Debug("Index hook completed", fields...)
	case errors.Is(err, domain.ErrSourceEntityMissing):
		l.Warn("Source entity missing, documents removed", append(fields, zap.Error(err))...)
	default:
		l.Error("Index hook failed", append(fields, zap.Error(err))...)
	}
	return n, err
}

// propertyCache memoizes property reads within one operation.
type propertyCache struct {
	src PropertyReader
	mu  sync.Mutex
	m   map[string]propertyEntry
}

type propertyEntry struct {
	prop catalog.Property
	err  error
}

func newPropertyCache(src PropertyReader) *propertyCache {
	return &propertyCache{src: src, m: make(map[string]propertyEntry)}
}

func (c *propertyCache) put(p catalog.Property) {
	c.mu.Lock()
	c.m[p.ID] = propertyEntry{prop: p}
	c.mu.Unlock()
}

func (c *propertyCache) get(ctx context.Context, id string) (catalog.Property, error) {
	c.mu.Lock()
	e, ok := c.m[id]
	c.mu.Unlock()
	if ok {
		return e.prop, e.err
	}

	p, err := c.src.GetProperty(ctx, id)
	if err == nil || errors.Is(err, domain.ErrSourceEntityMissing) {
		c.mu.Lock()
		c.m[id] = propertyEntry{prop: p, err: err}
		c.mu.Unlock()
	}
	return p, err
}
