package staydex

import (
	"context"
	"fmt"
	"time"
)

// IndexService keeps the index in sync with the source database. Every call
// returns ErrNoSource on a client built without WithPostgres.
type IndexService struct {
	svc indexingUseCase
	obs *observer
}

// hook runs one lifecycle hook and reports how many documents it touched.
func (s *IndexService) hook(op string, run func(indexingUseCase) (int, error)) (n int, err error) {
	start := time.Now()
	defer func() { s.obs.observe(op, start, err, "affected", n) }()

	if s.svc == nil {
		return 0, ErrNoSource
	}
	n, err = run(s.svc)
	if err != nil {
		return n, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// UnitCreated indexes a newly created unit.
func (s *IndexService) UnitCreated(ctx context.Context, unitID string) (int, error) {
	return s.hook("unit_created", func(ix indexingUseCase) (int, error) { return ix.OnUnitCreated(ctx, unitID) })
}

// UnitUpdated re-indexes a unit.
func (s *IndexService) UnitUpdated(ctx context.Context, unitID string) (int, error) {
	return s.hook("unit_updated", func(ix indexingUseCase) (int, error) { return ix.OnUnitUpdated(ctx, unitID) })
}

// UnitDeleted removes a unit's documents. propertyID may be empty.
func (s *IndexService) UnitDeleted(ctx context.Context, unitID, propertyID string) (int, error) {
	return s.hook("unit_deleted", func(ix indexingUseCase) (int, error) {
		return ix.OnUnitDeleted(ctx, unitID, propertyID)
	})
}

// PropertyCreated indexes every unit of a new property.
func (s *IndexService) PropertyCreated(ctx context.Context, propertyID string) (int, error) {
	return s.hook("property_created", func(ix indexingUseCase) (int, error) {
		return ix.OnPropertyCreated(ctx, propertyID)
	})
}

// PropertyUpdated re-indexes every unit of a property.
func (s *IndexService) PropertyUpdated(ctx context.Context, propertyID string) (int, error) {
	return s.hook("property_updated", func(ix indexingUseCase) (int, error) {
		return ix.OnPropertyUpdated(ctx, propertyID)
	})
}

// PropertyDeleted removes every document of a property.
func (s *IndexService) PropertyDeleted(ctx context.Context, propertyID string) (int, error) {
	return s.hook("property_deleted", func(ix indexingUseCase) (int, error) {
		return ix.OnPropertyDeleted(ctx, propertyID)
	})
}

// AvailabilityChanged refreshes a unit's blocked periods.
func (s *IndexService) AvailabilityChanged(ctx context.Context, unitID string) (int, error) {
	return s.hook("availability_changed", func(ix indexingUseCase) (int, error) {
		return ix.OnAvailabilityChanged(ctx, unitID)
	})
}

// DailyScheduleChanged refreshes a unit's prices and blocked periods.
func (s *IndexService) DailyScheduleChanged(ctx context.Context, unitID string) (int, error) {
	return s.hook("daily_schedule_changed", func(ix indexingUseCase) (int, error) {
		return ix.OnDailyScheduleChanged(ctx, unitID)
	})
}

// UnitTypeDeleted re-indexes every unit of a deleted unit type.
func (s *IndexService) UnitTypeDeleted(ctx context.Context, unitTypeID string) (int, error) {
	return s.hook("unit_type_deleted", func(ix indexingUseCase) (int, error) {
		return ix.OnUnitTypeDeleted(ctx, unitTypeID)
	})
}

// UnitTypeFieldUpdated re-indexes a unit type after a field definition changed.
func (s *IndexService) UnitTypeFieldUpdated(
	ctx context.Context, oldName, newName, fieldTypeID string, isPrimaryFilter bool, unitTypeID string,
) (int, error) {
	return s.hook("unit_type_field_updated", func(ix indexingUseCase) (int, error) {
		return ix.OnUnitTypeFieldUpdated(ctx, oldName, newName, fieldTypeID, isPrimaryFilter, unitTypeID)
	})
}

// UnitTypeFieldDeleted re-indexes a unit type after a field definition was removed.
func (s *IndexService) UnitTypeFieldDeleted(ctx context.Context, fieldName, unitTypeID string) (int, error) {
	return s.hook("unit_type_field_deleted", func(ix indexingUseCase) (int, error) {
		return ix.OnUnitTypeFieldDeleted(ctx, fieldName, unitTypeID)
	})
}

// RebuildUnit rebuilds one unit from the source.
func (s *IndexService) RebuildUnit(ctx context.Context, unitID string) (int, error) {
	return s.hook("rebuild_unit", func(ix indexingUseCase) (int, error) { return ix.RebuildUnitIndex(ctx, unitID) })
}

// RebuildProperty rebuilds every unit of a property.
func (s *IndexService) RebuildProperty(ctx context.Context, propertyID string) (int, error) {
	return s.hook("rebuild_property", func(ix indexingUseCase) (int, error) {
		return ix.RebuildPropertyUnitsIndex(ctx, propertyID)
	})
}

// RebuildAll rebuilds every indexable unit, reading the source in pages of batchSize.
func (s *IndexService) RebuildAll(ctx context.Context, batchSize int) (rep RebuildReport, err error) {
	start := time.Now()
	defer func() { s.obs.observe("rebuild_all", start, err, "indexed", rep.Indexed, "failed", rep.Failed) }()

	if s.svc == nil {
		return RebuildReport{}, ErrNoSource
	}
	res, err := s.svc.RebuildAllIndexes(ctx, batchSize)
	if err != nil {
		return fromReport(&res), fmt.Errorf("rebuild all: %w", err)
	}
	return fromReport(&res), nil
}

// Cleanup removes orphan documents and stale index references.
func (s *IndexService) Cleanup(ctx context.Context) (rep CleanupReport, err error) {
	start := time.Now()
	defer func() { s.obs.observe("cleanup", start, err, "orphans", rep.OrphanDocuments) }()

	if s.svc == nil {
		return CleanupReport{}, ErrNoSource
	}
	res, err := s.svc.CleanupIndexes(ctx)
	if err != nil {
		return CleanupReport{}, fmt.Errorf("cleanup: %w", err)
	}
	return fromCleanup(&res), nil
}

// Stats reports document counts, distributions and maintenance metadata.
func (s *IndexService) Stats(ctx context.Context) (st IndexStats, err error) {
	start := time.Now()
	defer func() { s.obs.observe("stats", start, err) }()

	if s.svc == nil {
		return IndexStats{}, ErrNoSource
	}
	res, err := s.svc.GetIndexStatistics(ctx)
	if err != nil {
		return IndexStats{}, fmt.Errorf("stats: %w", err)
	}
	return fromStats(&res), nil
}
