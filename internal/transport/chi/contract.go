package chi

import (
	"context"

	"github.com/kailas-cloud/staydex/internal/domain/batch"
	"github.com/kailas-cloud/staydex/internal/domain/search/request"
	"github.com/kailas-cloud/staydex/internal/domain/search/result"
	"github.com/kailas-cloud/staydex/internal/repository/unitindex"
	healthuc "github.com/kailas-cloud/staydex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/staydex/internal/usecase/indexing"
)

// Searcher answers unit and property searches.
type Searcher interface {
	SearchUnits(ctx context.Context, p request.Params) (result.Page[result.Unit], error)
	SearchPropertiesWithUnits(ctx context.Context, p request.Params) (result.Page[result.Property], error)
}

// Indexer keeps the index in sync with the source of truth.
type Indexer interface {
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

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
