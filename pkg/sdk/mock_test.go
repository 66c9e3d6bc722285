package staydex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/staydex/internal/domain/batch"
	"github.com/kailas-cloud/staydex/internal/domain/search/request"
	"github.com/kailas-cloud/staydex/internal/domain/search/result"
	"github.com/kailas-cloud/staydex/internal/repository/unitindex"
	indexinguc "github.com/kailas-cloud/staydex/internal/usecase/indexing"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	unitsFn func(ctx context.Context, p request.Params) (result.Page[result.Unit], error)
	propsFn func(ctx context.Context, p request.Params) (result.Page[result.Property], error)
}

func (m *mockSearchUC) SearchUnits(ctx context.Context, p request.Params) (result.Page[result.Unit], error) {
	return m.unitsFn(ctx, p)
}

func (m *mockSearchUC) SearchPropertiesWithUnits(
	ctx context.Context, p request.Params,
) (result.Page[result.Property], error) {
	return m.propsFn(ctx, p)
}

// --- indexingUseCase mock ---

// mockIndexingUC records every call as "method:args" and answers with n and err.
type mockIndexingUC struct {
	calls []string
	n     int
	err   error

	report  batch.Report
	cleanup indexinguc.CleanupReport
	stats   unitindex.Statistics
}

func (m *mockIndexingUC) rec(format string, args ...any) (int, error) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
	return m.n, m.err
}

func (m *mockIndexingUC) OnUnitCreated(_ context.Context, id string) (int, error) {
	return m.rec("OnUnitCreated:%s", id)
}

func (m *mockIndexingUC) OnUnitUpdated(_ context.Context, id string) (int, error) {
	return m.rec("OnUnitUpdated:%s", id)
}

func (m *mockIndexingUC) OnUnitDeleted(_ context.Context, id, propertyID string) (int, error) {
	return m.rec("OnUnitDeleted:%s:%s", id, propertyID)
}

func (m *mockIndexingUC) OnPropertyCreated(_ context.Context, id string) (int, error) {
	return m.rec("OnPropertyCreated:%s", id)
}

func (m *mockIndexingUC) OnPropertyUpdated(_ context.Context, id string) (int, error) {
	return m.rec("OnPropertyUpdated:%s", id)
}

func (m *mockIndexingUC) OnPropertyDeleted(_ context.Context, id string) (int, error) {
	return m.rec("OnPropertyDeleted:%s", id)
}

func (m *mockIndexingUC) OnAvailabilityChanged(_ context.Context, id string) (int, error) {
	return m.rec("OnAvailabilityChanged:%s", id)
}

func (m *mockIndexingUC) OnDailyScheduleChanged(_ context.Context, id string) (int, error) {
	return m.rec("OnDailyScheduleChanged:%s", id)
}

func (m *mockIndexingUC) OnUnitTypeDeleted(_ context.Context, id string) (int, error) {
	return m.rec("OnUnitTypeDeleted:%s", id)
}

func (m *mockIndexingUC) OnUnitTypeFieldUpdated(
	_ context.Context, oldName, newName, fieldTypeID string, primary bool, unitTypeID string,
) (int, error) {
	return m.rec("OnUnitTypeFieldUpdated:%s:%s:%s:%t:%s", oldName, newName, fieldTypeID, primary, unitTypeID)
}

func (m *mockIndexingUC) OnUnitTypeFieldDeleted(_ context.Context, field, unitTypeID string) (int, error) {
	return m.rec("OnUnitTypeFieldDeleted:%s:%s", field, unitTypeID)
}

func (m *mockIndexingUC) RebuildUnitIndex(_ context.Context, id string) (int, error) {
	return m.rec("RebuildUnitIndex:%s", id)
}

func (m *mockIndexingUC) RebuildPropertyUnitsIndex(_ context.Context, id string) (int, error) {
	return m.rec("RebuildPropertyUnitsIndex:%s", id)
}

func (m *mockIndexingUC) RebuildAllIndexes(_ context.Context, batchSize int) (batch.Report, error) {
	m.calls = append(m.calls, fmt.Sprintf("RebuildAllIndexes:%d", batchSize))
	return m.report, m.err
}

func (m *mockIndexingUC) CleanupIndexes(context.Context) (indexinguc.CleanupReport, error) {
	m.calls = append(m.calls, "CleanupIndexes")
	return m.cleanup, m.err
}

func (m *mockIndexingUC) GetIndexStatistics(context.Context) (unitindex.Statistics, error) {
	m.calls = append(m.calls, "GetIndexStatistics")
	return m.stats, m.err
}
