package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	indexinguc "github.com/kailas-cloud/staydex/internal/usecase/indexing"
)

// eventRoute dispatches one event type to its lifecycle hook.
type eventRoute struct {
	required func(e Event) []string
	run      func(ctx context.Context, ix Indexer, e Event) (int, error)
}

func needUnit(e Event) []string     { return missing("unit_id", e.UnitID) }
func needProperty(e Event) []string { return missing("property_id", e.PropertyID) }
func needUnitType(e Event) []string { return missing("unit_type_id", e.UnitTypeID) }

func missing(name, v string) []string {
	if v == "" {
		return []string{name}
	}
	return nil
}

var eventRoutes = map[string]eventRoute{
	indexinguc.HookUnitCreated: {needUnit, func(ctx context.Context, ix Indexer, e Event) (int, error) {
		return ix.OnUnitCreated(ctx, e.UnitID)
	}},
	indexinguc.HookUnitUpdated: {needUnit, func(ctx context.Context, ix Indexer, e Event) (int, error) {
		return ix.OnUnitUpdated(ctx, e.UnitID)
	}},
	indexinguc.HookUnitDeleted: {needUnit, func(ctx context.Context, ix Indexer, e Event) (int, error) {
		return ix.OnUnitDeleted(ctx, e.UnitID, e.PropertyID)
	}},
	indexinguc.HookPropertyCreated: {needProperty, func(ctx context.Context, ix Indexer, e Event) (int, error) {
		return ix.OnPropertyCreated(ctx, e.PropertyID)
	}},
	indexinguc.HookPropertyUpdated: {needProperty, func(ctx context.Context, ix Indexer, e Event) (int, error) {
		return ix.OnPropertyUpdated(ctx, e.PropertyID)
	}},
	indexinguc.HookPropertyDeleted: {needProperty, func(ctx context.Context, ix Indexer, e Event) (int, error) {
		return ix.OnPropertyDeleted(ctx, e.PropertyID)
	}},
	indexinguc.HookAvailabilityChanged: {needUnit, func(ctx context.Context, ix Indexer, e Event) (int, error) {
		return ix.OnAvailabilityChanged(ctx, e.UnitID)
	}},
	indexinguc.HookDailyScheduleChanged: {needUnit, func(ctx context.Context, ix Indexer, e Event) (int, error) {
		return ix.OnDailyScheduleChanged(ctx, e.UnitID)
	}},
	indexinguc.HookUnitTypeDeleted: {needUnitType, func(ctx context.Context, ix Indexer, e Event) (int, error) {
		return ix.OnUnitTypeDeleted(ctx, e.UnitTypeID)
	}},
	indexinguc.HookUnitTypeFieldUpdated: {needUnitType, func(ctx context.Context, ix Indexer, e Event) (int, error) {
		return ix.OnUnitTypeFieldUpdated(ctx, e.OldName, e.NewName, e.FieldTypeID, e.IsPrimaryFilter, e.UnitTypeID)
	}},
	indexinguc.HookUnitTypeFieldDeleted: {needUnitType, func(ctx context.Context, ix Indexer, e Event) (int, error) {
		return ix.OnUnitTypeFieldDeleted(ctx, e.FieldName, e.UnitTypeID)
	}},
}

// IngestEvent handles POST /api/v1/events. A malformed or unknown event is
// rejected; once dispatched, the hook outcome is reported with 202 whether
// or not it succeeded, so a CRUD caller is never failed by indexing.
func (s *Server) IngestEvent(w http.ResponseWriter, r *http.Request) {
	var e Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	route, ok := eventRoutes[e.Type]
	if !ok {
		writeError(w, http.StatusBadRequest, CodeUnknownEvent, "unknown event type "+strconv.Quote(e.Type))
		return
	}
	if m := route.required(e); len(m) > 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    CodeValidationFailed,
			Message: "required for " + e.Type,
			Field:   m[0],
		})
		return
	}

	n, err := route.run(r.Context(), s.indexer, e)
	resp := EventResponse{Affected: n}
	if err != nil {
		s.logger.Warn("event hook failed", zap.String("type", e.Type), zap.Error(err))
		resp.Error = safeDomainMessage(err)
	}
	writeJSON(w, http.StatusAccepted, resp)
}
