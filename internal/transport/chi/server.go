package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/staydex/internal/domain"
	"github.com/kailas-cloud/staydex/internal/domain/search/request"
	healthuc "github.com/kailas-cloud/staydex/internal/usecase/health"
	"github.com/kailas-cloud/staydex/internal/version"
)

// maxRequestBody bounds search and event payloads.
const maxRequestBody = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the search, maintenance and event intake API.
type Server struct {
	search           Searcher
	indexer          Indexer
	health           HealthChecker
	logger           *zap.Logger
	defaultPageSize  int
	maxPageSize      int
	rebuildBatchSize int
	errorHandlers    []errorHandler
}

// NewServer creates an HTTP API server. Without an indexer the server is
// search-only: maintenance and event routes are not mounted.
func NewServer(search Searcher, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search:           search,
		health:           health,
		logger:           logger,
		defaultPageSize:  request.DefaultPageSize,
		maxPageSize:      request.MaxPageSize,
		rebuildBatchSize: 200,
	}
	s.errorHandlers = []errorHandler{
		fieldErrorHandler,
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidRange, http.StatusBadRequest, CodeInvalidRange),
		sentinelHandler(domain.ErrSearchTimeout, http.StatusGatewayTimeout, CodeSearchTimeout),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrSourceEntityMissing, http.StatusNotFound, CodeSourceEntityMissing),
		sentinelHandler(domain.ErrIndexWriteFailure, http.StatusServiceUnavailable, CodeIndexUnavailable),
	}
	return s
}

// WithIndexer mounts the maintenance and event intake routes.
func (s *Server) WithIndexer(ix Indexer) *Server {
	s.indexer = ix
	return s
}

// WithPageSizes sets the page size applied when a request omits one and the
// largest page size a request may ask for.
func (s *Server) WithPageSizes(def, maxSize int) *Server {
	if def > 0 {
		s.defaultPageSize = def
	}
	if maxSize > 0 {
		s.maxPageSize = maxSize
	}
	return s
}

// WithRebuildBatchSize sets the page size of a full rebuild when the
// request does not pass batch_size.
func (s *Server) WithRebuildBatchSize(n int) *Server {
	if n > 0 {
		s.rebuildBatchSize = n
	}
	return s
}

// Routes registers every handler on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search/units", s.SearchUnits)
		r.Post("/search/properties", s.SearchProperties)

		if s.indexer == nil {
			return
		}
		r.Post("/events", s.IngestEvent)
		r.Route("/index", func(r chi.Router) {
			r.Post("/units/{unitID}/rebuild", s.RebuildUnit)
			r.Post("/properties/{propertyID}/rebuild", s.RebuildProperty)
			r.Post("/rebuild", s.RebuildAll)
			r.Post("/cleanup", s.Cleanup)
			r.Get("/stats", s.Stats)
		})
	})
}

// SearchUnits handles POST /api/v1/search/units.
func (s *Server) SearchUnits(w http.ResponseWriter, r *http.Request) {
	p, ok := s.decodeParams(w, r)
	if !ok {
		return
	}
	page, err := s.search.SearchUnits(r.Context(), p)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// SearchProperties handles POST /api/v1/search/properties.
func (s *Server) SearchProperties(w http.ResponseWriter, r *http.Request) {
	p, ok := s.decodeParams(w, r)
	if !ok {
		return
	}
	page, err := s.search.SearchPropertiesWithUnits(r.Context(), p)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) decodeParams(w http.ResponseWriter, r *http.Request) (request.Params, bool) {
	var p request.Params
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return request.Params{}, false
	}
	switch {
	case p.PageSize <= 0:
		p.PageSize = s.defaultPageSize
	case p.PageSize > s.maxPageSize:
		p.PageSize = s.maxPageSize
	}
	return p, true
}

// RebuildUnit handles POST /api/v1/index/units/{unitID}/rebuild.
func (s *Server) RebuildUnit(w http.ResponseWriter, r *http.Request) {
	n, err := s.indexer.RebuildUnitIndex(r.Context(), chi.URLParam(r, "unitID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AffectedResponse{Affected: n})
}

// RebuildProperty handles POST /api/v1/index/properties/{propertyID}/rebuild.
func (s *Server) RebuildProperty(w http.ResponseWriter, r *http.Request) {
	n, err := s.indexer.RebuildPropertyUnitsIndex(r.Context(), chi.URLParam(r, "propertyID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AffectedResponse{Affected: n})
}

// RebuildAll handles POST /api/v1/index/rebuild.
func (s *Server) RebuildAll(w http.ResponseWriter, r *http.Request) {
	batchSize := s.rebuildBatchSize
	if raw := r.URL.Query().Get("batch_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "batch_size must be a positive integer")
			return
		}
		batchSize = n
	}

	report, err := s.indexer.RebuildAllIndexes(r.Context(), batchSize)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Cleanup handles POST /api/v1/index/cleanup.
func (s *Server) Cleanup(w http.ResponseWriter, r *http.Request) {
	report, err := s.indexer.CleanupIndexes(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Stats handles GET /api/v1/index/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.indexer.GetIndexStatistics(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrInvalidRange,
		domain.ErrSearchTimeout,
		domain.ErrDocumentNotFound,
		domain.ErrSourceEntityMissing,
		domain.ErrIndexWriteFailure,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// fieldErrorHandler reports which request field failed validation.
func fieldErrorHandler(w http.ResponseWriter, err error, _ string) bool {
	var fe *domain.FieldError
	if !errors.As(err, &fe) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:    CodeValidationFailed,
		Message: fe.Reason,
		Field:   fe.Field,
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
