package chi

// ErrorCode identifies an API error class.
type ErrorCode string

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeUnauthorized        ErrorCode = "unauthorized"
	CodeValidationFailed    ErrorCode = "validation_failed"
	CodeInvalidRange        ErrorCode = "invalid_range"
	CodeSearchTimeout       ErrorCode = "search_timeout"
	CodeDocumentNotFound    ErrorCode = "document_not_found"
	CodeSourceEntityMissing ErrorCode = "source_entity_missing"
	CodeIndexUnavailable    ErrorCode = "index_unavailable"
	CodeUnknownEvent        ErrorCode = "unknown_event"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// AffectedResponse reports how many index documents an operation touched.
type AffectedResponse struct {
	Affected int `json:"affected"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}

// Event is a source-of-truth mutation notification.
type Event struct {
	Type            string `json:"type"`
	UnitID          string `json:"unit_id,omitempty"`
	PropertyID      string `json:"property_id,omitempty"`
	UnitTypeID      string `json:"unit_type_id,omitempty"`
	FieldName       string `json:"field_name,omitempty"`
	OldName         string `json:"old_name,omitempty"`
	NewName         string `json:"new_name,omitempty"`
	FieldTypeID     string `json:"field_type_id,omitempty"`
	IsPrimaryFilter bool   `json:"is_primary_filter,omitempty"`
}

// EventResponse reports the outcome of a dispatched event. Hook failures are
// reported here rather than as an error status.
type EventResponse struct {
	Affected int    `json:"affected"`
	Error    string `json:"error,omitempty"`
}
