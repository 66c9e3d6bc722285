package batch

// ItemStatus is the processing outcome of a single rebuild item.
type ItemStatus string

// Item status values.
const (
	StatusIndexed ItemStatus = "indexed"
	// StatusRemoved marks a unit whose document was deleted because the
	// source entity is gone or inactive.
	StatusRemoved ItemStatus = "removed"
	StatusError   ItemStatus = "error"
)

// Result is the outcome of rebuilding one unit.
type Result struct {
	id     string
	status ItemStatus
	err    error
}

// NewIndexed creates a successful result.
func NewIndexed(id string) Result { return Result{id: id, status: StatusIndexed} }

// NewRemoved creates a result for a unit dropped from the index.
func NewRemoved(id string) Result { return Result{id: id, status: StatusRemoved} }

// NewMissing creates a removed result for a unit whose source entity no
// longer exists. Err returns the cause.
func NewMissing(id string, cause error) Result { return Result{id: id, status: StatusRemoved, err: cause} }

// NewError creates a failed result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the unit identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Report aggregates item results of a bulk rebuild.
type Report struct {
	Indexed int      `json:"indexed"`
	Removed int      `json:"removed"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// MaxReportedErrors caps Report.Errors.
const MaxReportedErrors = 20

// Add folds r into the report.
func (rep *Report) Add(r Result) {
	switch r.status {
	case StatusIndexed:
		rep.Indexed++
	case StatusRemoved:
		rep.Removed++
	case StatusError:
		rep.Failed++
		if len(rep.Errors) < MaxReportedErrors && r.err != nil {
			rep.Errors = append(rep.Errors, r.id+": "+r.err.Error())
		}
	}
}

// Affected is the number of documents written or removed.
func (rep *Report) Affected() int { return rep.Indexed + rep.Removed }
