package staydex

import (
	"errors"

	"github.com/kailas-cloud/staydex/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation          = domain.ErrValidation
	ErrInvalidRange        = domain.ErrInvalidRange
	ErrSearchTimeout       = domain.ErrSearchTimeout
	ErrSourceEntityMissing = domain.ErrSourceEntityMissing
	ErrIndexWriteFailure   = domain.ErrIndexWriteFailure
	ErrDocumentNotFound    = domain.ErrDocumentNotFound
)

// ErrNoSource is returned by indexing calls on a client built without WithPostgres.
var ErrNoSource = errors.New("staydex: source database not configured (use WithPostgres)")
