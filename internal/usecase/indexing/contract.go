package indexing

import (
	"context"
	"time"

	"github.com/kailas-cloud/staydex/internal/domain/catalog"
	"github.com/kailas-cloud/staydex/internal/domain/period"
	"github.com/kailas-cloud/staydex/internal/domain/unitdoc"
	"github.com/kailas-cloud/staydex/internal/repository/unitindex"
)

// UnitReader reads units from the source of truth.
// GetUnit returns domain.ErrSourceEntityMissing for unknown ids.
type UnitReader interface {
	GetUnit(ctx context.Context, id string) (catalog.Unit, error)
	ListUnitsByProperty(ctx context.Context, propertyID string) ([]catalog.Unit, error)
	ListUnitsByUnitType(ctx context.Context, unitTypeID string) ([]catalog.Unit, error)
	ListIndexableUnits(ctx context.Context, afterID string, limit int) ([]catalog.Unit, error)
}

// PropertyReader reads properties. GetProperty returns
// domain.ErrSourceEntityMissing for unknown ids.
type PropertyReader interface {
	GetProperty(ctx context.Context, id string) (catalog.Property, error)
}

// AmenityReader reads the amenities attached to a unit.
type AmenityReader interface {
	ListAmenitiesByUnit(ctx context.Context, unitID string) ([]catalog.Amenity, error)
}

// ServiceReader reads the services offered with a unit.
type ServiceReader interface {
	ListServicesByUnit(ctx context.Context, unitID string) ([]catalog.Service, error)
}

// FieldReader reads dynamic field definitions and values.
type FieldReader interface {
	ListFieldDefinitions(ctx context.Context, unitTypeID string) ([]catalog.FieldDefinition, error)
	ListFieldValues(ctx context.Context, unitID string) ([]catalog.FieldValue, error)
}

// ScheduleReader reads a unit's daily schedule within [from, to).
type ScheduleReader interface {
	ListSchedule(ctx context.Context, unitID string, from, to time.Time) ([]period.Day, error)
}

// Source bundles every source-of-truth reader the writer needs.
type Source interface {
	UnitReader
	PropertyReader
	AmenityReader
	ServiceReader
	FieldReader
	ScheduleReader
}

// Index is the secondary index the writer maintains.
type Index interface {
	Keys() unitindex.Keys
	Load(ctx context.Context, key string) (unitdoc.Document, error)
	Replace(ctx context.Context, prev, cur *unitdoc.Document) error
	Remove(ctx context.Context, key string, prev *unitdoc.Document) error
	PatchSchedule(ctx context.Context, prev *unitdoc.Document, avail unitdoc.Availability, pricing unitdoc.Pricing) error
	Locate(ctx context.Context, unitID string) ([]string, error)
	PropertyUnits(ctx context.Context, propertyID string) ([]string, error)
	PropertyDocs(ctx context.Context, propertyID string) ([]string, error)
	UnitTypeUnits(ctx context.Context, unitTypeID string) ([]string, error)
	DocKeys(ctx context.Context) ([]string, error)
	Statistics(ctx context.Context) (unitindex.Statistics, error)
	SetMeta(ctx context.Context, fields map[string]string) error
	Cleanup(ctx context.Context, exists func(key string) bool) (unitindex.CleanupResult, error)
}
