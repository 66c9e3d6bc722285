// Package catalog holds the source-of-truth entity shapes the index is built from.
package catalog

import (
	"time"

	"github.com/kailas-cloud/staydex/internal/domain/period"
)

// PricingMethod is how a unit is priced.
type PricingMethod string

// Pricing methods.
const (
	PricingPerNight  PricingMethod = "per_night"
	PricingPerPerson PricingMethod = "per_person"
	PricingDaily     PricingMethod = "daily_schedule"
)

// Property is a listed property owning one or more units.
type Property struct {
	ID             string
	Name           string
	City           string
	PropertyTypeID string
	StarRating     int
	AverageRating  float64
	Latitude       float64
	Longitude      float64
	Approved       bool
	Active         bool
	CreatedAt      time.Time
}

// Unit is a rentable unit of a property.
type Unit struct {
	ID               string
	PropertyID       string
	UnitTypeID       string
	Name             string
	MaxCapacity      int
	AdultsCapacity   int
	ChildrenCapacity int
	PricingMethod    PricingMethod
	BasePrice        float64
	BookingCount     int64
	Active           bool
	Deleted          bool
	CreatedAt        time.Time
}

// Indexable reports whether the unit may have an index document.
func (u Unit) Indexable() bool { return u.Active && !u.Deleted }

// UnitType groups units sharing a set of dynamic field definitions.
type UnitType struct {
	ID   string
	Name string
}

// Amenity is a unit feature (wifi, pool, ...).
type Amenity struct {
	ID   string
	Name string
}

// Service is an optional unit service (breakfast, transfer, ...).
type Service struct {
	ID   string
	Name string
}

// FieldKind is the value type of a dynamic field.
type FieldKind string

// Dynamic field kinds.
const (
	FieldText    FieldKind = "text"
	FieldNumber  FieldKind = "number"
	FieldBoolean FieldKind = "boolean"
	FieldSelect  FieldKind = "select"
)

// IsNumeric reports whether values of this kind are indexed as numbers.
func (k FieldKind) IsNumeric() bool { return k == FieldNumber }

// FieldDefinition is an admin-defined dynamic field of a unit type.
type FieldDefinition struct {
	ID              string
	UnitTypeID      string
	Name            string
	Kind            FieldKind
	IsPrimaryFilter bool
}

// FieldValue is the value a unit holds for a dynamic field.
type FieldValue struct {
	FieldID string
	Value   string
}

// Schedule is a unit's daily price/availability schedule.
type Schedule = []period.Day
