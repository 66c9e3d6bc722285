// Package unitdoc defines the denormalized, search-optimized document stored
// for every indexable unit.
package unitdoc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/staydex/internal/domain"
	"github.com/kailas-cloud/staydex/internal/domain/geo"
	"github.com/kailas-cloud/staydex/internal/domain/period"
)

// Star rating and average rating bounds.
const (
	MinStarRating = 0
	MaxStarRating = 5
	MaxRating     = 5.0
)

// Capacity is the guest capacity of a unit.
type Capacity struct {
	Total    int `json:"total"`
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

// Availability summarizes a unit's schedule over the index horizon.
type Availability struct {
	// Blocked is the compressed blocked-interval string (see period.EncodeIntervals).
	Blocked       string `json:"blocked"`
	NextAvailable string `json:"next_available,omitempty"`
	IsAvailable   bool   `json:"is_available"`
}

// BlockedIntervals decodes Blocked.
func (a Availability) BlockedIntervals() ([]period.Interval, error) {
	return period.DecodeIntervals(a.Blocked)
}

// Pricing summarizes observed daily prices over the index horizon.
type Pricing struct {
	Base float64 `json:"base"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Avg  float64 `json:"avg"`
	// Horizon bounds the days copied into Schedule, as [From, To).
	From     string       `json:"from,omitempty"`
	To       string       `json:"to,omitempty"`
	Schedule []period.Day `json:"schedule,omitempty"`
}

// Covers reports whether the stored schedule spans [checkIn, checkOut).
func (p Pricing) Covers(checkIn, checkOut time.Time) bool {
	if p.From == "" || p.To == "" {
		return false
	}
	from, err1 := time.Parse(time.DateOnly, p.From)
	to, err2 := time.Parse(time.DateOnly, p.To)
	if err1 != nil || err2 != nil {
		return false
	}
	return !period.Midnight(checkIn).Before(from) && !period.Midnight(checkOut).After(to)
}

// EffectivePrice is the nightly price used when no stay dates are given.
func (p Pricing) EffectivePrice() float64 {
	if p.Base > 0 {
		return p.Base
	}
	return p.Avg
}

// Document is the index record of one unit.
type Document struct {
	UnitID         string `json:"unit_id"`
	PropertyID     string `json:"property_id"`
	UnitName       string `json:"unit_name"`
	PropertyName   string `json:"property_name"`
	City           string `json:"city"`
	PropertyTypeID string `json:"property_type_id"`
	UnitTypeID     string `json:"unit_type_id"`

	StarRating    int     `json:"star_rating"`
	AverageRating float64 `json:"average_rating"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Approved      bool    `json:"approved"`

	Capacity      Capacity `json:"capacity"`
	PricingMethod string   `json:"pricing_method"`
	BookingCount  int64    `json:"booking_count"`

	AmenityIDs    []string           `json:"amenity_ids"`
	ServiceIDs    []string           `json:"service_ids"`
	TextFields    map[string]string  `json:"text_fields"`
	NumericFields map[string]float64 `json:"numeric_fields"`

	Availability Availability `json:"availability"`
	Pricing      Pricing      `json:"pricing"`
	Keywords     []string     `json:"keywords"`

	CreatedAt time.Time `json:"created_at"`
	IndexedAt time.Time `json:"indexed_at"`
}

// Validate checks the document invariants.
func (d *Document) Validate() error {
	if d.UnitID == "" {
		return invalid("unit_id is required")
	}
	if d.PropertyID == "" {
		return invalid("property_id is required")
	}
	if d.StarRating < MinStarRating || d.StarRating > MaxStarRating {
		return invalid(fmt.Sprintf("star_rating %d out of [%d,%d]", d.StarRating, MinStarRating, MaxStarRating))
	}
	if d.AverageRating < 0 || d.AverageRating > MaxRating {
		return invalid(fmt.Sprintf("average_rating %v out of [0,%v]", d.AverageRating, MaxRating))
	}
	if !geo.ValidateCoordinates(d.Latitude, d.Longitude) {
		return invalid(fmt.Sprintf("coordinates (%v,%v) out of range", d.Latitude, d.Longitude))
	}
	if d.Capacity.Total < 0 || d.Capacity.Adults < 0 || d.Capacity.Children < 0 {
		return invalid("capacity must be non-negative")
	}
	p := d.Pricing
	allZero := p.Min == 0 && p.Max == 0 && p.Avg == 0
	if !allZero && (p.Min < 0 || p.Min > p.Avg || p.Avg > p.Max) {
		return invalid(fmt.Sprintf("pricing summary min=%v avg=%v max=%v violates min<=avg<=max", p.Min, p.Avg, p.Max))
	}
	if _, err := d.Availability.BlockedIntervals(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidDocument, err)
	}
	return nil
}

// HasGeo reports whether the document carries a usable location.
func (d *Document) HasGeo() bool { return d.Latitude != 0 || d.Longitude != 0 }

// Marshal serializes the document. Output is deterministic for equal documents.
func (d *Document) Marshal() ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal document %s: %w", d.UnitID, err)
	}
	return b, nil
}

// Unmarshal parses and validates a serialized document.
func Unmarshal(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidDocument, err)
	}
	if err := d.Validate(); err != nil {
		return Document{}, err
	}
	return d, nil
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidDocument, reason)
}
