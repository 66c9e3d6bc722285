package result

import (
	"github.com/kailas-cloud/staydex/internal/domain/period"
	"github.com/kailas-cloud/staydex/internal/domain/search/relax"
	"github.com/kailas-cloud/staydex/internal/domain/unitdoc"
)

// Unit is a single matched unit.
type Unit struct {
	UnitID         string             `json:"unit_id"`
	PropertyID     string             `json:"property_id"`
	UnitName       string             `json:"unit_name"`
	PropertyName   string             `json:"property_name"`
	City           string             `json:"city"`
	PropertyTypeID string             `json:"property_type_id"`
	UnitTypeID     string             `json:"unit_type_id"`
	StarRating     int                `json:"star_rating"`
	AverageRating  float64            `json:"average_rating"`
	Latitude       float64            `json:"latitude"`
	Longitude      float64            `json:"longitude"`
	Capacity       unitdoc.Capacity   `json:"capacity"`
	AmenityIDs     []string           `json:"amenity_ids"`
	ServiceIDs     []string           `json:"service_ids"`
	TextFields     map[string]string  `json:"text_fields,omitempty"`
	NumericFields  map[string]float64 `json:"numeric_fields,omitempty"`
	BookingCount   int64              `json:"booking_count"`
	// NightlyPrice is the stay average when dates were given, else the effective base price.
	NightlyPrice float64       `json:"nightly_price"`
	Quote        *period.Quote `json:"quote,omitempty"`
	DistanceKm   *float64      `json:"distance_km,omitempty"`

	key       string
	createdAt int64
}

// FromDocument projects an index document into a result.
func FromDocument(key string, d unitdoc.Document) Unit {
	return Unit{
		UnitID:         d.UnitID,
		PropertyID:     d.PropertyID,
		UnitName:       d.UnitName,
		PropertyName:   d.PropertyName,
		City:           d.City,
		PropertyTypeID: d.PropertyTypeID,
		UnitTypeID:     d.UnitTypeID,
		StarRating:     d.StarRating,
		AverageRating:  d.AverageRating,
		Latitude:       d.Latitude,
		Longitude:      d.Longitude,
		Capacity:       d.Capacity,
		AmenityIDs:     d.AmenityIDs,
		ServiceIDs:     d.ServiceIDs,
		TextFields:     d.TextFields,
		NumericFields:  d.NumericFields,
		BookingCount:   d.BookingCount,
		NightlyPrice:   d.Pricing.EffectivePrice(),
		key:            key,
		createdAt:      d.CreatedAt.Unix(),
	}
}

// Key returns the document key the unit was loaded from.
func (u *Unit) Key() string { return u.key }

// CreatedAt returns the unit creation time as unix seconds.
func (u *Unit) CreatedAt() int64 { return u.createdAt }

// Property is a property with the units of it that matched.
type Property struct {
	PropertyID     string  `json:"property_id"`
	Name           string  `json:"name"`
	City           string  `json:"city"`
	PropertyTypeID string  `json:"property_type_id"`
	StarRating     int     `json:"star_rating"`
	AverageRating  float64 `json:"average_rating"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	// MinPrice and MaxPrice span the matched units only.
	MinPrice   float64  `json:"min_price"`
	MaxPrice   float64  `json:"max_price"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
	Units      []Unit   `json:"units"`
}

// Page is one page of results plus the strategy that produced them.
type Page[T any] struct {
	Items      []T            `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
	Strategy   relax.Strategy `json:"strategy"`
}

// Paginate slices items for a 1-based page.
func Paginate[T any](items []T, page, size int, s relax.Strategy) Page[T] {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	total := len(items)
	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: (total + size - 1) / size,
		Strategy:   s,
	}
	start := (page - 1) * size
	if start >= total {
		return p
	}
	end := min(start+size, total)
	p.Items = items[start:end]
	return p
}
