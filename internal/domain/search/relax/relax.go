// Package relax defines the search relaxation ladder and the widening each
// level applies to a request.
package relax

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/staydex/internal/domain/geo"
	"github.com/kailas-cloud/staydex/internal/domain/search/request"
	"github.com/kailas-cloud/staydex/internal/domain/search/sortby"
)

// Level is a degree of search-constraint loosening.
type Level int

// Relaxation levels, in ladder order.
const (
	Exact Level = iota
	Minor
	Moderate
	Major
	AlternativeSuggestions
)

// Levels lists every level in ladder order.
var Levels = []Level{Exact, Minor, Moderate, Major, AlternativeSuggestions}

func (l Level) String() string {
	switch l {
	case Exact:
		return "exact"
	case Minor:
		return "minor_relaxation"
	case Moderate:
		return "moderate_relaxation"
	case Major:
		return "major_relaxation"
	case AlternativeSuggestions:
		return "alternative_suggestions"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// MarshalText renders the level name.
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText parses a level name.
func (l *Level) UnmarshalText(b []byte) error {
	for _, lv := range Levels {
		if lv.String() == string(b) {
			*l = lv
			return nil
		}
	}
	return fmt.Errorf("unknown relaxation level %q", b)
}

// Terminal reports whether no further level exists.
func (l Level) Terminal() bool { return l >= AlternativeSuggestions }

// Names of relaxable filters as reported in Strategy.RelaxedFilters.
const (
	FilterMinRating    = "minRating"
	FilterMinPrice     = "minPrice"
	FilterMaxPrice     = "maxPrice"
	FilterRadius       = "radiusKm"
	FilterGuests       = "guests"
	FilterServices     = "serviceIds"
	FilterAmenities    = "amenityIds"
	FilterFields       = "fields"
	FilterText         = "text"
	FilterPropertyType = "propertyTypeId"
	FilterCity         = "city"
	FilterUnitType     = "unitTypeId"
	FilterDates        = "dates"
)

// Step is the widening applied at one level, always relative to the
// original request.
type Step struct {
	RatingDrop       float64
	DropRating       bool
	PriceTolerance   float64
	RadiusMultiplier float64
	CapacityDrop     int
	DropServices     bool
	DropAmenities    bool
	DropFields       bool
	DropText         bool
	DropPropertyType bool
}

// Policy holds the steps for the intermediate levels.
type Policy struct {
	Minor    Step
	Moderate Step
	Major    Step
}

// DefaultPolicy is the built-in widening ladder.
func DefaultPolicy() Policy {
	return Policy{
		Minor: Step{RatingDrop: 0.5, PriceTolerance: 0.10, RadiusMultiplier: 1.5},
		Moderate: Step{
			RatingDrop: 1.0, PriceTolerance: 0.25, RadiusMultiplier: 2,
			CapacityDrop: 1, DropServices: true,
		},
		Major: Step{
			DropRating: true, PriceTolerance: 0.50, RadiusMultiplier: 3, CapacityDrop: 2,
			DropServices: true, DropAmenities: true, DropFields: true, DropText: true, DropPropertyType: true,
		},
	}
}

// Step returns the step for an intermediate level.
func (p Policy) Step(l Level) Step {
	switch l {
	case Minor:
		return p.Minor
	case Moderate:
		return p.Moderate
	case Major:
		return p.Major
	}
	return Step{}
}

// Strategy describes how a result set was obtained.
type Strategy struct {
	Level          Level    `json:"level"`
	Description    string   `json:"description"`
	RelaxedFilters []string `json:"relaxed_filters"`
	IsSuggestion   bool     `json:"is_suggestion"`
}

// NewStrategy builds the strategy record for a level.
func NewStrategy(l Level, relaxed []string) Strategy {
	if relaxed == nil {
		relaxed = []string{}
	}
	return Strategy{
		Level:          l,
		Description:    describe(l),
		RelaxedFilters: relaxed,
		IsSuggestion:   l == AlternativeSuggestions,
	}
}

func describe(l Level) string {
	switch l {
	case Exact:
		return "Exact matches for all requested filters"
	case Minor:
		return "Showing similar results with slightly widened rating, price and distance"
	case Moderate:
		return "Showing similar results with widened price, distance and capacity"
	case Major:
		return "Showing similar results with only location, type and dates kept"
	default:
		return "No close matches; showing suggested stays"
	}
}

// Apply widens p for level l and returns the new parameters plus the names
// of the filters that changed. Only filters present in p are reported.
func Apply(p request.Params, l Level, policy Policy) (request.Params, []string) {
	out := p.Clone()
	if l == Exact {
		return out, nil
	}
	if l.Terminal() {
		return suggestions(p)
	}

	s := policy.Step(l)
	var relaxed []string

	if p.MinRating != nil {
		switch floor := *p.MinRating - s.RatingDrop; {
		case s.DropRating || floor <= 0:
			out.MinRating = nil
			relaxed = append(relaxed, FilterMinRating)
		case floor < *p.MinRating:
			out.MinRating = &floor
			relaxed = append(relaxed, FilterMinRating)
		}
	}

	if s.PriceTolerance > 0 {
		if p.MinPrice != nil && *p.MinPrice > 0 {
			v := round2(*p.MinPrice * (1 - s.PriceTolerance))
			out.MinPrice = &v
			relaxed = append(relaxed, FilterMinPrice)
		}
		if p.MaxPrice != nil {
			v := round2(*p.MaxPrice * (1 + s.PriceTolerance))
			if v > *p.MaxPrice {
				out.MaxPrice = &v
				relaxed = append(relaxed, FilterMaxPrice)
			}
		}
	}

	if p.Geo != nil && s.RadiusMultiplier > 1 {
		r := math.Min(p.Geo.RadiusKm*s.RadiusMultiplier, geo.MaxRadiusKm)
		if r > p.Geo.RadiusKm {
			out.Geo.RadiusKm = r
			relaxed = append(relaxed, FilterRadius)
		}
	}

	if p.Guests > 0 && s.CapacityDrop > 0 {
		out.Guests = max(p.Guests-s.CapacityDrop, 0)
		relaxed = append(relaxed, FilterGuests)
	}

	if s.DropServices && len(p.ServiceIDs) > 0 {
		out.ServiceIDs = nil
		relaxed = append(relaxed, FilterServices)
	}
	if s.DropAmenities && len(p.AmenityIDs) > 0 {
		out.AmenityIDs = nil
		relaxed = append(relaxed, FilterAmenities)
	}
	if s.DropFields && len(p.Fields) > 0 {
		out.Fields = nil
		relaxed = append(relaxed, FilterFields)
	}
	if s.DropText && p.Text != "" {
		out.Text = ""
		relaxed = append(relaxed, FilterText)
	}
	if s.DropPropertyType && p.PropertyTypeID != "" {
		out.PropertyTypeID = ""
		relaxed = append(relaxed, FilterPropertyType)
	}

	return out, relaxed
}

// suggestions keeps only paging and sort; stay dates are ignored.
func suggestions(p request.Params) (request.Params, []string) {
	var relaxed []string
	add := func(present bool, name string) {
		if present {
			relaxed = append(relaxed, name)
		}
	}
	add(p.City != "", FilterCity)
	add(p.PropertyTypeID != "", FilterPropertyType)
	add(p.UnitTypeID != "", FilterUnitType)
	add(p.Guests > 0, FilterGuests)
	add(p.MinRating != nil, FilterMinRating)
	add(p.MinPrice != nil, FilterMinPrice)
	add(p.MaxPrice != nil, FilterMaxPrice)
	add(p.Geo != nil, FilterRadius)
	add(len(p.AmenityIDs) > 0, FilterAmenities)
	add(len(p.ServiceIDs) > 0, FilterServices)
	add(len(p.Fields) > 0, FilterFields)
	add(p.Text != "", FilterText)
	add(p.CheckIn != "" || p.CheckOut != "", FilterDates)

	sort := p.Sort
	if sort == sortby.Distance {
		sort = sortby.Rating
	}
	return request.Params{Sort: sort, Page: p.Page, PageSize: p.PageSize}, relaxed
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
