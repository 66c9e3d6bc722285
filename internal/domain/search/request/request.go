package request

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kailas-cloud/staydex/internal/domain"
	"github.com/kailas-cloud/staydex/internal/domain/geo"
	"github.com/kailas-cloud/staydex/internal/domain/search/filter"
	"github.com/kailas-cloud/staydex/internal/domain/search/sortby"
	"github.com/kailas-cloud/staydex/internal/domain/unitdoc"
)

// Search parameter limits.
const (
	// MaxTextLength is the maximum allowed free-text query length.
	MaxTextLength   = 512
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxIDs          = 64
	MaxStayNights   = 365
)

// GeoParams is a geo-radius filter.
type GeoParams struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKm  float64 `json:"radius_km"`
}

// FieldParams is a dynamic-field filter: either Match or a Min/Max range.
type FieldParams struct {
	Name  string   `json:"name"`
	Match string   `json:"match,omitempty"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

// Params is the raw search input, as decoded from a request body.
type Params struct {
	City           string        `json:"city,omitempty"`
	PropertyTypeID string        `json:"property_type_id,omitempty"`
	UnitTypeID     string        `json:"unit_type_id,omitempty"`
	Guests         int           `json:"guests,omitempty"`
	MinRating      *float64      `json:"min_rating,omitempty"`
	MinPrice       *float64      `json:"min_price,omitempty"`
	MaxPrice       *float64      `json:"max_price,omitempty"`
	Geo            *GeoParams    `json:"geo,omitempty"`
	AmenityIDs     []string      `json:"amenity_ids,omitempty"`
	ServiceIDs     []string      `json:"service_ids,omitempty"`
	Fields         []FieldParams `json:"fields,omitempty"`
	Text           string        `json:"text,omitempty"`
	CheckIn        string        `json:"check_in,omitempty"`
	CheckOut       string        `json:"check_out,omitempty"`
	Sort           sortby.Key    `json:"sort,omitempty"`
	Page           int           `json:"page,omitempty"`
	PageSize       int           `json:"page_size,omitempty"`
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	c := p
	c.MinRating = clonePtr(p.MinRating)
	c.MinPrice = clonePtr(p.MinPrice)
	c.MaxPrice = clonePtr(p.MaxPrice)
	if p.Geo != nil {
		g := *p.Geo
		c.Geo = &g
	}
	c.AmenityIDs = slices.Clone(p.AmenityIDs)
	c.ServiceIDs = slices.Clone(p.ServiceIDs)
	if p.Fields != nil {
		c.Fields = make([]FieldParams, len(p.Fields))
		for i, f := range p.Fields {
			f.Min, f.Max = clonePtr(f.Min), clonePtr(f.Max)
			c.Fields[i] = f
		}
	}
	return c
}

// Stay is a validated [CheckIn, CheckOut) date range.
type Stay struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// Request is a validated search query.
type Request struct {
	params   Params
	fields   []filter.Condition
	keywords []string
	stay     *Stay
}

// New validates and normalizes search parameters.
// Defaults: sort=rating, page=1, page_size=20.
func New(p Params) (Request, error) {
	p = p.Clone()
	p.City = strings.TrimSpace(p.City)
	p.Text = strings.TrimSpace(p.Text)

	if p.Guests < 0 {
		return Request{}, domain.NewFieldError("guests", "must not be negative")
	}
	if r := p.MinRating; r != nil && (*r < 0 || *r > unitdoc.MaxRating) {
		return Request{}, domain.NewFieldError("min_rating", fmt.Sprintf("must be between 0 and %v", unitdoc.MaxRating))
	}
	if p.MinPrice != nil && *p.MinPrice < 0 {
		return Request{}, domain.NewFieldError("min_price", "must not be negative")
	}
	if p.MaxPrice != nil && *p.MaxPrice < 0 {
		return Request{}, domain.NewFieldError("max_price", "must not be negative")
	}
	if p.MinPrice != nil && p.MaxPrice != nil && *p.MinPrice > *p.MaxPrice {
		return Request{}, domain.NewFieldError("min_price", "must not exceed max_price")
	}
	if g := p.Geo; g != nil {
		if !geo.ValidateCoordinates(g.Latitude, g.Longitude) {
			return Request{}, domain.NewFieldError("geo", "coordinates out of range")
		}
		if g.RadiusKm <= 0 {
			return Request{}, domain.NewFieldError("geo.radius_km", "must be positive")
		}
		if g.RadiusKm > geo.MaxRadiusKm {
			return Request{}, domain.NewFieldError("geo.radius_km", fmt.Sprintf("must not exceed %v", geo.MaxRadiusKm))
		}
	}
	if len(p.AmenityIDs) > MaxIDs || len(p.ServiceIDs) > MaxIDs {
		return Request{}, domain.NewFieldError("amenity_ids", fmt.Sprintf("at most %d ids", MaxIDs))
	}
	p.AmenityIDs = normalizeIDs(p.AmenityIDs)
	p.ServiceIDs = normalizeIDs(p.ServiceIDs)
	if len(p.Text) > MaxTextLength {
		return Request{}, domain.NewFieldError("text", fmt.Sprintf("too long (max %d chars)", MaxTextLength))
	}

	fields, err := parseFields(p.Fields)
	if err != nil {
		return Request{}, err
	}
	stay, err := parseStay(p.CheckIn, p.CheckOut)
	if err != nil {
		return Request{}, err
	}

	if p.Sort == "" {
		p.Sort = sortby.Rating
	}
	if !p.Sort.IsValid() {
		return Request{}, domain.NewFieldError("sort", fmt.Sprintf("unknown sort key %q", p.Sort))
	}
	if p.Sort == sortby.Distance && p.Geo == nil {
		return Request{}, domain.NewFieldError("sort", "distance sort requires geo")
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}

	return Request{
		params:   p,
		fields:   fields,
		keywords: unitdoc.KeywordBag(p.Text),
		stay:     stay,
	}, nil
}

// Params returns a copy of the normalized parameters.
func (r *Request) Params() Params { return r.params.Clone() }

// City returns the city filter ("" when absent).
func (r *Request) City() string { return r.params.City }

// PropertyTypeID returns the property type filter.
func (r *Request) PropertyTypeID() string { return r.params.PropertyTypeID }

// UnitTypeID returns the unit type filter.
func (r *Request) UnitTypeID() string { return r.params.UnitTypeID }

// Guests returns the required capacity (0 = any).
func (r *Request) Guests() int { return r.params.Guests }

// MinRating returns the rating floor.
func (r *Request) MinRating() *float64 { return r.params.MinRating }

// PriceRange returns the nightly price bounds.
func (r *Request) PriceRange() (minPrice, maxPrice *float64) { return r.params.MinPrice, r.params.MaxPrice }

// HasPriceFilter reports whether any price bound is set.
func (r *Request) HasPriceFilter() bool { return r.params.MinPrice != nil || r.params.MaxPrice != nil }

// Geo returns the geo-radius filter.
func (r *Request) Geo() *GeoParams { return r.params.Geo }

// Center returns the geo center, if any.
func (r *Request) Center() (geo.Point, bool) {
	if r.params.Geo == nil {
		return geo.Point{}, false
	}
	return geo.Point{Latitude: r.params.Geo.Latitude, Longitude: r.params.Geo.Longitude}, true
}

// AmenityIDs returns the required amenities (AND).
func (r *Request) AmenityIDs() []string { return r.params.AmenityIDs }

// ServiceIDs returns the required services (AND).
func (r *Request) ServiceIDs() []string { return r.params.ServiceIDs }

// Fields returns the dynamic-field conditions.
func (r *Request) Fields() []filter.Condition { return r.fields }

// Keywords returns the tokenized free-text query.
func (r *Request) Keywords() []string { return r.keywords }

// Stay returns the requested stay, nil when no dates were given.
func (r *Request) Stay() *Stay { return r.stay }

// Sort returns the ordering.
func (r *Request) Sort() sortby.Key { return r.params.Sort }

// Page returns the 1-based page number.
func (r *Request) Page() int { return r.params.Page }

// PageSize returns the page size.
func (r *Request) PageSize() int { return r.params.PageSize }

func parseFields(in []FieldParams) ([]filter.Condition, error) {
	if len(in) > filter.MaxConditions {
		return nil, domain.NewFieldError("fields", fmt.Sprintf("at most %d conditions", filter.MaxConditions))
	}
	out := make([]filter.Condition, 0, len(in))
	for _, f := range in {
		var (
			c   filter.Condition
			err error
		)
		switch {
		case f.Match != "" && (f.Min != nil || f.Max != nil):
			err = fmt.Errorf("field %q: match and range are mutually exclusive", f.Name)
		case f.Match != "":
			c, err = filter.NewMatch(f.Name, f.Match)
		default:
			var rng filter.Range
			rng, err = filter.NewRangeFilter(f.Min, f.Max)
			if err == nil {
				c, err = filter.NewRange(f.Name, rng)
			}
		}
		if err != nil {
			return nil, domain.NewFieldError("fields", err.Error())
		}
		out = append(out, c)
	}
	return out, nil
}

func parseStay(checkIn, checkOut string) (*Stay, error) {
	if checkIn == "" && checkOut == "" {
		return nil, nil
	}
	if checkIn == "" || checkOut == "" {
		return nil, domain.NewFieldError("check_in", "check_in and check_out must be given together")
	}
	in, err := time.Parse(time.DateOnly, checkIn)
	if err != nil {
		return nil, domain.NewFieldError("check_in", "expected YYYY-MM-DD")
	}
	out, err := time.Parse(time.DateOnly, checkOut)
	if err != nil {
		return nil, domain.NewFieldError("check_out", "expected YYYY-MM-DD")
	}
	if !in.Before(out) {
		return nil, fmt.Errorf("%w: check_in %s must be before check_out %s", domain.ErrInvalidRange, checkIn, checkOut)
	}
	if out.Sub(in) > MaxStayNights*24*time.Hour {
		return nil, domain.NewFieldError("check_out", fmt.Sprintf("stay longer than %d nights", MaxStayNights))
	}
	return &Stay{CheckIn: in, CheckOut: out}, nil
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
