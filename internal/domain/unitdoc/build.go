package unitdoc

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/staydex/internal/domain/catalog"
	"github.com/kailas-cloud/staydex/internal/domain/period"
)

// Source is everything read from the source of truth to build one document.
type Source struct {
	Property  catalog.Property
	Unit      catalog.Unit
	Amenities []catalog.Amenity
	Services  []catalog.Service
	Fields    []catalog.FieldDefinition
	Values    []catalog.FieldValue
	Schedule  catalog.Schedule
}

// Horizon is the [From, To) day window summarized into a document.
type Horizon struct {
	From time.Time
	To   time.Time
}

// NewHorizon returns the window of days starting at the day of now.
func NewHorizon(now time.Time, days int) Horizon {
	from := period.Midnight(now)
	return Horizon{From: from, To: from.AddDate(0, 0, days)}
}

// Build assembles and validates the document for src.
func Build(src Source, h Horizon, now time.Time) (Document, error) {
	p, u := src.Property, src.Unit

	d := Document{
		UnitID:         u.ID,
		PropertyID:     p.ID,
		UnitName:       u.Name,
		PropertyName:   p.Name,
		City:           p.City,
		PropertyTypeID: p.PropertyTypeID,
		UnitTypeID:     u.UnitTypeID,
		StarRating:     p.StarRating,
		AverageRating:  p.AverageRating,
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		Approved:       p.Approved,
		Capacity: Capacity{
			Total:    u.MaxCapacity,
			Adults:   u.AdultsCapacity,
			Children: u.ChildrenCapacity,
		},
		PricingMethod: string(u.PricingMethod),
		BookingCount:  u.BookingCount,
		CreatedAt:     u.CreatedAt.UTC(),
		IndexedAt:     now.UTC(),
	}

	texts := []string{p.Name, u.Name, p.City}

	for _, a := range src.Amenities {
		d.AmenityIDs = append(d.AmenityIDs, a.ID)
		texts = append(texts, a.Name)
	}
	for _, s := range src.Services {
		d.ServiceIDs = append(d.ServiceIDs, s.ID)
		texts = append(texts, s.Name)
	}
	d.AmenityIDs = sortedUnique(d.AmenityIDs)
	d.ServiceIDs = sortedUnique(d.ServiceIDs)

	var primary []string
	d.TextFields, d.NumericFields, primary = SplitFields(src.Fields, src.Values)
	texts = append(texts, primary...)
	d.Keywords = KeywordBag(texts...)

	d.Availability, d.Pricing = SummarizeSchedule(u.BasePrice, src.Schedule, h)

	if err := d.Validate(); err != nil {
		return Document{}, err
	}
	return d, nil
}

// SplitFields resolves field values against their definitions into text and
// numeric maps keyed by field name. Values of unknown fields are dropped.
// The third result lists text values of primary-filter fields.
func SplitFields(
	defs []catalog.FieldDefinition, values []catalog.FieldValue,
) (map[string]string, map[string]float64, []string) {
	byID := make(map[string]catalog.FieldDefinition, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
	}

	text := make(map[string]string)
	num := make(map[string]float64)
	var primary []string
	for _, v := range values {
		def, ok := byID[v.FieldID]
		if !ok || def.Name == "" {
			continue
		}
		if def.Kind.IsNumeric() {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64); err == nil {
				num[def.Name] = f
			}
			continue
		}
		val := strings.TrimSpace(v.Value)
		if def.Kind == catalog.FieldBoolean {
			b, err := strconv.ParseBool(val)
			if err != nil {
				continue
			}
			val = strconv.FormatBool(b)
		}
		if val == "" {
			continue
		}
		text[def.Name] = val
		if def.IsPrimaryFilter {
			primary = append(primary, val)
		}
	}
	return text, num, primary
}

// SummarizeSchedule clips schedule to the horizon and summarizes its
// availability and pricing.
func SummarizeSchedule(basePrice float64, schedule []period.Day, h Horizon) (Availability, Pricing) {
	window := clip(schedule, h)
	return SummarizeAvailability(window, h), SummarizePricing(basePrice, window, h)
}

// SummarizeAvailability compresses the blocked days of schedule and finds
// the first open day of the horizon.
func SummarizeAvailability(schedule []period.Day, h Horizon) Availability {
	intervals := period.CompressBlockedPeriods(schedule)
	a := Availability{Blocked: period.EncodeIntervals(intervals)}

	next := h.From
	for _, iv := range intervals {
		if iv.Start <= next.Unix() && next.Unix() < iv.End {
			next = iv.EndTime()
		}
	}
	if next.Before(h.To) || h.To.IsZero() {
		a.NextAvailable = next.Format(time.DateOnly)
	}
	a.IsAvailable = next.Equal(h.From)
	return a
}

// SummarizePricing computes min/max/avg over the priced days of schedule,
// falling back to basePrice when nothing in the horizon is priced.
func SummarizePricing(basePrice float64, schedule []period.Day, h Horizon) Pricing {
	p := Pricing{Base: basePrice}
	if !h.From.IsZero() {
		p.From = h.From.Format(time.DateOnly)
		p.To = h.To.Format(time.DateOnly)
	}

	var sum float64
	var n int
	for _, d := range schedule {
		if d.Price == nil {
			continue
		}
		v := *d.Price
		if n == 0 || v < p.Min {
			p.Min = v
		}
		if n == 0 || v > p.Max {
			p.Max = v
		}
		sum += v
		n++
	}
	switch {
	case n > 0:
		p.Avg = min(max(sum/float64(n), p.Min), p.Max)
	case basePrice > 0:
		p.Min, p.Max, p.Avg = basePrice, basePrice, basePrice
	}

	if len(schedule) > 0 {
		p.Schedule = schedule
	}
	return p
}

// clip keeps the days inside the horizon, normalized to midnight and sorted.
func clip(schedule []period.Day, h Horizon) []period.Day {
	out := make([]period.Day, 0, len(schedule))
	for _, d := range schedule {
		day := period.Midnight(d.Date)
		if !h.From.IsZero() && (day.Before(h.From) || !day.Before(h.To)) {
			continue
		}
		d.Date = day
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b period.Day) int { return a.Date.Compare(b.Date) })
	return out
}

func sortedUnique(ids []string) []string {
	if len(ids) == 0 {
		return []string{}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
