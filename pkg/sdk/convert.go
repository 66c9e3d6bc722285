package staydex

import (
	"github.com/kailas-cloud/staydex/internal/domain/batch"
	"github.com/kailas-cloud/staydex/internal/domain/search/request"
	"github.com/kailas-cloud/staydex/internal/domain/search/result"
	"github.com/kailas-cloud/staydex/internal/domain/search/sortby"
	"github.com/kailas-cloud/staydex/internal/repository/unitindex"
	indexinguc "github.com/kailas-cloud/staydex/internal/usecase/indexing"
)

func toParams(r *SearchRequest) request.Params {
	p := request.Params{
		City:           r.City,
		PropertyTypeID: r.PropertyTypeID,
		UnitTypeID:     r.UnitTypeID,
		Guests:         r.Guests,
		MinRating:      r.MinRating,
		MinPrice:       r.MinPrice,
		MaxPrice:       r.MaxPrice,
		AmenityIDs:     r.AmenityIDs,
		ServiceIDs:     r.ServiceIDs,
		Text:           r.Text,
		CheckIn:        r.CheckIn,
		CheckOut:       r.CheckOut,
		Sort:           sortby.Key(r.Sort),
		Page:           r.Page,
		PageSize:       r.PageSize,
	}
	if r.Geo != nil {
		p.Geo = &request.GeoParams{
			Latitude:  r.Geo.Latitude,
			Longitude: r.Geo.Longitude,
			RadiusKm:  r.Geo.RadiusKm,
		}
	}
	if len(r.Fields) > 0 {
		p.Fields = make([]request.FieldParams, len(r.Fields))
		for i, f := range r.Fields {
			p.Fields[i] = request.FieldParams{Name: f.Name, Match: f.Match, Min: f.Min, Max: f.Max}
		}
	}
	return p
}

func fromUnit(u *result.Unit) Unit {
	out := Unit{
		UnitID:         u.UnitID,
		PropertyID:     u.PropertyID,
		UnitName:       u.UnitName,
		PropertyName:   u.PropertyName,
		City:           u.City,
		PropertyTypeID: u.PropertyTypeID,
		UnitTypeID:     u.UnitTypeID,
		StarRating:     u.StarRating,
		AverageRating:  u.AverageRating,
		Latitude:       u.Latitude,
		Longitude:      u.Longitude,
		Capacity: Capacity{
			Total:    u.Capacity.Total,
			Adults:   u.Capacity.Adults,
			Children: u.Capacity.Children,
		},
		AmenityIDs:    u.AmenityIDs,
		ServiceIDs:    u.ServiceIDs,
		TextFields:    u.TextFields,
		NumericFields: u.NumericFields,
		BookingCount:  u.BookingCount,
		NightlyPrice:  u.NightlyPrice,
		DistanceKm:    u.DistanceKm,
	}
	if q := u.Quote; q != nil {
		out.Quote = &Quote{
			Total:           q.Total,
			Nights:          q.Nights,
			AveragePerNight: q.AveragePerNight,
			Extrapolated:    q.Extrapolated,
			MissingDays:     q.MissingDays,
		}
	}
	return out
}

func fromUnits(in []result.Unit) []Unit {
	out := make([]Unit, len(in))
	for i := range in {
		out[i] = fromUnit(&in[i])
	}
	return out
}

func fromProperty(p *result.Property) Property {
	return Property{
		PropertyID:     p.PropertyID,
		Name:           p.Name,
		City:           p.City,
		PropertyTypeID: p.PropertyTypeID,
		StarRating:     p.StarRating,
		AverageRating:  p.AverageRating,
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		MinPrice:       p.MinPrice,
		MaxPrice:       p.MaxPrice,
		DistanceKm:     p.DistanceKm,
		Units:          fromUnits(p.Units),
	}
}

// fromPage converts a result page, mapping each item with conv.
func fromPage[S, T any](in *result.Page[S], conv func(*S) T) Page[T] {
	items := make([]T, len(in.Items))
	for i := range in.Items {
		items[i] = conv(&in.Items[i])
	}
	return Page[T]{
		Items:      items,
		Page:       in.Page,
		PageSize:   in.PageSize,
		Total:      in.Total,
		TotalPages: in.TotalPages,
		Strategy: Strategy{
			Level:          in.Strategy.Level.String(),
			Description:    in.Strategy.Description,
			RelaxedFilters: in.Strategy.RelaxedFilters,
			IsSuggestion:   in.Strategy.IsSuggestion,
		},
	}
}

func fromReport(r *batch.Report) RebuildReport {
	return RebuildReport{Indexed: r.Indexed, Removed: r.Removed, Failed: r.Failed, Errors: r.Errors}
}

func fromCleanup(r *indexinguc.CleanupReport) CleanupReport {
	return CleanupReport{
		OrphanDocuments: r.OrphanDocuments,
		IndexesScanned:  r.IndexesScanned,
		StaleReferences: r.StaleReferences,
	}
}

func fromStats(s *unitindex.Statistics) IndexStats {
	return IndexStats{
		Documents:  s.Documents,
		Approved:   s.Approved,
		Geo:        s.Geo,
		Priced:     s.Priced,
		ByCity:     s.ByCity,
		ByUnitType: s.ByUnitType,
		Meta:       s.Meta,
		IndexKeys:  s.IndexKeys,
		KeyPrefix:  s.KeyPrefix,
	}
}
