package relax

import (
	"slices"
	"testing"

	"github.com/kailas-cloud/staydex/internal/domain/search/request"
	"github.com/kailas-cloud/staydex/internal/domain/search/sortby"
)

func floatPtr(f float64) *float64 { return &f }

func TestLevel_String(t *testing.T) {
	tests := map[Level]string{
		Exact:                  "exact",
		Minor:                  "minor_relaxation",
		Moderate:               "moderate_relaxation",
		Major:                  "major_relaxation",
		AlternativeSuggestions: "alternative_suggestions",
	}
	for l, want := range tests {
		if l.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(l), l.String(), want)
		}
	}
	if !AlternativeSuggestions.Terminal() || Major.Terminal() {
		t.Error("only AlternativeSuggestions is terminal")
	}
}

func TestLevels_Ordered(t *testing.T) {
	for i := 1; i < len(Levels); i++ {
		if Levels[i-1] >= Levels[i] {
			t.Fatalf("levels not ordered at %d", i)
		}
	}
}

func TestApply_Exact(t *testing.T) {
	p := request.Params{City: "Aden", MinRating: floatPtr(4.5)}
	out, relaxed := Apply(p, Exact, DefaultPolicy())
	if len(relaxed) != 0 {
		t.Errorf("relaxed = %v", relaxed)
	}
	if *out.MinRating != 4.5 || out.City != "Aden" {
		t.Errorf("exact level changed params: %+v", out)
	}
}

func TestApply_MinorRatingOnly(t *testing.T) {
	p := request.Params{City: "Sana'a", MinRating: floatPtr(4.5)}
	out, relaxed := Apply(p, Minor, DefaultPolicy())

	if !slices.Equal(relaxed, []string{FilterMinRating}) {
		t.Errorf("relaxed = %v, want [minRating]", relaxed)
	}
	if out.MinRating == nil || *out.MinRating != 4.0 {
		t.Errorf("MinRating = %v, want 4.0", out.MinRating)
	}
	if out.City != "Sana'a" {
		t.Errorf("City = %q", out.City)
	}
	if *p.MinRating != 4.5 {
		t.Error("input params mutated")
	}
}

func TestApply_Minor_PriceAndRadius(t *testing.T) {
	p := request.Params{
		MinPrice: floatPtr(100), MaxPrice: floatPtr(200),
		Geo: &request.GeoParams{Latitude: 15, Longitude: 44, RadiusKm: 10},
	}
	out, relaxed := Apply(p, Minor, DefaultPolicy())

	if *out.MinPrice != 90 || *out.MaxPrice != 220 {
		t.Errorf("price = %v..%v, want 90..220", *out.MinPrice, *out.MaxPrice)
	}
	if out.Geo.RadiusKm != 15 {
		t.Errorf("radius = %v, want 15", out.Geo.RadiusKm)
	}
	want := []string{FilterMinPrice, FilterMaxPrice, FilterRadius}
	if !slices.Equal(relaxed, want) {
		t.Errorf("relaxed = %v, want %v", relaxed, want)
	}
	if p.Geo.RadiusKm != 10 {
		t.Error("input geo mutated")
	}
}

func TestApply_Moderate(t *testing.T) {
	p := request.Params{
		MinRating: floatPtr(4), Guests: 4,
		ServiceIDs: []string{"breakfast"}, AmenityIDs: []string{"wifi"},
	}
	out, relaxed := Apply(p, Moderate, DefaultPolicy())

	if *out.MinRating != 3 || out.Guests != 3 || out.ServiceIDs != nil {
		t.Errorf("unexpected params: %+v", out)
	}
	if len(out.AmenityIDs) != 1 {
		t.Error("amenities must survive moderate relaxation")
	}
	want := []string{FilterMinRating, FilterGuests, FilterServices}
	if !slices.Equal(relaxed, want) {
		t.Errorf("relaxed = %v, want %v", relaxed, want)
	}
}

func TestApply_Major_KeepsLocationTypeAndDates(t *testing.T) {
	p := request.Params{
		City: "Aden", UnitTypeID: "villa", PropertyTypeID: "resort",
		MinRating: floatPtr(3), Text: "sea view", AmenityIDs: []string{"pool"},
		Fields:  []request.FieldParams{{Name: "view", Match: "sea"}},
		CheckIn: "2024-06-01", CheckOut: "2024-06-04",
	}
	out, relaxed := Apply(p, Major, DefaultPolicy())

	if out.City != "Aden" || out.UnitTypeID != "villa" || out.CheckIn == "" {
		t.Errorf("hard filters dropped: %+v", out)
	}
	if out.MinRating != nil || out.Text != "" || out.AmenityIDs != nil || out.Fields != nil || out.PropertyTypeID != "" {
		t.Errorf("major should drop soft filters: %+v", out)
	}
	for _, f := range []string{FilterMinRating, FilterAmenities, FilterFields, FilterText, FilterPropertyType} {
		if !slices.Contains(relaxed, f) {
			t.Errorf("relaxed %v missing %q", relaxed, f)
		}
	}
}

func TestApply_RatingFloorAtZeroDrops(t *testing.T) {
	out, relaxed := Apply(request.Params{MinRating: floatPtr(0.5)}, Minor, DefaultPolicy())
	if out.MinRating != nil {
		t.Errorf("MinRating = %v, want nil", *out.MinRating)
	}
	if !slices.Equal(relaxed, []string{FilterMinRating}) {
		t.Errorf("relaxed = %v", relaxed)
	}
}

func TestApply_RadiusClamped(t *testing.T) {
	p := request.Params{Geo: &request.GeoParams{RadiusKm: 400}}
	out, _ := Apply(p, Major, DefaultPolicy())
	if out.Geo.RadiusKm != 500 {
		t.Errorf("radius = %v, want clamp to 500", out.Geo.RadiusKm)
	}
}

func TestApply_Suggestions(t *testing.T) {
	p := request.Params{
		City: "Aden", MinRating: floatPtr(4), Sort: sortby.Distance,
		Geo:     &request.GeoParams{Latitude: 12.8, Longitude: 45, RadiusKm: 5},
		CheckIn: "2024-06-01", CheckOut: "2024-06-04", Page: 2, PageSize: 10,
	}
	out, relaxed := Apply(p, AlternativeSuggestions, DefaultPolicy())

	if out.City != "" || out.Geo != nil || out.CheckIn != "" || out.MinRating != nil {
		t.Errorf("suggestions must keep only hard filters: %+v", out)
	}
	if out.Sort != sortby.Rating {
		t.Errorf("Sort = %q, want rating fallback", out.Sort)
	}
	if out.Page != 2 || out.PageSize != 10 {
		t.Errorf("paging lost: %+v", out)
	}
	want := []string{FilterCity, FilterMinRating, FilterRadius, FilterDates}
	if !slices.Equal(relaxed, want) {
		t.Errorf("relaxed = %v, want %v", relaxed, want)
	}
	if _, err := request.New(out); err != nil {
		t.Errorf("suggestion params must validate: %v", err)
	}
}

func TestNewStrategy(t *testing.T) {
	s := NewStrategy(Exact, nil)
	if s.RelaxedFilters == nil || len(s.RelaxedFilters) != 0 {
		t.Errorf("RelaxedFilters = %v, want empty slice", s.RelaxedFilters)
	}
	if s.IsSuggestion || s.Description == "" {
		t.Errorf("unexpected strategy: %+v", s)
	}
	if !NewStrategy(AlternativeSuggestions, nil).IsSuggestion {
		t.Error("suggestions level must be flagged")
	}
}

func TestLevel_TextRoundTrip(t *testing.T) {
	for _, l := range Levels {
		b, err := l.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got Level
		if err := got.UnmarshalText(b); err != nil || got != l {
			t.Errorf("%s: got %v, err %v", l, got, err)
		}
	}
	var l Level
	if err := l.UnmarshalText([]byte("drastic")); err == nil {
		t.Error("expected error for unknown level")
	}
}
