package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/staydex/internal/domain"
	"github.com/kailas-cloud/staydex/internal/domain/search/sortby"
)

func floatPtr(f float64) *float64 { return &f }

func TestNew_Defaults(t *testing.T) {
	r, err := New(Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Sort() != sortby.Rating {
		t.Errorf("Sort() = %q, want rating (default)", r.Sort())
	}
	if r.Page() != 1 || r.PageSize() != DefaultPageSize {
		t.Errorf("Page() = %d, PageSize() = %d", r.Page(), r.PageSize())
	}
	if r.Stay() != nil || r.HasPriceFilter() || r.Geo() != nil {
		t.Error("expected no optional filters")
	}
}

func TestNew_Normalizes(t *testing.T) {
	r, err := New(Params{
		City:       "  Sana'a ",
		AmenityIDs: []string{"wifi", " ac", "wifi", ""},
		Text:       "Old City view",
		PageSize:   1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.City() != "Sana'a" {
		t.Errorf("City() = %q", r.City())
	}
	if got := r.AmenityIDs(); len(got) != 2 || got[0] != "ac" || got[1] != "wifi" {
		t.Errorf("AmenityIDs() = %v", got)
	}
	if got := r.Keywords(); len(got) != 3 {
		t.Errorf("Keywords() = %v", got)
	}
	if r.PageSize() != MaxPageSize {
		t.Errorf("PageSize() = %d, want clamp to %d", r.PageSize(), MaxPageSize)
	}
}

func TestNew_Stay(t *testing.T) {
	r, err := New(Params{CheckIn: "2024-06-01", CheckOut: "2024-06-04"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Stay() == nil || r.Stay().CheckOut.Sub(r.Stay().CheckIn).Hours() != 72 {
		t.Errorf("Stay() = %+v", r.Stay())
	}
}

func TestNew_InvalidRange(t *testing.T) {
	_, err := New(Params{CheckIn: "2024-06-04", CheckOut: "2024-06-04"})
	if !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestNew_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		p    Params
		want string
	}{
		{"negative guests", Params{Guests: -1}, "guests"},
		{"rating above max", Params{MinRating: floatPtr(6)}, "min_rating"},
		{"negative price", Params{MinPrice: floatPtr(-1)}, "min_price"},
		{"inverted price", Params{MinPrice: floatPtr(200), MaxPrice: floatPtr(100)}, "min_price"},
		{"negative radius", Params{Geo: &GeoParams{Latitude: 15, Longitude: 44, RadiusKm: -5}}, "radius_km"},
		{"bad coordinates", Params{Geo: &GeoParams{Latitude: 95, Longitude: 44, RadiusKm: 5}}, "geo"},
		{"text too long", Params{Text: strings.Repeat("x", MaxTextLength+1)}, "text"},
		{"one date only", Params{CheckIn: "2024-06-01"}, "check_in"},
		{"bad date", Params{CheckIn: "06/01/2024", CheckOut: "2024-06-04"}, "check_in"},
		{"unknown sort", Params{Sort: "cheapest"}, "sort"},
		{"distance without geo", Params{Sort: sortby.Distance}, "sort"},
		{"field without bounds", Params{Fields: []FieldParams{{Name: "floor"}}}, "fields"},
		{"field match and range", Params{Fields: []FieldParams{{Name: "floor", Match: "3", Min: floatPtr(1)}}}, "fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.p)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var fe *domain.FieldError
			if !errors.As(err, &fe) || !strings.Contains(fe.Field, tt.want) {
				t.Errorf("field = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestNew_Fields(t *testing.T) {
	r, err := New(Params{Fields: []FieldParams{
		{Name: "view", Match: "sea"},
		{Name: "floor", Min: floatPtr(2)},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fs := r.Fields()
	if len(fs) != 2 || !fs[0].IsMatch() || !fs[1].IsRange() {
		t.Errorf("Fields() = %+v", fs)
	}
}

func TestParams_CloneIsDeep(t *testing.T) {
	p := Params{MinRating: floatPtr(4), Geo: &GeoParams{RadiusKm: 5}, AmenityIDs: []string{"a"}}
	c := p.Clone()
	*c.MinRating = 1
	c.Geo.RadiusKm = 50
	c.AmenityIDs[0] = "b"
	if *p.MinRating != 4 || p.Geo.RadiusKm != 5 || p.AmenityIDs[0] != "a" {
		t.Errorf("original mutated: %+v", p)
	}
}

func TestRequest_ParamsIsCopy(t *testing.T) {
	r, err := New(Params{MinRating: floatPtr(4.5)})
	if err != nil {
		t.Fatal(err)
	}
	p := r.Params()
	*p.MinRating = 1
	if *r.MinRating() != 4.5 {
		t.Errorf("request mutated through Params(): %v", *r.MinRating())
	}
}
