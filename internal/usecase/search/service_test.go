package search

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/staydex/internal/db/memory"
	"github.com/kailas-cloud/staydex/internal/domain"
	"github.com/kailas-cloud/staydex/internal/domain/period"
	"github.com/kailas-cloud/staydex/internal/domain/search/relax"
	"github.com/kailas-cloud/staydex/internal/domain/search/request"
	"github.com/kailas-cloud/staydex/internal/domain/search/result"
	"github.com/kailas-cloud/staydex/internal/domain/search/sortby"
	"github.com/kailas-cloud/staydex/internal/domain/unitdoc"
	"github.com/kailas-cloud/staydex/internal/repository/unitindex"
)

// --- Fixtures ---

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func price(v float64) *float64 { return &v }

type fakeSchedules struct {
	mu    sync.Mutex
	days  map[string][]period.Day
	calls int
}

func (f *fakeSchedules) ListSchedule(_ context.Context, unitID string, _, _ time.Time) ([]period.Day, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.days[unitID], nil
}

type unitSpec struct {
	unit, property, city, unitType, name string
	rating                               float64
	base                                 float64
	capacity                             int
	approved                             bool
	amenities                            []string
	lat, lon                             float64
	text                                 map[string]string
	numeric                              map[string]float64
	schedule                             []period.Day
	created                              string
	bookings                             int64
}

// horizon covers 2024-06-01 to 2024-12-01.
var horizon = unitdoc.NewHorizon(day("2024-06-01"), 183)

func (u unitSpec) doc() unitdoc.Document {
	avail, pricing := unitdoc.SummarizeSchedule(u.base, u.schedule, horizon)
	return unitdoc.Document{
		UnitID: u.unit, PropertyID: u.property, UnitName: u.unit, PropertyName: u.name,
		City: u.city, PropertyTypeID: "hotel", UnitTypeID: u.unitType,
		AverageRating: u.rating, Latitude: u.lat, Longitude: u.lon, Approved: u.approved,
		Capacity:      unitdoc.Capacity{Total: u.capacity, Adults: u.capacity},
		BookingCount:  u.bookings,
		AmenityIDs:    u.amenities,
		ServiceIDs:    []string{},
		TextFields:    u.text,
		NumericFields: u.numeric,
		Availability:  avail,
		Pricing:       pricing,
		Keywords:      unitdoc.KeywordBag(u.name, u.city),
		CreatedAt:     day(u.created),
	}
}

var units = []unitSpec{
	{
		unit: "u1", property: "p1", city: "Sana'a", unitType: "suite", name: "Old City Hotel",
		rating: 4.3, base: 100, capacity: 2, approved: true, amenities: []string{"wifi"},
		lat: 15.35, lon: 44.2, created: "2024-01-01", bookings: 40,
		text:    map[string]string{"view": "Mountain"},
		numeric: map[string]float64{"floor": 3},
		schedule: []period.Day{
			{Date: day("2024-06-01"), Price: price(150), Status: period.StatusAvailable},
			{Date: day("2024-06-02"), Price: price(150), Status: period.StatusAvailable},
			{Date: day("2024-06-03"), Price: price(200), Status: period.StatusAvailable},
		},
	},
	{
		unit: "u2", property: "p1", city: "Sana'a", unitType: "room", name: "Old City Hotel",
		rating: 4.3, base: 120, capacity: 4, approved: true, amenities: []string{"wifi"},
		lat: 15.35, lon: 44.2, created: "2024-03-01", bookings: 5,
		numeric: map[string]float64{"floor": 1},
		schedule: []period.Day{
			{Date: day("2024-07-10"), Status: period.StatusBooked},
			{Date: day("2024-07-11"), Status: period.StatusBooked},
			{Date: day("2024-07-12"), Status: period.StatusBooked},
		},
	},
	{
		unit: "u3", property: "p2", city: "Aden", unitType: "apartment", name: "Harbor Apartments",
		rating: 4.8, base: 60, capacity: 3, approved: true, amenities: []string{"pool"},
		lat: 12.78, lon: 45.03, created: "2024-02-01", bookings: 12,
	},
	{
		unit: "u4", property: "p3", city: "Sana'a", unitType: "room", name: "Pending Inn",
		rating: 5, base: 90, capacity: 2, approved: false,
		lat: 15.36, lon: 44.21, created: "2024-04-01",
	},
}

type fixture struct {
	store     *memory.Store
	repo      *unitindex.Repo
	keys      unitindex.Keys
	schedules *fakeSchedules
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	keys := unitindex.NewKeys("t:")
	store := memory.New()
	repo := unitindex.New(store, keys)
	for _, u := range units {
		d := u.doc()
		if err := repo.Replace(ctx, nil, &d); err != nil {
			t.Fatalf("index %s: %v", u.unit, err)
		}
	}
	sch := &fakeSchedules{days: map[string][]period.Day{}}
	svc := New(repo, sch, nil).WithLoadBatch(2).WithConcurrency(2)
	return &fixture{store: store, repo: repo, keys: keys, schedules: sch, svc: svc}
}

func ids(items []result.Unit) []string {
	out := make([]string, len(items))
	for i, u := range items {
		out[i] = u.UnitID
	}
	return out
}

// --- Tests ---

func TestSearchUnits_ExactMatch(t *testing.T) {
	fx := newFixture(t)
	page, err := fx.svc.SearchUnits(context.Background(), request.Params{City: "sana'a"})
	if err != nil {
		t.Fatalf("SearchUnits: %v", err)
	}
	if page.Strategy.Level != relax.Exact || page.Strategy.IsSuggestion {
		t.Errorf("strategy = %+v, want exact", page.Strategy)
	}
	if len(page.Strategy.RelaxedFilters) != 0 {
		t.Errorf("relaxed = %v", page.Strategy.RelaxedFilters)
	}
	got := ids(page.Items)
	if !slices.Equal(got, []string{"u1", "u2"}) {
		t.Errorf("units = %v, want [u1 u2] (unapproved u4 excluded)", got)
	}
}

func TestSearchUnits_StayQuote(t *testing.T) {
	fx := newFixture(t)
	page, err := fx.svc.SearchUnits(context.Background(), request.Params{
		UnitTypeID: "suite", CheckIn: "2024-06-01", CheckOut: "2024-06-04",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("items = %v", ids(page.Items))
	}
	u := page.Items[0]
	if u.Quote == nil {
		t.Fatal("quote missing")
	}
	if u.Quote.Total != 500 || u.Quote.Nights != 3 {
		t.Errorf("quote = %+v, want total 500 over 3 nights", *u.Quote)
	}
	if math.Abs(u.NightlyPrice-166.67) > 0.001 {
		t.Errorf("nightly = %v, want 166.67", u.NightlyPrice)
	}
	if fx.schedules.calls != 0 {
		t.Errorf("schedule read from source %d times for a stay inside the horizon", fx.schedules.calls)
	}
}

func TestSearchUnits_BlockedStayFallsBackToSuggestions(t *testing.T) {
	fx := newFixture(t)
	page, err := fx.svc.SearchUnits(context.Background(), request.Params{
		City: "Sana'a", UnitTypeID: "room", CheckIn: "2024-07-11", CheckOut: "2024-07-13",
	})
	if err != nil {
		t.Fatal(err)
	}
	if page.Strategy.Level != relax.AlternativeSuggestions || !page.Strategy.IsSuggestion {
		t.Errorf("strategy = %+v, want suggestions", page.Strategy)
	}
	want := []string{relax.FilterCity, relax.FilterUnitType, relax.FilterDates}
	if !slices.Equal(page.Strategy.RelaxedFilters, want) {
		t.Errorf("relaxed = %v, want %v", page.Strategy.RelaxedFilters, want)
	}
	if got := ids(page.Items); !slices.Equal(got, []string{"u3", "u1", "u2"}) {
		t.Errorf("suggestions = %v", got)
	}
	for _, u := range page.Items {
		if u.Quote != nil {
			t.Errorf("suggestion %s carries a quote", u.UnitID)
		}
	}
}

func TestSearchUnits_RelaxesRatingFloor(t *testing.T) {
	fx := newFixture(t)
	page, err := fx.svc.SearchUnits(context.Background(), request.Params{
		City: "Sana'a", MinRating: price(4.5),
	})
	if err != nil {
		t.Fatal(err)
	}
	if page.Strategy.Level != relax.Minor {
		t.Errorf("level = %v, want %v", page.Strategy.Level, relax.Minor)
	}
	if !slices.Equal(page.Strategy.RelaxedFilters, []string{relax.FilterMinRating}) {
		t.Errorf("relaxed = %v", page.Strategy.RelaxedFilters)
	}
	if len(page.Items) == 0 {
		t.Fatal("no results after relaxation")
	}
	for _, u := range page.Items {
		if u.City != "Sana'a" || u.AverageRating < 4.0 {
			t.Errorf("result %s violates kept filters: city=%s rating=%v", u.UnitID, u.City, u.AverageRating)
		}
	}
}

func TestSearchUnits_SkipsLevelsThatWidenNothing(t *testing.T) {
	fx := newFixture(t)
	page, err := fx.svc.SearchUnits(context.Background(), request.Params{
		AmenityIDs: []string{"wifi", "pool"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if page.Strategy.Level != relax.Major {
		t.Errorf("level = %v, want %v", page.Strategy.Level, relax.Major)
	}
	if !slices.Equal(page.Strategy.RelaxedFilters, []string{relax.FilterAmenities}) {
		t.Errorf("relaxed = %v", page.Strategy.RelaxedFilters)
	}
	if page.Total != 3 {
		t.Errorf("total = %d, want 3", page.Total)
	}
}

func TestSearchUnits_PriceFilterUsesStayPrice(t *testing.T) {
	fx := newFixture(t)
	page, err := fx.svc.SearchUnits(context.Background(), request.Params{
		UnitTypeID: "suite", MaxPrice: price(160), CheckIn: "2024-06-01", CheckOut: "2024-06-04",
	})
	if err != nil {
		t.Fatal(err)
	}
	// The average of 166.67 exceeds 160; a 10% tolerance admits it.
	if page.Strategy.Level != relax.Minor {
		t.Errorf("level = %v, want %v", page.Strategy.Level, relax.Minor)
	}
	if !slices.Equal(page.Strategy.RelaxedFilters, []string{relax.FilterMaxPrice}) {
		t.Errorf("relaxed = %v", page.Strategy.RelaxedFilters)
	}
	if got := ids(page.Items); !slices.Equal(got, []string{"u1"}) {
		t.Errorf("units = %v", got)
	}
}

func TestSearchUnits_Filters(t *testing.T) {
	tests := []struct {
		name   string
		params request.Params
		want   []string
	}{
		{"guests", request.Params{Guests: 3}, []string{"u3", "u2"}},
		{"keywords", request.Params{Text: "old HOTEL"}, []string{"u1", "u2"}},
		{"amenity", request.Params{AmenityIDs: []string{"wifi"}}, []string{"u1", "u2"}},
		{"unit type", request.Params{UnitTypeID: "apartment"}, []string{"u3"}},
		{"price span", request.Params{MinPrice: price(50), MaxPrice: price(80)}, []string{"u3"}},
		{"field range", request.Params{Fields: []request.FieldParams{{Name: "floor", Min: price(2)}}}, []string{"u1"}},
		{"field match", request.Params{Fields: []request.FieldParams{{Name: "view", Match: "Mountain"}}}, []string{"u1"}},
		{"field match folded", request.Params{Fields: []request.FieldParams{{Name: "view", Match: "mountain "}}}, []string{"u1"}},
		{"geo", request.Params{Geo: &request.GeoParams{Latitude: 12.78, Longitude: 45.03, RadiusKm: 10}}, []string{"u3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			page, err := fx.svc.SearchUnits(context.Background(), tt.params)
			if err != nil {
				t.Fatal(err)
			}
			if page.Strategy.Level != relax.Exact {
				t.Errorf("level = %v, want exact", page.Strategy.Level)
			}
			if got := ids(page.Items); !slices.Equal(got, tt.want) {
				t.Errorf("units = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearchUnits_Sorting(t *testing.T) {
	tests := []struct {
		sort sortby.Key
		want []string
	}{
		{sortby.Rating, []string{"u3", "u1", "u2"}},
		{sortby.Newest, []string{"u2", "u3", "u1"}},
		{sortby.Popular, []string{"u1", "u3", "u2"}},
		{sortby.PriceAsc, []string{"u3", "u1", "u2"}},
		{sortby.PriceDesc, []string{"u2", "u1", "u3"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			fx := newFixture(t)
			page, err := fx.svc.SearchUnits(context.Background(), request.Params{Sort: tt.sort})
			if err != nil {
				t.Fatal(err)
			}
			if got := ids(page.Items); !slices.Equal(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearchUnits_DistanceSort(t *testing.T) {
	fx := newFixture(t)
	page, err := fx.svc.SearchUnits(context.Background(), request.Params{
		Geo:  &request.GeoParams{Latitude: 15.35, Longitude: 44.2, RadiusKm: 500},
		Sort: sortby.Distance,
	})
	if err != nil {
		t.Fatal(err)
	}
	got := ids(page.Items)
	if !slices.Equal(got, []string{"u1", "u2", "u3"}) {
		t.Fatalf("order = %v", got)
	}
	if d := page.Items[0].DistanceKm; d == nil || *d != 0 {
		t.Errorf("distance of u1 = %v, want 0", d)
	}
	if d := page.Items[2].DistanceKm; d == nil || *d < 250 || *d > 350 {
		t.Errorf("distance Sana'a to Aden = %v", d)
	}
}

func TestSearchUnits_Pagination(t *testing.T) {
	fx := newFixture(t)
	page, err := fx.svc.SearchUnits(context.Background(), request.Params{Page: 2, PageSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 || page.TotalPages != 3 || page.Page != 2 || page.PageSize != 1 {
		t.Errorf("page = %+v", page)
	}
	if got := ids(page.Items); !slices.Equal(got, []string{"u1"}) {
		t.Errorf("items = %v", got)
	}
}

func TestSearchUnits_StayOutsideHorizonReadsSource(t *testing.T) {
	fx := newFixture(t)
	fx.schedules.days["u3"] = []period.Day{
		{Date: day("2025-01-10"), Price: price(90), Status: period.StatusAvailable},
	}
	fx.schedules.days["u1"] = []period.Day{
		{Date: day("2025-01-11"), Status: period.StatusMaintenance},
	}

	page, err := fx.svc.SearchUnits(context.Background(), request.Params{
		CheckIn: "2025-01-10", CheckOut: "2025-01-12",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(page.Items); !slices.Equal(got, []string{"u3", "u2"}) {
		t.Fatalf("units = %v, want u1 excluded", got)
	}
	if q := page.Items[0].Quote; q == nil || q.Total != 150 {
		t.Errorf("u3 quote = %+v, want 90+60", q)
	}
	if fx.schedules.calls != 3 {
		t.Errorf("source reads = %d, want 3", fx.schedules.calls)
	}
}

func TestSearchPropertiesWithUnits(t *testing.T) {
	fx := newFixture(t)
	page, err := fx.svc.SearchPropertiesWithUnits(context.Background(), request.Params{Sort: sortby.PriceAsc})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 {
		t.Fatalf("properties = %d, want 2", page.Total)
	}
	p2, p1 := page.Items[0], page.Items[1]
	if p2.PropertyID != "p2" || p1.PropertyID != "p1" {
		t.Fatalf("order = %s, %s", p2.PropertyID, p1.PropertyID)
	}
	if p1.MinPrice != 100 || p1.MaxPrice != 120 {
		t.Errorf("p1 price range = [%v, %v], want [100, 120]", p1.MinPrice, p1.MaxPrice)
	}
	if got := ids(p1.Units); !slices.Equal(got, []string{"u1", "u2"}) {
		t.Errorf("p1 units = %v", got)
	}
	if p1.Name != "Old City Hotel" || p1.City != "Sana'a" {
		t.Errorf("p1 = %+v", p1)
	}
}

func TestSearchPropertiesWithUnits_PriceRangeFromMatchedUnitsOnly(t *testing.T) {
	fx := newFixture(t)
	page, err := fx.svc.SearchPropertiesWithUnits(context.Background(), request.Params{Guests: 4})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 {
		t.Fatalf("properties = %d, want 1", page.Total)
	}
	p := page.Items[0]
	if p.MinPrice != 120 || p.MaxPrice != 120 || len(p.Units) != 1 {
		t.Errorf("property = %+v", p)
	}
}

func TestSearchUnits_ValidationError(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.svc.SearchUnits(context.Background(), request.Params{Guests: -1})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	var fe *domain.FieldError
	if !errors.As(err, &fe) || fe.Field != "guests" {
		t.Errorf("field error = %v", err)
	}

	_, err = fx.svc.SearchUnits(context.Background(), request.Params{CheckIn: "2024-06-04", CheckOut: "2024-06-01"})
	if !errors.Is(err, domain.ErrInvalidRange) {
		t.Errorf("err = %v, want invalid range", err)
	}
}

// stalledIndex never answers set intersections.
type stalledIndex struct {
	*unitindex.Repo
}

func (s stalledIndex) Inter(ctx context.Context, _ ...string) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSearchUnits_Timeout(t *testing.T) {
	fx := newFixture(t)
	svc := New(stalledIndex{fx.repo}, nil, nil).WithTimeout(10 * time.Millisecond)

	_, err := svc.SearchUnits(context.Background(), request.Params{City: "Sana'a"})
	if !errors.Is(err, domain.ErrSearchTimeout) {
		t.Fatalf("err = %v, want search timeout", err)
	}
}

func TestSearchUnits_SkipsStaleReferences(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	d := unitSpec{
		unit: "ghost", property: "p9", city: "Aden", unitType: "room", name: "Ghost",
		base: 10, capacity: 1, approved: true, created: "2024-01-01",
	}.doc()
	if err := fx.repo.Replace(ctx, nil, &d); err != nil {
		t.Fatal(err)
	}
	// Dropping only the document leaves its index entries behind.
	if err := fx.store.Del(ctx, fx.keys.Doc("p9", "ghost")); err != nil {
		t.Fatal(err)
	}

	page, err := fx.svc.SearchUnits(ctx, request.Params{City: "Aden"})
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(page.Items); !slices.Equal(got, []string{"u3"}) {
		t.Errorf("units = %v", got)
	}
}

func TestBuildPlan_Stages(t *testing.T) {
	fx := newFixture(t)
	req, err := request.New(request.Params{
		City: "Sana'a", MinRating: price(4), MaxPrice: price(200),
		AmenityIDs: []string{"wifi"}, Text: "old",
		Geo:     &request.GeoParams{Latitude: 15.35, Longitude: 44.2, RadiusKm: 5},
		CheckIn: "2024-07-01", CheckOut: "2024-07-03",
	})
	if err != nil {
		t.Fatal(err)
	}
	p := buildPlan(fx.repo, &req)

	var names []string
	for _, st := range p.stages {
		for _, l := range st {
			names = append(names, l.name)
		}
	}
	want := []string{"primary", "price_min", "rating", "features", "keywords", "geo"}
	if !slices.Equal(names, want) {
		t.Errorf("lookups = %v, want %v", names, want)
	}
	if p.exclude == nil || p.exclude.name != "blocked" {
		t.Errorf("exclude = %v", p.exclude)
	}

	keys, err := p.execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want = []string{fx.keys.Doc("p1", "u1"), fx.keys.Doc("p1", "u2")}
	if !slices.Equal(keys, want) {
		t.Errorf("candidates = %v, want %v", keys, want)
	}
}
