package unitindex

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/staydex/internal/db"
	"github.com/kailas-cloud/staydex/internal/db/memory"
	"github.com/kailas-cloud/staydex/internal/domain"
	"github.com/kailas-cloud/staydex/internal/domain/geo"
	"github.com/kailas-cloud/staydex/internal/domain/period"
	"github.com/kailas-cloud/staydex/internal/domain/unitdoc"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func testDoc() unitdoc.Document {
	blocked := period.EncodeIntervals([]period.Interval{
		{Start: day("2024-07-10").Unix(), End: day("2024-07-13").Unix()},
	})
	return unitdoc.Document{
		UnitID: "u1", PropertyID: "p1", City: "Sana'a", PropertyTypeID: "hotel", UnitTypeID: "room",
		StarRating: 4, AverageRating: 4.5, Latitude: 15.35, Longitude: 44.2, Approved: true,
		Capacity:      unitdoc.Capacity{Total: 2},
		AmenityIDs:    []string{"wifi"},
		ServiceIDs:    []string{"breakfast"},
		TextFields:    map[string]string{"view": "Mountain"},
		NumericFields: map[string]float64{"floor": 3},
		Availability:  unitdoc.Availability{Blocked: blocked},
		Pricing:       unitdoc.Pricing{Min: 100, Avg: 120, Max: 150},
		Keywords:      []string{"hotel", "old"},
		BookingCount:  12,
		CreatedAt:     day("2024-01-01"),
	}
}

func newTestRepo(t *testing.T) (*Repo, *memory.Store) {
	t.Helper()
	ms := memory.New()
	return New(ms, NewKeys("t:")), ms
}

// holding lists every index key that references key.
func holding(t *testing.T, ms *memory.Store, k Keys, key string) []string {
	t.Helper()
	ctx := context.Background()
	idx, _ := ms.Scan(ctx, k.IndexPattern())
	var out []string
	for _, ik := range idx {
		if k.IsOrdered(ik) {
			members, _ := ms.ZRangeByScore(ctx, ik, db.ScoreRange{})
			for _, m := range members {
				if m.Member == key || strings.HasPrefix(m.Member, key+"|") {
					out = append(out, ik)
					break
				}
			}
			continue
		}
		members, _ := ms.SMembers(ctx, ik)
		if slices.Contains(members, key) {
			out = append(out, ik)
		}
	}
	return out
}

func TestKeys_ParseDoc(t *testing.T) {
	k := NewKeys("t:")
	key := k.Doc("p1", "u1")
	if key != "t:property:p1:unit:u1" {
		t.Fatalf("Doc = %q", key)
	}
	pid, uid, ok := k.ParseDoc(key)
	if !ok || pid != "p1" || uid != "u1" {
		t.Errorf("ParseDoc = %q %q %v", pid, uid, ok)
	}
	if _, _, ok := k.ParseDoc("t:index:geo"); ok {
		t.Error("non-document key parsed")
	}
	if NewKeys("").Prefix() != DefaultKeyPrefix {
		t.Error("empty prefix must default")
	}
	if k.City(" Sana'a ") != "t:index:city:sana'a" {
		t.Errorf("City = %q", k.City(" Sana'a "))
	}
}

func TestReplace_WritesDocumentAndEntries(t *testing.T) {
	ctx := context.Background()
	r, ms := newTestRepo(t)
	d := testDoc()

	if err := r.Replace(ctx, nil, &d); err != nil {
		t.Fatal(err)
	}
	key := r.Keys().Doc("p1", "u1")

	got, err := r.Load(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if got.UnitID != "u1" || got.City != "Sana'a" {
		t.Errorf("Load = %+v", got)
	}

	k := r.Keys()
	want := []string{
		k.Approved(), k.City("Sana'a"), k.UnitType("room"), k.PropertyType("hotel"), k.Property("p1"),
		k.Amenity("wifi"), k.Service("breakfast"), k.Keyword("hotel"), k.Keyword("old"),
		k.Field("view", "Mountain"), k.FieldNum("floor"), k.Rating(), k.Popularity(), k.Newest(),
		k.PriceMin(), k.PriceMax(), k.Blocked(), k.Geo(),
	}
	have := holding(t, ms, k, key)
	for _, w := range want {
		if !slices.Contains(have, w) {
			t.Errorf("missing index entry %s (have %v)", w, have)
		}
	}
}

func TestReplace_MovesBetweenBuckets(t *testing.T) {
	ctx := context.Background()
	r, ms := newTestRepo(t)
	k := r.Keys()
	prev := testDoc()
	if err := r.Replace(ctx, nil, &prev); err != nil {
		t.Fatal(err)
	}

	cur := testDoc()
	cur.City = "Aden"
	cur.Approved = false
	cur.AmenityIDs = []string{"pool"}
	if err := r.Replace(ctx, &prev, &cur); err != nil {
		t.Fatal(err)
	}

	have := holding(t, ms, k, k.Doc("p1", "u1"))
	for _, stale := range []string{k.City("Sana'a"), k.Approved(), k.Amenity("wifi")} {
		if slices.Contains(have, stale) {
			t.Errorf("stale entry %s survived", stale)
		}
	}
	for _, fresh := range []string{k.City("Aden"), k.Amenity("pool")} {
		if !slices.Contains(have, fresh) {
			t.Errorf("missing entry %s", fresh)
		}
	}
}

func TestReplace_Idempotent(t *testing.T) {
	ctx := context.Background()
	r, ms := newTestRepo(t)
	d := testDoc()
	_ = r.Replace(ctx, nil, &d)
	first, _ := ms.Scan(ctx, "*")

	_ = r.Replace(ctx, &d, &d)
	second, _ := ms.Scan(ctx, "*")
	if !slices.Equal(first, second) {
		t.Errorf("key set changed:\n%v\n%v", first, second)
	}
}

func TestRemove_DeletionCompleteness(t *testing.T) {
	ctx := context.Background()
	r, ms := newTestRepo(t)
	d := testDoc()
	_ = r.Replace(ctx, nil, &d)
	key := r.Keys().Doc("p1", "u1")

	if err := r.Remove(ctx, key, &d); err != nil {
		t.Fatal(err)
	}
	if have := holding(t, ms, r.Keys(), key); len(have) != 0 {
		t.Errorf("document still referenced by %v", have)
	}
	if _, err := r.Load(ctx, key); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestRemove_WithoutPreviousSweepsFixedIndexes(t *testing.T) {
	ctx := context.Background()
	r, ms := newTestRepo(t)
	d := testDoc()
	_ = r.Replace(ctx, nil, &d)
	key := r.Keys().Doc("p1", "u1")

	if err := r.Remove(ctx, key, nil); err != nil {
		t.Fatal(err)
	}
	have := holding(t, ms, r.Keys(), key)
	for _, fixed := range []string{r.Keys().Approved(), r.Keys().Property("p1"), r.Keys().Geo(), r.Keys().Rating()} {
		if slices.Contains(have, fixed) {
			t.Errorf("fixed index %s still references document", fixed)
		}
	}
}

func TestPatchSchedule(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	d := testDoc()
	_ = r.Replace(ctx, nil, &d)

	avail := unitdoc.Availability{IsAvailable: true, NextAvailable: "2024-07-01"}
	pricing := unitdoc.Pricing{Min: 200, Avg: 250, Max: 300}
	if err := r.PatchSchedule(ctx, &d, avail, pricing); err != nil {
		t.Fatal(err)
	}

	got, err := r.Load(ctx, r.Keys().Doc("p1", "u1"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Pricing.Max != 300 || got.Availability.Blocked != "" || got.City != "Sana'a" {
		t.Errorf("patched document = %+v", got)
	}

	blocked, err := r.BlockedBetween(ctx, day("2024-07-11"), day("2024-07-13"))
	if err != nil {
		t.Fatal(err)
	}
	if len(blocked) != 0 {
		t.Errorf("old blocked interval still indexed: %v", blocked)
	}
	hi := 150.0
	cheap, _ := r.ScoreRange(ctx, r.Keys().PriceMin(), db.ScoreRange{Max: &hi})
	if len(cheap) != 0 {
		t.Errorf("price index not updated: %v", cheap)
	}
}

func TestPatchSchedule_RejectsInvalidPricing(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	d := testDoc()
	_ = r.Replace(ctx, nil, &d)

	err := r.PatchSchedule(ctx, &d, d.Availability, unitdoc.Pricing{Min: 300, Avg: 100, Max: 200})
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestBlockedBetween(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	d := testDoc()
	_ = r.Replace(ctx, nil, &d)
	key := r.Keys().Doc("p1", "u1")

	tests := []struct {
		name    string
		in, out string
		want    bool
	}{
		{"overlapping", "2024-07-11", "2024-07-13", true},
		{"check-out on block start", "2024-07-08", "2024-07-10", false},
		{"check-in on block end", "2024-07-13", "2024-07-15", false},
		{"covering", "2024-07-01", "2024-07-31", true},
	}
	for _, tt := range tests {
		got, err := r.BlockedBetween(ctx, day(tt.in), day(tt.out))
		if err != nil {
			t.Fatal(err)
		}
		if slices.Contains(got, key) != tt.want {
			t.Errorf("%s: blocked = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	d := testDoc()
	_ = r.Replace(ctx, nil, &d)
	key := r.Keys().Doc("p1", "u1")
	k := r.Keys()

	inter, err := r.Inter(ctx, k.Approved(), k.City("sana'a"))
	if err != nil || !slices.Equal(inter, []string{key}) {
		t.Errorf("Inter = %v, %v", inter, err)
	}
	single, _ := r.Inter(ctx, k.UnitType("room"))
	if !slices.Equal(single, []string{key}) {
		t.Errorf("Inter(single) = %v", single)
	}
	near, _ := r.Radius(ctx, geo.Point{Latitude: 15.36, Longitude: 44.21}, 5)
	if !slices.Equal(near, []string{key}) {
		t.Errorf("Radius = %v", near)
	}
	units, _ := r.PropertyUnits(ctx, "p1")
	if !slices.Equal(units, []string{key}) {
		t.Errorf("PropertyUnits = %v", units)
	}
	loaded, skipped, err := r.LoadMany(ctx, []string{key, k.Doc("p1", "gone")})
	if err != nil || len(loaded) != 1 || len(skipped) != 1 {
		t.Errorf("LoadMany = %d loaded, %v skipped, %v", len(loaded), skipped, err)
	}
}

func TestCleanup_RemovesStaleReferences(t *testing.T) {
	ctx := context.Background()
	r, ms := newTestRepo(t)
	d := testDoc()
	_ = r.Replace(ctx, nil, &d)
	key := r.Keys().Doc("p1", "u1")

	// Document vanished without unindexing.
	_ = ms.Del(ctx, key)

	docs, _ := r.DocKeys(ctx)
	live := make(map[string]bool)
	for _, k := range docs {
		live[k] = true
	}
	res, err := r.Cleanup(ctx, func(k string) bool { return live[k] })
	if err != nil {
		t.Fatal(err)
	}
	if res.StaleReferences == 0 {
		t.Error("expected stale references to be removed")
	}
	if have := holding(t, ms, r.Keys(), key); len(have) != 0 {
		t.Errorf("stale references remain in %v", have)
	}
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	a := testDoc()
	b := testDoc()
	b.UnitID = "u2"
	b.City = "Aden"
	b.Approved = false
	_ = r.Replace(ctx, nil, &a)
	_ = r.Replace(ctx, nil, &b)
	_ = r.SetMeta(ctx, map[string]string{MetaLastRebuild: "2024-06-01T00:00:00Z"})

	st, err := r.Statistics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Documents != 2 || st.Approved != 1 || st.Geo != 2 {
		t.Errorf("counts = %+v", st)
	}
	if st.ByCity["sana'a"] != 1 || st.ByCity["aden"] != 1 {
		t.Errorf("ByCity = %v", st.ByCity)
	}
	if st.ByUnitType["room"] != 2 {
		t.Errorf("ByUnitType = %v", st.ByUnitType)
	}
	if st.Meta[MetaLastRebuild] == "" {
		t.Errorf("Meta = %v", st.Meta)
	}
}

func TestParseBlockedMember(t *testing.T) {
	key, iv, ok := parseBlockedMember("t:property:p|1:unit:u1|100|200")
	if !ok || key != "t:property:p|1:unit:u1" || iv.Start != 100 || iv.End != 200 {
		t.Errorf("parse = %q %v %v", key, iv, ok)
	}
	if _, _, ok := parseBlockedMember("nope"); ok {
		t.Error("expected failure")
	}
}

func TestLocateAndPropertyDocs(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	d := testDoc()
	if err := r.Replace(ctx, nil, &d); err != nil {
		t.Fatal(err)
	}
	other := testDoc()
	other.UnitID = "u2"
	if err := r.Replace(ctx, nil, &other); err != nil {
		t.Fatal(err)
	}

	keys, err := r.Locate(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(keys, []string{r.Keys().Doc("p1", "u1")}) {
		t.Errorf("Locate(u1) = %v", keys)
	}
	if keys, _ := r.Locate(ctx, "missing"); len(keys) != 0 {
		t.Errorf("Locate(missing) = %v", keys)
	}

	docs, err := r.PropertyDocs(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Errorf("PropertyDocs(p1) = %v", docs)
	}
}

// scanHookStore runs hook once, the first time pattern is scanned.
type scanHookStore struct {
	*memory.Store
	pattern string
	hook    func()
	scans   int
}

func (s *scanHookStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	s.scans++
	if pattern == s.pattern && s.hook != nil {
		h := s.hook
		s.hook = nil
		h()
	}
	return s.Store.Scan(ctx, pattern)
}

func TestCleanup_KeepsDocumentWrittenDuringScan(t *testing.T) {
	ctx := context.Background()
	ms := memory.New()
	k := NewKeys("t:")
	hs := &scanHookStore{Store: ms, pattern: k.IndexPattern()}
	r := New(hs, k)

	d := testDoc()
	key := k.Doc("p1", "u1")
	// The live snapshot was taken before the unit was indexed.
	hs.hook = func() {
		if err := New(ms, k).Replace(ctx, nil, &d); err != nil {
			t.Fatal(err)
		}
	}

	res, err := r.Cleanup(ctx, func(string) bool { return false })
	if err != nil {
		t.Fatal(err)
	}
	if res.StaleReferences != 0 {
		t.Errorf("removed %d references of a live document", res.StaleReferences)
	}
	have := holding(t, ms, k, key)
	for _, w := range []string{k.Approved(), k.City("Sana'a"), k.Unit("u1"), k.Blocked(), k.Geo()} {
		if !slices.Contains(have, w) {
			t.Errorf("missing index entry %s (have %v)", w, have)
		}
	}
}

func TestLocate_UsesUnitSet(t *testing.T) {
	ctx := context.Background()
	ms := memory.New()
	hs := &scanHookStore{Store: ms}
	r := New(hs, NewKeys("t:"))
	k := r.Keys()

	prev := testDoc()
	if err := r.Replace(ctx, nil, &prev); err != nil {
		t.Fatal(err)
	}
	cur := testDoc()
	cur.PropertyID = "p2"
	if err := r.Replace(ctx, &prev, &cur); err != nil {
		t.Fatal(err)
	}

	keys, err := r.Locate(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(keys, []string{k.Doc("p2", "u1")}) {
		t.Errorf("Locate(u1) = %v", keys)
	}
	if hs.scans != 0 {
		t.Errorf("Locate scanned the keyspace %d times", hs.scans)
	}

	if err := r.Remove(ctx, k.Doc("p2", "u1"), nil); err != nil {
		t.Fatal(err)
	}
	if keys, _ := r.Locate(ctx, "u1"); len(keys) != 0 {
		t.Errorf("Locate after remove = %v", keys)
	}
}

func TestRemove_WithoutPrevDropsBlockedIntervals(t *testing.T) {
	ctx := context.Background()
	r, ms := newTestRepo(t)
	k := r.Keys()
	key := k.Doc("p1", "u1")

	d := testDoc()
	if err := r.Replace(ctx, nil, &d); err != nil {
		t.Fatal(err)
	}
	other := testDoc()
	other.UnitID = "u2"
	if err := r.Replace(ctx, nil, &other); err != nil {
		t.Fatal(err)
	}

	if err := r.Remove(ctx, key, nil); err != nil {
		t.Fatal(err)
	}
	if have := holding(t, ms, k, key); slices.Contains(have, k.Blocked()) {
		t.Errorf("blocked intervals survived removal: %v", have)
	}
	if have := holding(t, ms, k, k.Doc("p1", "u2")); !slices.Contains(have, k.Blocked()) {
		t.Errorf("blocked intervals of another unit removed: %v", have)
	}

	// Re-created without blocked days, the unit must not inherit old intervals.
	fresh := testDoc()
	fresh.Availability = unitdoc.Availability{}
	if err := r.Replace(ctx, nil, &fresh); err != nil {
		t.Fatal(err)
	}
	if have := holding(t, ms, k, key); slices.Contains(have, k.Blocked()) {
		t.Errorf("re-created unit inherited blocked intervals: %v", have)
	}
}
