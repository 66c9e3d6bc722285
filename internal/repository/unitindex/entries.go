package unitindex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/staydex/internal/db"
	"github.com/kailas-cloud/staydex/internal/domain/period"
	"github.com/kailas-cloud/staydex/internal/domain/unitdoc"
)

type entryKind int

const (
	entrySet entryKind = iota
	entryOrdered
	entryGeo
)

// entry is one secondary index position a document occupies.
type entry struct {
	kind   entryKind
	key    string
	member string
	score  float64
	lon    float64
	lat    float64
}

// id identifies the position independent of score, so a changed score is an
// update rather than a stale entry.
func (e entry) id() string { return e.key + "\x00" + e.member }

func (e entry) add() db.Mutation {
	switch e.kind {
	case entryOrdered:
		return db.Mutation{Kind: db.MutZAdd, Key: e.key, Member: e.member, Score: e.score}
	case entryGeo:
		return db.Mutation{Kind: db.MutGeoAdd, Key: e.key, Member: e.member, Lon: e.lon, Lat: e.lat}
	default:
		return db.Mutation{Kind: db.MutSAdd, Key: e.key, Member: e.member}
	}
}

func (e entry) remove() db.Mutation {
	if e.kind == entrySet {
		return db.Mutation{Kind: db.MutSRem, Key: e.key, Member: e.member}
	}
	return db.Mutation{Kind: db.MutZRem, Key: e.key, Member: e.member}
}

// entries lists every index position of doc stored under docKey.
func (k Keys) entries(docKey string, d *unitdoc.Document) []entry {
	set := func(key string) entry { return entry{kind: entrySet, key: key, member: docKey} }
	ordered := func(key string, score float64) entry {
		return entry{kind: entryOrdered, key: key, member: docKey, score: score}
	}

	out := []entry{set(k.Property(d.PropertyID)), set(k.Unit(d.UnitID))}
	if d.Approved {
		out = append(out, set(k.Approved()))
	}
	if d.City != "" {
		out = append(out, set(k.City(d.City)))
	}
	if d.UnitTypeID != "" {
		out = append(out, set(k.UnitType(d.UnitTypeID)))
	}
	if d.PropertyTypeID != "" {
		out = append(out, set(k.PropertyType(d.PropertyTypeID)))
	}
	for _, id := range d.AmenityIDs {
		out = append(out, set(k.Amenity(id)))
	}
	for _, id := range d.ServiceIDs {
		out = append(out, set(k.Service(id)))
	}
	for _, tok := range d.Keywords {
		out = append(out, set(k.Keyword(tok)))
	}
	for name, v := range d.TextFields {
		out = append(out, set(k.Field(name, v)))
	}

	out = append(out,
		ordered(k.Rating(), d.AverageRating),
		ordered(k.Popularity(), float64(d.BookingCount)),
		ordered(k.Newest(), float64(d.CreatedAt.Unix())),
	)
	for name, v := range d.NumericFields {
		out = append(out, ordered(k.FieldNum(name), v))
	}
	out = append(out, k.pricingEntries(docKey, d.Pricing)...)
	out = append(out, k.blockedEntries(docKey, d.Availability)...)

	if d.HasGeo() {
		out = append(out, entry{kind: entryGeo, key: k.Geo(), member: docKey, lon: d.Longitude, lat: d.Latitude})
	}
	return out
}

// pricingEntries spans the observed prices and the base price, so that any
// nightly price a stay can be quoted at lies within [min, max].
func (k Keys) pricingEntries(docKey string, p unitdoc.Pricing) []entry {
	lo, hi := p.Min, p.Max
	if p.Base > 0 {
		if hi <= 0 {
			lo, hi = p.Base, p.Base
		}
		lo, hi = min(lo, p.Base), max(hi, p.Base)
	}
	if hi <= 0 {
		return nil
	}
	return []entry{
		{kind: entryOrdered, key: k.PriceMin(), member: docKey, score: lo},
		{kind: entryOrdered, key: k.PriceMax(), member: docKey, score: hi},
	}
}

func (k Keys) blockedEntries(docKey string, a unitdoc.Availability) []entry {
	intervals, err := a.BlockedIntervals()
	if err != nil {
		return nil
	}
	out := make([]entry, 0, len(intervals))
	for _, iv := range intervals {
		out = append(out, entry{
			kind: entryOrdered, key: k.Blocked(), member: blockedMember(docKey, iv), score: float64(iv.End),
		})
	}
	return out
}

func blockedMember(docKey string, iv period.Interval) string {
	return fmt.Sprintf("%s|%d|%d", docKey, iv.Start, iv.End)
}

// parseBlockedMember splits a blocked-interval member into its document key
// and interval.
func parseBlockedMember(member string) (string, period.Interval, bool) {
	i := strings.LastIndexByte(member, '|')
	if i < 0 {
		return "", period.Interval{}, false
	}
	j := strings.LastIndexByte(member[:i], '|')
	if j < 0 {
		return "", period.Interval{}, false
	}
	start, err1 := strconv.ParseInt(member[j+1:i], 10, 64)
	end, err2 := strconv.ParseInt(member[i+1:], 10, 64)
	if err1 != nil || err2 != nil {
		return "", period.Interval{}, false
	}
	return member[:j], period.Interval{Start: start, End: end}, true
}

// diff returns the mutations that move the index from the entries of old to
// the entries of cur: removals of stale positions first, then upserts.
func diff(old, cur []entry) (removals, upserts []db.Mutation) {
	keep := make(map[string]struct{}, len(cur))
	for _, e := range cur {
		keep[e.id()] = struct{}{}
	}
	for _, e := range old {
		if _, ok := keep[e.id()]; !ok {
			removals = append(removals, e.remove())
		}
	}
	for _, e := range cur {
		upserts = append(upserts, e.add())
	}
	return removals, upserts
}
