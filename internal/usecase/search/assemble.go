package search

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/staydex/internal/domain/geo"
	"github.com/kailas-cloud/staydex/internal/domain/period"
	"github.com/kailas-cloud/staydex/internal/domain/search/filter"
	"github.com/kailas-cloud/staydex/internal/domain/search/request"
	"github.com/kailas-cloud/staydex/internal/domain/search/result"
	"github.com/kailas-cloud/staydex/internal/domain/search/sortby"
	"github.com/kailas-cloud/staydex/internal/domain/unitdoc"
	"github.com/kailas-cloud/staydex/internal/logger"
	"github.com/kailas-cloud/staydex/internal/repository/unitindex"
)

// candidate is a loaded document that passed the static checks.
type candidate struct {
	key      string
	doc      unitdoc.Document
	schedule []period.Day
}

// assemble loads the surviving documents, applies the checks the index
// cannot answer exactly, prices stays and sorts the result.
func (s *Service) assemble(ctx context.Context, req *request.Request, keys []string) ([]result.Unit, error) {
	stored, err := s.load(ctx, keys)
	if err != nil {
		return nil, err
	}

	cands := make([]candidate, 0, len(stored))
	for _, st := range stored {
		d := st.Doc
		if !d.Approved {
			continue
		}
		if g := req.Guests(); g > 0 && d.Capacity.Total < g {
			continue
		}
		if !matchesFields(req.Fields(), &d) {
			continue
		}
		cands = append(cands, candidate{key: st.Key, doc: d})
	}

	stay := req.Stay()
	if stay != nil {
		if err := s.schedules(ctx, stay, cands); err != nil {
			return nil, err
		}
	}

	center, hasCenter := req.Center()
	minPrice, maxPrice := req.PriceRange()
	units := make([]result.Unit, 0, len(cands))
	for _, c := range cands {
		u := result.FromDocument(c.key, c.doc)
		if stay != nil {
			ok, err := period.IsAvailable(stay.CheckIn, stay.CheckOut, c.schedule)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			q, err := period.QuoteStay(stay.CheckIn, stay.CheckOut, c.doc.Pricing.Base, c.schedule)
			if err != nil {
				return nil, err
			}
			u.Quote = &q
			u.NightlyPrice = round2(q.AveragePerNight)
		}
		if minPrice != nil && u.NightlyPrice < *minPrice {
			continue
		}
		if maxPrice != nil && u.NightlyPrice > *maxPrice {
			continue
		}
		if hasCenter && c.doc.HasGeo() {
			d := round2(center.DistanceKm(geo.Point{Latitude: c.doc.Latitude, Longitude: c.doc.Longitude}))
			u.DistanceKm = &d
		}
		units = append(units, u)
	}

	sortUnits(units, req.Sort())
	return units, nil
}

// load reads documents in chunks, concurrently. Stale index references are
// skipped.
func (s *Service) load(ctx context.Context, keys []string) ([]unitindex.Stored, error) {
	chunks := slices.Collect(slices.Chunk(keys, s.loadBatch))
	parts := make([][]unitindex.Stored, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			docs, skipped, err := s.index.LoadMany(gctx, chunk)
			if err != nil {
				return fmt.Errorf("load documents: %w", err)
			}
			if len(skipped) > 0 {
				logger.FromContextOr(ctx, s.logger).Debug("skipped stale index references",
					zap.Int("count", len(skipped)))
			}
			parts[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(parts...), nil
}

// schedules attaches the daily schedule of the stay to every candidate,
// reading the source when the indexed horizon does not cover the stay.
func (s *Service) schedules(ctx context.Context, stay *request.Stay, cands []candidate) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range cands {
		c := &cands[i]
		if c.doc.Pricing.Covers(stay.CheckIn, stay.CheckOut) || s.source == nil {
			c.schedule = c.doc.Pricing.Schedule
			continue
		}
		g.Go(func() error {
			days, err := s.source.ListSchedule(gctx, c.doc.UnitID, stay.CheckIn, stay.CheckOut)
			if err != nil {
				return fmt.Errorf("list schedule of unit %s: %w", c.doc.UnitID, err)
			}
			c.schedule = days
			return nil
		})
	}
	return g.Wait()
}

func matchesFields(conds []filter.Condition, d *unitdoc.Document) bool {
	for _, c := range conds {
		if !c.Matches(d.TextFields, d.NumericFields) {
			return false
		}
	}
	return true
}

// sortUnits orders units by key. Ties are broken by document key.
func sortUnits(units []result.Unit, key sortby.Key) {
	slices.SortFunc(units, func(a, b result.Unit) int {
		var c int
		switch key {
		case sortby.Newest:
			c = cmp.Compare(b.CreatedAt(), a.CreatedAt())
		case sortby.Popular:
			c = cmp.Compare(b.BookingCount, a.BookingCount)
		case sortby.PriceAsc:
			c = cmp.Compare(a.NightlyPrice, b.NightlyPrice)
		case sortby.PriceDesc:
			c = cmp.Compare(b.NightlyPrice, a.NightlyPrice)
		case sortby.Distance:
			c = cmp.Compare(distance(a), distance(b))
		default:
			c = cmp.Compare(b.AverageRating, a.AverageRating)
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.Key(), b.Key())
	})
}

func distance(u result.Unit) float64 {
	if u.DistanceKm == nil {
		return math.Inf(1)
	}
	return *u.DistanceKm
}

// groupByProperty buckets sorted units by property. Properties keep the
// order of their best unit; the price range spans the matched units only.
func groupByProperty(units []result.Unit) []result.Property {
	pos := make(map[string]int)
	var out []result.Property
	for _, u := range units {
		if i, ok := pos[u.PropertyID]; ok {
			p := &out[i]
			p.MinPrice = min(p.MinPrice, u.NightlyPrice)
			p.MaxPrice = max(p.MaxPrice, u.NightlyPrice)
			p.Units = append(p.Units, u)
			continue
		}
		pos[u.PropertyID] = len(out)
		out = append(out, result.Property{
			PropertyID:     u.PropertyID,
			Name:           u.PropertyName,
			City:           u.City,
			PropertyTypeID: u.PropertyTypeID,
			StarRating:     u.StarRating,
			AverageRating:  u.AverageRating,
			Latitude:       u.Latitude,
			Longitude:      u.Longitude,
			MinPrice:       u.NightlyPrice,
			MaxPrice:       u.NightlyPrice,
			DistanceKm:     u.DistanceKm,
			Units:          []result.Unit{u},
		})
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
