package search

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/staydex/internal/db"
	"github.com/kailas-cloud/staydex/internal/domain/search/request"
)

// lookup is one primitive index query producing document keys.
type lookup struct {
	name string
	run  func(ctx context.Context) ([]string, error)
}

// stage groups independent lookups. They run concurrently and their results
// are intersected with the candidate set.
type stage []lookup

// plan is an AND-composed pipeline of stages, ordered by selectivity, plus
// an optional exclusion subtracted from the survivors.
type plan struct {
	stages  []stage
	exclude *lookup
}

// buildPlan translates a validated request into index lookups. Absent
// filters contribute nothing; the approved set is always the first operand.
func buildPlan(ix Index, req *request.Request) plan {
	k := ix.Keys()
	inter := func(name string, keys ...string) lookup {
		return lookup{name: name, run: func(ctx context.Context) ([]string, error) {
			return ix.Inter(ctx, keys...)
		}}
	}
	scores := func(name, key string, rng db.ScoreRange) lookup {
		return lookup{name: name, run: func(ctx context.Context) ([]string, error) {
			return ix.ScoreRange(ctx, key, rng)
		}}
	}

	var p plan

	primary := []string{k.Approved()}
	if v := req.City(); v != "" {
		primary = append(primary, k.City(v))
	}
	if v := req.UnitTypeID(); v != "" {
		primary = append(primary, k.UnitType(v))
	}
	if v := req.PropertyTypeID(); v != "" {
		primary = append(primary, k.PropertyType(v))
	}
	p.stages = append(p.stages, stage{inter("primary", primary...)})

	// A unit's price span [min, max] must overlap the requested one.
	var ranges stage
	minPrice, maxPrice := req.PriceRange()
	if maxPrice != nil {
		ranges = append(ranges, scores("price_min", k.PriceMin(), db.ScoreRange{Max: maxPrice}))
	}
	if minPrice != nil && *minPrice > 0 {
		ranges = append(ranges, scores("price_max", k.PriceMax(), db.ScoreRange{Min: minPrice}))
	}
	if r := req.MinRating(); r != nil && *r > 0 {
		ranges = append(ranges, scores("rating", k.Rating(), db.ScoreRange{Min: r}))
	}
	for _, c := range req.Fields() {
		if rng := c.Range(); rng != nil {
			ranges = append(ranges, scores("field:"+c.Field(), k.FieldNum(c.Field()),
				db.ScoreRange{Min: rng.Min(), Max: rng.Max()}))
		}
	}
	if len(ranges) > 0 {
		p.stages = append(p.stages, ranges)
	}

	var members []string
	for _, id := range req.AmenityIDs() {
		members = append(members, k.Amenity(id))
	}
	for _, id := range req.ServiceIDs() {
		members = append(members, k.Service(id))
	}
	for _, c := range req.Fields() {
		if c.IsMatch() {
			members = append(members, k.Field(c.Field(), c.Match()))
		}
	}
	if len(members) > 0 {
		p.stages = append(p.stages, stage{inter("features", members...)})
	}

	if kw := req.Keywords(); len(kw) > 0 {
		keys := make([]string, len(kw))
		for i, tok := range kw {
			keys[i] = k.Keyword(tok)
		}
		p.stages = append(p.stages, stage{inter("keywords", keys...)})
	}

	if center, ok := req.Center(); ok {
		radius := req.Geo().RadiusKm
		p.stages = append(p.stages, stage{{name: "geo", run: func(ctx context.Context) ([]string, error) {
			return ix.Radius(ctx, center, radius)
		}}})
	}

	if stay := req.Stay(); stay != nil {
		p.exclude = &lookup{name: "blocked", run: func(ctx context.Context) ([]string, error) {
			return ix.BlockedBetween(ctx, stay.CheckIn, stay.CheckOut)
		}}
	}
	return p
}

// execute runs the plan and returns the surviving document keys, sorted.
func (p plan) execute(ctx context.Context) ([]string, error) {
	var candidates map[string]struct{}
	for i, st := range p.stages {
		results, err := st.run(ctx)
		if err != nil {
			return nil, err
		}
		for j, keys := range results {
			if i == 0 && j == 0 {
				candidates = make(map[string]struct{}, len(keys))
				for _, key := range keys {
					candidates[key] = struct{}{}
				}
				continue
			}
			candidates = intersect(candidates, keys)
		}
		if len(candidates) == 0 {
			return nil, nil
		}
	}

	if p.exclude != nil {
		blocked, err := p.exclude.run(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.exclude.name, err)
		}
		for _, key := range blocked {
			delete(candidates, key)
		}
	}

	out := make([]string, 0, len(candidates))
	for key := range candidates {
		out = append(out, key)
	}
	slices.Sort(out)
	return out, nil
}

func (st stage) run(ctx context.Context) ([][]string, error) {
	results := make([][]string, len(st))
	g, gctx := errgroup.WithContext(ctx)
	for i, l := range st {
		g.Go(func() error {
			keys, err := l.run(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", l.name, err)
			}
			results[i] = keys
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func intersect(set map[string]struct{}, keys []string) map[string]struct{} {
	out := make(map[string]struct{}, min(len(set), len(keys)))
	for _, key := range keys {
		if _, ok := set[key]; ok {
			out[key] = struct{}{}
		}
	}
	return out
}
