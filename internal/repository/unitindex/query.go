package unitindex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/staydex/internal/db"
	"github.com/kailas-cloud/staydex/internal/domain/geo"
	"github.com/kailas-cloud/staydex/internal/domain/period"
)

// Inter intersects membership sets.
func (r *Repo) Inter(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 1 {
		return r.Members(ctx, keys[0])
	}
	members, err := r.store.SInter(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("sinter %d sets: %w", len(keys), err)
	}
	return members, nil
}

// Members returns one membership set.
func (r *Repo) Members(ctx context.Context, key string) ([]string, error) {
	members, err := r.store.SMembers(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", key, err)
	}
	return members, nil
}

// ScoreRange returns the members of an ordered set within the bounds.
func (r *Repo) ScoreRange(ctx context.Context, key string, rng db.ScoreRange) ([]string, error) {
	res, err := r.store.ZRangeByScore(ctx, key, rng)
	if err != nil {
		return nil, fmt.Errorf("zrangebyscore %s: %w", key, err)
	}
	out := make([]string, len(res))
	for i, m := range res {
		out[i] = m.Member
	}
	return out, nil
}

// Radius returns the documents within radiusKm of center, nearest first.
func (r *Repo) Radius(ctx context.Context, center geo.Point, radiusKm float64) ([]string, error) {
	keys, err := r.store.GeoRadius(ctx, r.keys.Geo(), center.Longitude, center.Latitude, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("geosearch %.4f,%.4f r=%gkm: %w", center.Latitude, center.Longitude, radiusKm, err)
	}
	return keys, nil
}

// BlockedBetween returns the documents holding a blocked interval that
// overlaps [checkIn, checkOut).
func (r *Repo) BlockedBetween(ctx context.Context, checkIn, checkOut time.Time) ([]string, error) {
	in, out := period.Midnight(checkIn).Unix(), period.Midnight(checkOut).Unix()
	lo := float64(in)
	res, err := r.store.ZRangeByScore(ctx, r.keys.Blocked(), db.ScoreRange{Min: &lo, MinExclusive: true})
	if err != nil {
		return nil, fmt.Errorf("zrangebyscore blocked: %w", err)
	}

	seen := make(map[string]struct{})
	var keys []string
	for _, m := range res {
		key, iv, ok := parseBlockedMember(m.Member)
		if !ok {
			continue
		}
		hit, err := period.Overlaps(in, out, iv.Start, iv.End)
		if err != nil {
			return nil, err
		}
		if !hit {
			continue
		}
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys, nil
}
