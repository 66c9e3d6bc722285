package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/staydex/internal/db"
	"github.com/kailas-cloud/staydex/internal/domain/geo"
	"github.com/kailas-cloud/staydex/internal/domain/period"
	"github.com/kailas-cloud/staydex/internal/repository/unitindex"
)

// Index is the read side of the secondary index the query plan runs against.
type Index interface {
	Keys() unitindex.Keys
	Inter(ctx context.Context, keys ...string) ([]string, error)
	ScoreRange(ctx context.Context, key string, rng db.ScoreRange) ([]string, error)
	Radius(ctx context.Context, center geo.Point, radiusKm float64) ([]string, error)
	BlockedBetween(ctx context.Context, checkIn, checkOut time.Time) ([]string, error)
	LoadMany(ctx context.Context, keys []string) ([]unitindex.Stored, []string, error)
}

// ScheduleReader reads daily schedules for stays the indexed horizon does
// not cover.
type ScheduleReader interface {
	ListSchedule(ctx context.Context, unitID string, from, to time.Time) ([]period.Day, error)
}
