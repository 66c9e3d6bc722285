package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on the narrow sub-interfaces
type Store interface {
	Pinger
	HashStore
	JSONStore
	SetStore
	SortedSetStore
	GeoStore
	Pipeliner
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// JSONStore provides JSON document operations.
type JSONStore interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	// JSONGetMulti fetches the root document of every key in one round-trip.
	// Missing keys yield a nil entry at the same position.
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// SetStore provides unordered set operations.
type SetStore interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SInter(ctx context.Context, keys ...string) ([]string, error)
	SUnion(ctx context.Context, keys ...string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
}

// ScoreRange bounds a sorted-set score query. Nil bounds are open (-inf / +inf).
type ScoreRange struct {
	Min          *float64
	Max          *float64
	MinExclusive bool
	MaxExclusive bool
}

// SortedSetMember is a member with its score.
type SortedSetMember struct {
	Member string
	Score  float64
}

// SortedSetStore provides scored set operations.
type SortedSetStore interface {
	ZAdd(ctx context.Context, key string, members ...SortedSetMember) error
	ZRem(ctx context.Context, key string, members ...string) error
	ZRangeByScore(ctx context.Context, key string, r ScoreRange) ([]SortedSetMember, error)
	ZScore(ctx context.Context, key, member string) (float64, error)
	ZCard(ctx context.Context, key string) (int64, error)
}

// GeoStore provides geospatial index operations. Members live in a sorted set,
// so removal goes through ZRem.
type GeoStore interface {
	GeoAdd(ctx context.Context, key string, lon, lat float64, member string) error
	GeoRadius(ctx context.Context, key string, lon, lat, radiusKm float64) ([]string, error)
}

// Pipeliner applies a batch of index mutations in a single round-trip.
type Pipeliner interface {
	Apply(ctx context.Context, muts []Mutation) error
}
