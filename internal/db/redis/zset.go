package redis

import (
	"context"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/staydex/internal/db"
)

// ZAdd upserts scored members.
func (s *Store) ZAdd(ctx context.Context, key string, members ...db.SortedSetMember) error {
	if len(members) == 0 {
		return nil
	}
	cmd := s.b().Zadd().Key(key).ScoreMember()
	for _, m := range members {
		cmd = cmd.ScoreMember(m.Score, m.Member)
	}
	if err := s.do(ctx, cmd.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Err: err}
	}
	return nil
}

// ZRem removes members from a sorted set.
func (s *Store) ZRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	cmd := s.b().Zrem().Key(key).Member(members...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZRem, Err: err}
	}
	return nil
}

// ZRangeByScore returns members (with scores) whose score falls in r.
func (s *Store) ZRangeByScore(ctx context.Context, key string, r db.ScoreRange) ([]db.SortedSetMember, error) {
	cmd := s.b().Zrangebyscore().Key(key).
		Min(formatBound(r.Min, r.MinExclusive, "-inf")).
		Max(formatBound(r.Max, r.MaxExclusive, "+inf")).
		Withscores().
		Build()
	scores, err := s.do(ctx, cmd).AsZScores()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRangeByScore, Err: err}
	}
	out := make([]db.SortedSetMember, len(scores))
	for i, z := range scores {
		out[i] = db.SortedSetMember{Member: z.Member, Score: z.Score}
	}
	return out, nil
}

// ZScore returns the score of a member, or db.ErrKeyNotFound when absent.
func (s *Store) ZScore(ctx context.Context, key, member string) (float64, error) {
	cmd := s.b().Zscore().Key(key).Member(member).Build()
	score, err := s.do(ctx, cmd).AsFloat64()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, db.ErrKeyNotFound
		}
		return 0, &db.Error{Op: db.OpZScore, Err: err}
	}
	return score, nil
}

// ZCard returns the sorted set cardinality.
func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Zcard().Key(key).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpZCard, Err: err}
	}
	return n, nil
}

// formatBound renders a ZRANGEBYSCORE bound: open bounds become ±inf,
// exclusive bounds get the "(" prefix.
func formatBound(v *float64, exclusive bool, open string) string {
	if v == nil {
		return open
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	if exclusive {
		return "(" + s
	}
	return s
}
