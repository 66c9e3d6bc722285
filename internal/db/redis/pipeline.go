package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/staydex/internal/db"
)

// Apply sends all mutations in a single DoMulti round-trip. Each command is
// atomic on its own key; the batch as a whole is not transactional.
func (s *Store) Apply(ctx context.Context, muts []db.Mutation) error {
	if len(muts) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(muts))
	for _, m := range muts {
		cmd, err := s.buildMutation(m)
		if err != nil {
			return &db.Error{Op: db.OpPipeline, Err: err}
		}
		cmds = append(cmds, cmd)
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpPipeline, Err: fmt.Errorf("%s: %w", muts[i], err)}
		}
	}
	return nil
}

func (s *Store) buildMutation(m db.Mutation) (rueidis.Completed, error) {
	switch m.Kind {
	case db.MutSAdd:
		return s.b().Sadd().Key(m.Key).Member(m.Member).Build(), nil
	case db.MutSRem:
		return s.b().Srem().Key(m.Key).Member(m.Member).Build(), nil
	case db.MutZAdd:
		return s.b().Zadd().Key(m.Key).ScoreMember().ScoreMember(m.Score, m.Member).Build(), nil
	case db.MutZRem:
		return s.b().Zrem().Key(m.Key).Member(m.Member).Build(), nil
	case db.MutGeoAdd:
		return s.b().Geoadd().Key(m.Key).LongitudeLatitudeMember().
			LongitudeLatitudeMember(m.Lon, m.Lat, m.Member).Build(), nil
	case db.MutDel:
		return s.b().Del().Key(m.Key).Build(), nil
	default:
		return rueidis.Completed{}, fmt.Errorf("unknown mutation kind %d", m.Kind)
	}
}
