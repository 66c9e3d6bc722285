package unitindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/staydex/internal/db"
)

// Meta hash fields.
const (
	MetaLastRebuild      = "last_rebuild"
	MetaDocumentsRebuilt = "documents_rebuilt"
	MetaLastCleanup      = "last_cleanup"
	MetaOrphansRemoved   = "orphans_removed"
)

// Statistics summarizes the index contents.
type Statistics struct {
	Documents  int64             `json:"documents"`
	Approved   int64             `json:"approved"`
	Geo        int64             `json:"geo"`
	Priced     int64             `json:"priced"`
	ByCity     map[string]int64  `json:"by_city"`
	ByUnitType map[string]int64  `json:"by_unit_type"`
	Meta       map[string]string `json:"meta"`
	IndexKeys  int               `json:"index_keys"`
	KeyPrefix  string            `json:"key_prefix"`
}

// Statistics counts documents and their distribution over cities and unit types.
func (r *Repo) Statistics(ctx context.Context) (Statistics, error) {
	k := r.keys
	docs, err := r.DocKeys(ctx)
	if err != nil {
		return Statistics{}, err
	}
	st := Statistics{Documents: int64(len(docs)), KeyPrefix: k.Prefix()}

	if st.Approved, err = r.store.SCard(ctx, k.Approved()); err != nil {
		return Statistics{}, fmt.Errorf("scard approved: %w", err)
	}
	if st.Geo, err = r.store.ZCard(ctx, k.Geo()); err != nil {
		return Statistics{}, fmt.Errorf("zcard geo: %w", err)
	}
	if st.Priced, err = r.store.ZCard(ctx, k.PriceMin()); err != nil {
		return Statistics{}, fmt.Errorf("zcard price: %w", err)
	}
	if st.ByCity, err = r.distribution(ctx, k.CityPattern()); err != nil {
		return Statistics{}, err
	}
	if st.ByUnitType, err = r.distribution(ctx, k.UnitTypePattern()); err != nil {
		return Statistics{}, err
	}
	if st.Meta, err = r.store.HGetAll(ctx, k.Meta()); err != nil {
		return Statistics{}, fmt.Errorf("hgetall meta: %w", err)
	}
	indexKeys, err := r.store.Scan(ctx, k.IndexPattern())
	if err != nil {
		return Statistics{}, fmt.Errorf("scan index keys: %w", err)
	}
	st.IndexKeys = len(indexKeys)
	return st, nil
}

func (r *Repo) distribution(ctx context.Context, pattern string) (map[string]int64, error) {
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", pattern, err)
	}
	prefix := strings.TrimSuffix(pattern, "*")
	out := make(map[string]int64, len(keys))
	for _, key := range keys {
		n, err := r.store.SCard(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("scard %s: %w", key, err)
		}
		if n > 0 {
			out[strings.TrimPrefix(key, prefix)] = n
		}
	}
	return out, nil
}

// SetMeta records maintenance metadata.
func (r *Repo) SetMeta(ctx context.Context, fields map[string]string) error {
	if err := r.store.HSet(ctx, r.keys.Meta(), fields); err != nil {
		return fmt.Errorf("hset meta: %w", err)
	}
	return nil
}

// CleanupResult counts what Cleanup removed.
type CleanupResult struct {
	IndexesScanned  int `json:"indexes_scanned"`
	StaleReferences int `json:"stale_references"`
}

// Cleanup removes index references to documents that no longer exist.
// live is a snapshot of document keys known to exist; a member outside it is
// checked against the store before removal, since documents written after
// the snapshot are live too.
func (r *Repo) Cleanup(ctx context.Context, live func(key string) bool) (CleanupResult, error) {
	k := r.keys
	indexKeys, err := r.store.Scan(ctx, k.IndexPattern())
	if err != nil {
		return CleanupResult{}, fmt.Errorf("scan index keys: %w", err)
	}

	var res CleanupResult
	for _, key := range indexKeys {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.IndexesScanned++

		// Members are read before existence is checked, and documents are
		// written before their entries, so a fresh check per index key is safe.
		checked := make(map[string]bool)
		gone := func(docKey string) (bool, error) {
			if live(docKey) {
				return false, nil
			}
			if exists, ok := checked[docKey]; ok {
				return !exists, nil
			}
			exists, err := r.store.Exists(ctx, docKey)
			if err != nil {
				return false, fmt.Errorf("exists %s: %w", docKey, err)
			}
			checked[docKey] = exists
			return !exists, nil
		}

		var muts []db.Mutation
		if k.IsOrdered(key) {
			members, err := r.store.ZRangeByScore(ctx, key, db.ScoreRange{})
			if err != nil {
				return res, fmt.Errorf("zrangebyscore %s: %w", key, err)
			}
			for _, m := range members {
				docKey := m.Member
				if key == k.Blocked() {
					if dk, _, ok := parseBlockedMember(m.Member); ok {
						docKey = dk
					}
				}
				stale, err := gone(docKey)
				if err != nil {
					return res, err
				}
				if stale {
					muts = append(muts, db.Mutation{Kind: db.MutZRem, Key: key, Member: m.Member})
				}
			}
		} else {
			members, err := r.store.SMembers(ctx, key)
			if err != nil {
				return res, fmt.Errorf("smembers %s: %w", key, err)
			}
			for _, m := range members {
				stale, err := gone(m)
				if err != nil {
					return res, err
				}
				if stale {
					muts = append(muts, db.Mutation{Kind: db.MutSRem, Key: key, Member: m})
				}
			}
		}

		if err := r.store.Apply(ctx, muts); err != nil {
			return res, fmt.Errorf("cleanup %s: %w", key, err)
		}
		res.StaleReferences += len(muts)
	}
	return res, nil
}
