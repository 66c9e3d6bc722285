// Package unitindex stores unit documents and their secondary index entries
// (membership sets, ordered sets, the geo index and blocked intervals).
package unitindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/staydex/internal/db"
	"github.com/kailas-cloud/staydex/internal/domain"
	"github.com/kailas-cloud/staydex/internal/domain/unitdoc"
)

// store is the consumer interface for the index (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SInter(ctx context.Context, keys ...string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
	ZRangeByScore(ctx context.Context, key string, r db.ScoreRange) ([]db.SortedSetMember, error)
	ZCard(ctx context.Context, key string) (int64, error)
	GeoRadius(ctx context.Context, key string, lon, lat, radiusKm float64) ([]string, error)
	Apply(ctx context.Context, muts []db.Mutation) error
}

// Repo is the secondary index store over a key/value engine.
type Repo struct {
	store store
	keys  Keys
}

// New creates an index repository.
func New(s store, keys Keys) *Repo {
	return &Repo{store: s, keys: keys}
}

// Keys returns the key layout.
func (r *Repo) Keys() Keys { return r.keys }

// Stored is a loaded document with its key.
type Stored struct {
	Key string
	Doc unitdoc.Document
}

// Load returns the document stored under key.
func (r *Repo) Load(ctx context.Context, key string) (unitdoc.Document, error) {
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return unitdoc.Document{}, domain.ErrDocumentNotFound
		}
		return unitdoc.Document{}, fmt.Errorf("json.get %s: %w", key, err)
	}
	return decodeRoot(raw)
}

// LoadMany returns the documents stored under keys, in order. Missing and
// undecodable documents are skipped; the second result lists their keys.
func (r *Repo) LoadMany(ctx context.Context, keys []string) ([]Stored, []string, error) {
	if len(keys) == 0 {
		return nil, nil, nil
	}
	raws, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, nil, fmt.Errorf("json.get %d documents: %w", len(keys), err)
	}
	out := make([]Stored, 0, len(keys))
	var skipped []string
	for i, raw := range raws {
		if raw == nil {
			skipped = append(skipped, keys[i])
			continue
		}
		d, err := decodeRoot(raw)
		if err != nil {
			skipped = append(skipped, keys[i])
			continue
		}
		out = append(out, Stored{Key: keys[i], Doc: d})
	}
	return out, skipped, nil
}

// Replace moves the index from prev (nil when no document existed) to cur:
// stale entries of prev are removed, the document is written, then every
// entry of cur is upserted.
func (r *Repo) Replace(ctx context.Context, prev *unitdoc.Document, cur *unitdoc.Document) error {
	key := r.keys.Doc(cur.PropertyID, cur.UnitID)
	data, err := cur.Marshal()
	if err != nil {
		return err
	}

	var old []entry
	var prevKey string
	if prev != nil {
		prevKey = r.keys.Doc(prev.PropertyID, prev.UnitID)
		old = r.keys.entries(prevKey, prev)
	}
	removals, upserts := diff(old, r.keys.entries(key, cur))

	if err := r.store.Apply(ctx, removals); err != nil {
		return fmt.Errorf("%w: remove stale entries of %s: %w", domain.ErrIndexWriteFailure, key, err)
	}
	if prevKey != "" && prevKey != key {
		if err := r.store.Del(ctx, prevKey); err != nil {
			return fmt.Errorf("%w: del moved document %s: %w", domain.ErrIndexWriteFailure, prevKey, err)
		}
	}
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return fmt.Errorf("%w: json.set %s: %w", domain.ErrIndexWriteFailure, key, err)
	}
	if err := r.store.Apply(ctx, upserts); err != nil {
		return fmt.Errorf("%w: index %s: %w", domain.ErrIndexWriteFailure, key, err)
	}
	return nil
}

// Remove deletes the document under key and its index entries. With a nil
// prev only the fixed-name indexes and blocked intervals can be cleared;
// dimension sets are left to Cleanup.
func (r *Repo) Remove(ctx context.Context, key string, prev *unitdoc.Document) error {
	var muts []db.Mutation
	if prev != nil {
		for _, e := range r.keys.entries(key, prev) {
			muts = append(muts, e.remove())
		}
	} else {
		swept, err := r.sweep(ctx, key)
		if err != nil {
			return fmt.Errorf("%w: unindex %s: %w", domain.ErrIndexWriteFailure, key, err)
		}
		muts = swept
	}

	if err := r.store.Apply(ctx, muts); err != nil {
		return fmt.Errorf("%w: unindex %s: %w", domain.ErrIndexWriteFailure, key, err)
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("%w: del %s: %w", domain.ErrIndexWriteFailure, key, err)
	}
	return nil
}

// sweep removes key from every index whose name does not depend on the
// document's dimension values, including its blocked intervals.
func (r *Repo) sweep(ctx context.Context, key string) ([]db.Mutation, error) {
	k := r.keys
	muts := []db.Mutation{
		{Kind: db.MutSRem, Key: k.Approved(), Member: key},
		{Kind: db.MutZRem, Key: k.Rating(), Member: key},
		{Kind: db.MutZRem, Key: k.Popularity(), Member: key},
		{Kind: db.MutZRem, Key: k.Newest(), Member: key},
		{Kind: db.MutZRem, Key: k.PriceMin(), Member: key},
		{Kind: db.MutZRem, Key: k.PriceMax(), Member: key},
		{Kind: db.MutZRem, Key: k.Geo(), Member: key},
	}
	if pid, uid, ok := k.ParseDoc(key); ok {
		muts = append(muts,
			db.Mutation{Kind: db.MutSRem, Key: k.Property(pid), Member: key},
			db.Mutation{Kind: db.MutSRem, Key: k.Unit(uid), Member: key},
		)
	}

	blocked, err := r.store.ZRangeByScore(ctx, k.Blocked(), db.ScoreRange{})
	if err != nil {
		return nil, fmt.Errorf("zrangebyscore blocked: %w", err)
	}
	for _, m := range blocked {
		if docKey, _, ok := parseBlockedMember(m.Member); ok && docKey == key {
			muts = append(muts, db.Mutation{Kind: db.MutZRem, Key: k.Blocked(), Member: m.Member})
		}
	}
	return muts, nil
}

// PatchSchedule replaces the availability and pricing sections of the
// document in place and moves the price and blocked-interval entries.
func (r *Repo) PatchSchedule(
	ctx context.Context, prev *unitdoc.Document, avail unitdoc.Availability, pricing unitdoc.Pricing,
) error {
	key := r.keys.Doc(prev.PropertyID, prev.UnitID)

	next := *prev
	next.Availability = avail
	next.Pricing = pricing
	if err := next.Validate(); err != nil {
		return err
	}

	availJSON, err := json.Marshal(avail)
	if err != nil {
		return fmt.Errorf("marshal availability: %w", err)
	}
	pricingJSON, err := json.Marshal(pricing)
	if err != nil {
		return fmt.Errorf("marshal pricing: %w", err)
	}

	old := append(r.keys.pricingEntries(key, prev.Pricing), r.keys.blockedEntries(key, prev.Availability)...)
	cur := append(r.keys.pricingEntries(key, pricing), r.keys.blockedEntries(key, avail)...)
	removals, upserts := diff(old, cur)

	if err := r.store.Apply(ctx, removals); err != nil {
		return fmt.Errorf("%w: remove stale schedule entries of %s: %w", domain.ErrIndexWriteFailure, key, err)
	}
	if err := r.store.JSONSet(ctx, key, "$.availability", availJSON); err != nil {
		return fmt.Errorf("%w: json.set %s availability: %w", domain.ErrIndexWriteFailure, key, err)
	}
	if err := r.store.JSONSet(ctx, key, "$.pricing", pricingJSON); err != nil {
		return fmt.Errorf("%w: json.set %s pricing: %w", domain.ErrIndexWriteFailure, key, err)
	}
	if err := r.store.Apply(ctx, upserts); err != nil {
		return fmt.Errorf("%w: schedule entries of %s: %w", domain.ErrIndexWriteFailure, key, err)
	}
	return nil
}

// PropertyUnits returns the document keys of a property.
func (r *Repo) PropertyUnits(ctx context.Context, propertyID string) ([]string, error) {
	keys, err := r.store.SMembers(ctx, r.keys.Property(propertyID))
	if err != nil {
		return nil, fmt.Errorf("smembers property %s: %w", propertyID, err)
	}
	return keys, nil
}

// UnitTypeUnits returns the document keys of a unit type.
func (r *Repo) UnitTypeUnits(ctx context.Context, unitTypeID string) ([]string, error) {
	keys, err := r.store.SMembers(ctx, r.keys.UnitType(unitTypeID))
	if err != nil {
		return nil, fmt.Errorf("smembers unit type %s: %w", unitTypeID, err)
	}
	return keys, nil
}

// Locate returns the document keys indexed for a unit. More than one key means
// the unit moved between properties and the old document was not removed.
func (r *Repo) Locate(ctx context.Context, unitID string) ([]string, error) {
	keys, err := r.store.SMembers(ctx, r.keys.Unit(unitID))
	if err != nil {
		return nil, fmt.Errorf("smembers unit %s: %w", unitID, err)
	}
	return keys, nil
}

// PropertyDocs returns the document keys stored under a property, whether or
// not they are still members of the property set.
func (r *Repo) PropertyDocs(ctx context.Context, propertyID string) ([]string, error) {
	keys, err := r.store.Scan(ctx, r.keys.PropertyDocPattern(propertyID))
	if err != nil {
		return nil, fmt.Errorf("scan property %s: %w", propertyID, err)
	}
	return keys, nil
}

// DocKeys lists every stored document key.
func (r *Repo) DocKeys(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, r.keys.DocPattern())
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	return keys, nil
}

// decodeRoot parses a JSON.GET $ reply, which wraps the document in an array.
func decodeRoot(raw []byte) (unitdoc.Document, error) {
	var docs []json.RawMessage
	if err := json.Unmarshal(raw, &docs); err != nil {
		return unitdoc.Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidDocument, err)
	}
	if len(docs) == 0 {
		return unitdoc.Document{}, domain.ErrDocumentNotFound
	}
	return unitdoc.Unmarshal(docs[0])
}
