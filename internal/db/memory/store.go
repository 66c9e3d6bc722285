// Package memory is an in-process implementation of db.Store for local
// development and tests. It mirrors the semantics the index relies on:
// set algebra, score ranges, radius queries and JSON root/sub-path writes.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/staydex/internal/db"
	"github.com/kailas-cloud/staydex/internal/domain/geo"
)

var _ db.Store = (*Store)(nil)

type point struct{ lon, lat float64 }

// Store keeps every structure in maps guarded by one lock.
type Store struct {
	mu     sync.RWMutex
	docs   map[string][]byte
	hashes map[string]map[string]string
	sets   map[string]map[string]struct{}
	zsets  map[string]map[string]float64
	points map[string]map[string]point
}

// New creates an empty store.
func New() *Store {
	return &Store{
		docs:   make(map[string][]byte),
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]map[string]struct{}),
		zsets:  make(map[string]map[string]float64),
		points: make(map[string]map[string]point),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// --- hashes and keys ---

// HSet sets hash fields.
func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for f, v := range fields {
		h[f] = v
	}
	return nil
}

// HGetAll returns a copy of the hash.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.hashes[key]))
	for f, v := range s.hashes[key] {
		out[f] = v
	}
	return out, nil
}

// Del deletes keys of any type.
func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.del(k)
	}
	return nil
}

func (s *Store) del(key string) {
	delete(s.docs, key)
	delete(s.hashes, key)
	delete(s.sets, key)
	delete(s.zsets, key)
	delete(s.points, key)
}

// Exists reports whether key holds any value.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exists(key), nil
}

func (s *Store) exists(key string) bool {
	if _, ok := s.docs[key]; ok {
		return true
	}
	if _, ok := s.hashes[key]; ok {
		return true
	}
	if _, ok := s.sets[key]; ok {
		return true
	}
	_, ok := s.zsets[key]
	return ok
}

// Scan returns the sorted keys matching a glob pattern.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	add := func(k string) {
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	for k := range s.docs {
		add(k)
	}
	for k := range s.hashes {
		add(k)
	}
	for k := range s.sets {
		add(k)
	}
	for k := range s.zsets {
		add(k)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// --- JSON documents ---

// JSONSet writes the root ("$") or a top-level member ("$.name") of a document.
func (s *Store) JSONSet(_ context.Context, key, p string, data []byte) error {
	if !json.Valid(data) {
		return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("invalid json for %s", key)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if p == "$" {
		s.docs[key] = slices.Clone(data)
		return nil
	}
	field, ok := strings.CutPrefix(p, "$.")
	if !ok || field == "" || strings.ContainsAny(field, ".[") {
		return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("unsupported path %q", p)}
	}
	cur, ok := s.docs[key]
	if !ok {
		return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("new objects must be created at the root")}
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(cur, &m); err != nil {
		return &db.Error{Op: db.OpJSONSet, Err: err}
	}
	m[field] = slices.Clone(data)
	merged, err := json.Marshal(m)
	if err != nil {
		return &db.Error{Op: db.OpJSONSet, Err: err}
	}
	s.docs[key] = merged
	return nil
}

// JSONGet returns the document wrapped in an array, as JSON.GET $ does.
func (s *Store) JSONGet(_ context.Context, key string, _ ...string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return wrap(doc), nil
}

// JSONGetMulti returns JSONGet for every key, nil for missing ones.
func (s *Store) JSONGetMulti(_ context.Context, keys []string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]byte, len(keys))
	for i, k := range keys {
		if doc, ok := s.docs[k]; ok {
			out[i] = wrap(doc)
		}
	}
	return out, nil
}

func wrap(doc []byte) []byte {
	out := make([]byte, 0, len(doc)+2)
	out = append(out, '[')
	out = append(out, doc...)
	return append(out, ']')
}

// --- sets ---

// SAdd adds members to a set.
func (s *Store) SAdd(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		s.sadd(key, m)
	}
	return nil
}

func (s *Store) sadd(key, member string) {
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	set[member] = struct{}{}
}

// SRem removes members; an emptied set is deleted.
func (s *Store) SRem(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		s.srem(key, m)
	}
	return nil
}

func (s *Store) srem(key, member string) {
	set, ok := s.sets[key]
	if !ok {
		return
	}
	delete(set, member)
	if len(set) == 0 {
		delete(s.sets, key)
	}
}

// SMembers returns the sorted members of a set.
func (s *Store) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.sets[key]), nil
}

// SInter intersects sets.
func (s *Store) SInter(_ context.Context, keys ...string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(keys) == 0 {
		return nil, nil
	}
	var out []string
	for m := range s.sets[keys[0]] {
		in := true
		for _, k := range keys[1:] {
			if _, ok := s.sets[k][m]; !ok {
				in = false
				break
			}
		}
		if in {
			out = append(out, m)
		}
	}
	slices.Sort(out)
	return out, nil
}

// SUnion unions sets.
func (s *Store) SUnion(_ context.Context, keys ...string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := make(map[string]struct{})
	for _, k := range keys {
		for m := range s.sets[k] {
			u[m] = struct{}{}
		}
	}
	return sortedKeys(u), nil
}

// SCard returns the set size.
func (s *Store) SCard(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.sets[key])), nil
}

// --- sorted sets ---

// ZAdd upserts scored members.
func (s *Store) ZAdd(_ context.Context, key string, members ...db.SortedSetMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		s.zadd(key, m.Member, m.Score)
	}
	return nil
}

func (s *Store) zadd(key, member string, score float64) {
	z, ok := s.zsets[key]
	if !ok {
		z = make(map[string]float64)
		s.zsets[key] = z
	}
	z[member] = score
}

// ZRem removes members; geo points are removed with them.
func (s *Store) ZRem(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		s.zrem(key, m)
	}
	return nil
}

func (s *Store) zrem(key, member string) {
	if z, ok := s.zsets[key]; ok {
		delete(z, member)
		if len(z) == 0 {
			delete(s.zsets, key)
		}
	}
	if p, ok := s.points[key]; ok {
		delete(p, member)
		if len(p) == 0 {
			delete(s.points, key)
		}
	}
}

// ZRangeByScore returns members within the range ordered by score, then member.
func (s *Store) ZRangeByScore(_ context.Context, key string, r db.ScoreRange) ([]db.SortedSetMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []db.SortedSetMember
	for m, score := range s.zsets[key] {
		if inRange(score, r) {
			out = append(out, db.SortedSetMember{Member: m, Score: score})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Member < out[j].Member
	})
	return out, nil
}

func inRange(v float64, r db.ScoreRange) bool {
	if r.Min != nil && (v < *r.Min || (r.MinExclusive && v == *r.Min)) {
		return false
	}
	if r.Max != nil && (v > *r.Max || (r.MaxExclusive && v == *r.Max)) {
		return false
	}
	return true
}

// ZScore returns a member's score.
func (s *Store) ZScore(_ context.Context, key, member string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.zsets[key][member]
	if !ok {
		return 0, db.ErrKeyNotFound
	}
	return v, nil
}

// ZCard returns the sorted set size.
func (s *Store) ZCard(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.zsets[key])), nil
}

// --- geo ---

// GeoAdd upserts a located member.
func (s *Store) GeoAdd(_ context.Context, key string, lon, lat float64, member string) error {
	if !geo.ValidateCoordinates(lat, lon) {
		return &db.Error{Op: db.OpGeoAdd, Err: fmt.Errorf("invalid coordinates %v,%v", lon, lat)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.geoadd(key, lon, lat, member)
	return nil
}

func (s *Store) geoadd(key string, lon, lat float64, member string) {
	p, ok := s.points[key]
	if !ok {
		p = make(map[string]point)
		s.points[key] = p
	}
	p[member] = point{lon: lon, lat: lat}
	// Geo members live in a sorted set; the score only needs to exist.
	s.zadd(key, member, math.Round(lat*1e6))
}

// GeoRadius returns members within radiusKm, nearest first.
func (s *Store) GeoRadius(_ context.Context, key string, lon, lat, radiusKm float64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type hit struct {
		member string
		dist   float64
	}
	var hits []hit
	for m, p := range s.points[key] {
		d := geo.Haversine(lat, lon, p.lat, p.lon) / 1000
		if d <= radiusKm {
			hits = append(hits, hit{m, d})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].member < hits[j].member
	})
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.member
	}
	return out, nil
}

// --- pipeline ---

// Apply runs every mutation under one lock.
func (s *Store) Apply(_ context.Context, muts []db.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range muts {
		switch m.Kind {
		case db.MutSAdd:
			s.sadd(m.Key, m.Member)
		case db.MutSRem:
			s.srem(m.Key, m.Member)
		case db.MutZAdd:
			s.zadd(m.Key, m.Member, m.Score)
		case db.MutZRem:
			s.zrem(m.Key, m.Member)
		case db.MutGeoAdd:
			s.geoadd(m.Key, m.Lon, m.Lat, m.Member)
		case db.MutDel:
			s.del(m.Key)
		default:
			return &db.Error{Op: db.OpPipeline, Err: fmt.Errorf("unknown mutation kind %d", m.Kind)}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
