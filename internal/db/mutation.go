package db

import "fmt"

// MutationKind enumerates pipelined index mutations.
type MutationKind int

const (
	// MutSAdd adds Member to the set at Key.
	MutSAdd MutationKind = iota
	// MutSRem removes Member from the set at Key.
	MutSRem
	// MutZAdd upserts Member with Score in the sorted set at Key.
	MutZAdd
	// MutZRem removes Member from the sorted set (or geo index) at Key.
	MutZRem
	// MutGeoAdd upserts Member at (Lon, Lat) in the geo index at Key.
	MutGeoAdd
	// MutDel deletes Key.
	MutDel
)

// Mutation is a single write against a secondary index structure.
type Mutation struct {
	Kind   MutationKind
	Key    string
	Member string
	Score  float64
	Lon    float64
	Lat    float64
}

func (m Mutation) String() string {
	switch m.Kind {
	case MutSAdd:
		return fmt.Sprintf("SADD %s %s", m.Key, m.Member)
	case MutSRem:
		return fmt.Sprintf("SREM %s %s", m.Key, m.Member)
	case MutZAdd:
		return fmt.Sprintf("ZADD %s %g %s", m.Key, m.Score, m.Member)
	case MutZRem:
		return fmt.Sprintf("ZREM %s %s", m.Key, m.Member)
	case MutGeoAdd:
		return fmt.Sprintf("GEOADD %s %g %g %s", m.Key, m.Lon, m.Lat, m.Member)
	case MutDel:
		return "DEL " + m.Key
	default:
		return fmt.Sprintf("unknown(%d) %s", m.Kind, m.Key)
	}
}
