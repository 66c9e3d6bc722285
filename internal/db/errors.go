package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
)

// Op constants map to Valkey/Redis command names for error context.
const (
	OpDel           = "DEL"
	OpHGetAll       = "HGETALL"
	OpHSet          = "HSET"
	OpExists        = "EXISTS"
	OpScan          = "SCAN"
	OpJSONSet       = "JSON.SET"
	OpJSONGet       = "JSON.GET"
	OpSAdd          = "SADD"
	OpSRem          = "SREM"
	OpSMembers      = "SMEMBERS"
	OpSInter        = "SINTER"
	OpSUnion        = "SUNION"
	OpSCard         = "SCARD"
	OpZAdd          = "ZADD"
	OpZRem          = "ZREM"
	OpZRangeByScore = "ZRANGEBYSCORE"
	OpZScore        = "ZSCORE"
	OpZCard         = "ZCARD"
	OpGeoAdd        = "GEOADD"
	OpGeoSearch     = "GEOSEARCH"
	OpPipeline      = "PIPELINE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
