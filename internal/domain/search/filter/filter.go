// Package filter models dynamic-field predicates: an exact text match or an
// inclusive numeric range on a named field.
package filter

import (
	"fmt"
	"strings"
)

// MaxConditions is the maximum number of dynamic-field conditions per request.
const MaxConditions = 32

// Condition is a single dynamic-field predicate.
type Condition struct {
	field string
	match string
	rng   *Range
}

// NewMatch creates an exact text match condition. The value is folded the
// same way indexed text values are, so matching ignores case and surrounding
// whitespace.
func NewMatch(field, match string) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("filter field is required")
	}
	match = Fold(match)
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for field %q", field)
	}
	return Condition{field: field, match: match}, nil
}

// NewRange creates an inclusive numeric range condition.
func NewRange(field string, r Range) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("filter field is required")
	}
	return Condition{field: field, rng: &r}, nil
}

// Field returns the dynamic field name.
func (c Condition) Field() string { return c.field }

// Match returns the folded match value.
func (c Condition) Match() string { return c.match }

// Range returns the numeric range, nil for match conditions.
func (c Condition) Range() *Range { return c.rng }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rng != nil }

// Matches evaluates the condition against a unit's dynamic field values.
// A unit without a value for the field never matches.
func (c Condition) Matches(text map[string]string, numeric map[string]float64) bool {
	if c.rng != nil {
		v, ok := numeric[c.field]
		return ok && c.rng.Contains(v)
	}
	v, ok := text[c.field]
	return ok && Fold(v) == c.match
}

// Fold lowercases v and trims surrounding whitespace.
func Fold(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// Range is an inclusive [min, max] numeric range; a nil bound is open.
type Range struct {
	min *float64
	max *float64
}

// NewRangeFilter validates and creates a Range.
func NewRangeFilter(minV, maxV *float64) (Range, error) {
	if minV == nil && maxV == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if minV != nil && maxV != nil && *minV > *maxV {
		return Range{}, fmt.Errorf("range min %v is greater than max %v", *minV, *maxV)
	}
	return Range{min: minV, max: maxV}, nil
}

// Min returns the lower bound.
func (r Range) Min() *float64 { return r.min }

// Max returns the upper bound.
func (r Range) Max() *float64 { return r.max }

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	if r.min != nil && v < *r.min {
		return false
	}
	if r.max != nil && v > *r.max {
		return false
	}
	return true
}
