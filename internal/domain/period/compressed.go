package period

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/staydex/internal/domain"
)

// Interval is a half-open [Start, End) range in unix seconds.
type Interval struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// StartTime returns Start as UTC time.
func (iv Interval) StartTime() time.Time { return time.Unix(iv.Start, 0).UTC() }

// EndTime returns End as UTC time.
func (iv Interval) EndTime() time.Time { return time.Unix(iv.End, 0).UTC() }

// CompressBlockedPeriods merges runs of consecutive blocking days into single
// half-open intervals, ordered by start.
func CompressBlockedPeriods(schedule []Day) []Interval {
	blocked := make([]int64, 0, len(schedule))
	for _, d := range schedule {
		if d.Blocking() {
			blocked = append(blocked, Midnight(d.Date).Unix())
		}
	}
	slices.Sort(blocked)
	blocked = slices.Compact(blocked)

	day := int64(DayDuration / time.Second)
	var out []Interval
	for _, start := range blocked {
		if n := len(out); n > 0 && out[n-1].End == start {
			out[n-1].End = start + day
			continue
		}
		out = append(out, Interval{Start: start, End: start + day})
	}
	return out
}

// ExpandIntervals lists every day covered by the intervals.
func ExpandIntervals(intervals []Interval) []time.Time {
	day := int64(DayDuration / time.Second)
	var out []time.Time
	for _, iv := range intervals {
		for ts := iv.Start; ts < iv.End; ts += day {
			out = append(out, time.Unix(ts, 0).UTC())
		}
	}
	return out
}

// IsAvailableFromCompressed is IsAvailable evaluated against compressed
// intervals instead of the full schedule.
func IsAvailableFromCompressed(checkIn, checkOut time.Time, compressed []Interval) (bool, error) {
	in, out := Midnight(checkIn).Unix(), Midnight(checkOut).Unix()
	for _, iv := range compressed {
		hit, err := Overlaps(in, out, iv.Start, iv.End)
		if err != nil {
			return false, err
		}
		if hit {
			return false, nil
		}
	}
	return true, nil
}

// EncodeIntervals renders intervals as "start-end,start-end".
func EncodeIntervals(intervals []Interval) string {
	var b strings.Builder
	for i, iv := range intervals {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(iv.Start, 10))
		b.WriteByte('-')
		b.WriteString(strconv.FormatInt(iv.End, 10))
	}
	return b.String()
}

// DecodeIntervals parses the EncodeIntervals format.
func DecodeIntervals(s string) ([]Interval, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]Interval, 0, len(parts))
	for _, p := range parts {
		startStr, endStr, ok := strings.Cut(p, "-")
		if !ok {
			return nil, fmt.Errorf("%w: malformed interval %q", domain.ErrInvalidRange, p)
		}
		start, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: interval start %q: %w", domain.ErrInvalidRange, startStr, err)
		}
		end, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: interval end %q: %w", domain.ErrInvalidRange, endStr, err)
		}
		if start >= end {
			return nil, fmt.Errorf("%w: interval %q is empty", domain.ErrInvalidRange, p)
		}
		out = append(out, Interval{Start: start, End: end})
	}
	return out, nil
}
