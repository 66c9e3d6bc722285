// Package period implements half-open day interval math used for stay pricing
// and availability: overlap tests, per-day price lookup and the compressed
// blocked-interval representation stored in the index.
package period

import (
	"cmp"
	"fmt"
	"time"

	"github.com/kailas-cloud/staydex/internal/domain"
)

// DayDuration is the length of one schedule day.
const DayDuration = 24 * time.Hour

// Status is the availability status of a single schedule day.
type Status string

// Schedule day statuses. Anything other than StatusAvailable blocks the day.
const (
	StatusAvailable   Status = "available"
	StatusBlocked     Status = "blocked"
	StatusBooked      Status = "booked"
	StatusMaintenance Status = "maintenance"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusBlocked, StatusBooked, StatusMaintenance:
		return true
	}
	return false
}

// Day is one entry of a unit's daily schedule. A nil Price falls back to the
// unit base price.
type Day struct {
	Date   time.Time `json:"date"`
	Price  *float64  `json:"price,omitempty"`
	Status Status    `json:"status"`
}

// Blocking reports whether the day prevents a stay.
func (d Day) Blocking() bool { return d.Status != StatusAvailable && d.Status != "" }

// Midnight truncates t to 00:00 UTC of its calendar day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching boundaries do not overlap.
func Overlaps[T cmp.Ordered](aStart, aEnd, bStart, bEnd T) (bool, error) {
	if aStart >= aEnd {
		return false, fmt.Errorf("%w: start %v >= end %v", domain.ErrInvalidRange, aStart, aEnd)
	}
	return aStart < bEnd && bStart < aEnd, nil
}

// OverlapsTime is Overlaps for time values.
func OverlapsTime(aStart, aEnd, bStart, bEnd time.Time) (bool, error) {
	return Overlaps(aStart.Unix(), aEnd.Unix(), bStart.Unix(), bEnd.Unix())
}

// Nights returns the number of whole nights in [checkIn, checkOut).
func Nights(checkIn, checkOut time.Time) (int, error) {
	in, out := Midnight(checkIn), Midnight(checkOut)
	if !in.Before(out) {
		return 0, fmt.Errorf("%w: check-in %s is not before check-out %s",
			domain.ErrInvalidRange, in.Format(time.DateOnly), out.Format(time.DateOnly))
	}
	return int(out.Sub(in) / DayDuration), nil
}

// Dates lists each day in [checkIn, checkOut).
func Dates(checkIn, checkOut time.Time) ([]time.Time, error) {
	n, err := Nights(checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	start := Midnight(checkIn)
	out := make([]time.Time, n)
	for i := range n {
		out[i] = start.AddDate(0, 0, i)
	}
	return out, nil
}

func byDate(schedule []Day) map[int64]Day {
	m := make(map[int64]Day, len(schedule))
	for _, d := range schedule {
		m[Midnight(d.Date).Unix()] = d
	}
	return m
}

func priceOf(days map[int64]Day, date time.Time, basePrice float64) float64 {
	if d, ok := days[Midnight(date).Unix()]; ok && d.Price != nil {
		return *d.Price
	}
	return basePrice
}

// DailyPrice returns the scheduled price for date, or basePrice if the
// schedule has no priced entry for it.
func DailyPrice(date time.Time, basePrice float64, schedule []Day) float64 {
	return priceOf(byDate(schedule), date, basePrice)
}

// TotalPrice sums DailyPrice over every night in [checkIn, checkOut).
func TotalPrice(checkIn, checkOut time.Time, basePrice float64, schedule []Day) (float64, error) {
	dates, err := Dates(checkIn, checkOut)
	if err != nil {
		return 0, err
	}
	days := byDate(schedule)
	var total float64
	for _, d := range dates {
		total += priceOf(days, d, basePrice)
	}
	return total, nil
}

// AveragePricePerNight is TotalPrice divided by the number of nights.
func AveragePricePerNight(checkIn, checkOut time.Time, basePrice float64, schedule []Day) (float64, error) {
	nights, err := Nights(checkIn, checkOut)
	if err != nil {
		return 0, err
	}
	total, err := TotalPrice(checkIn, checkOut, basePrice, schedule)
	if err != nil {
		return 0, err
	}
	return total / float64(nights), nil
}

// IsAvailable reports whether no scheduled day in [checkIn, checkOut) is
// blocking. Days missing from the schedule count as available.
func IsAvailable(checkIn, checkOut time.Time, schedule []Day) (bool, error) {
	blocked, err := BlockedDates(checkIn, checkOut, schedule)
	if err != nil {
		return false, err
	}
	return len(blocked) == 0, nil
}

// BlockedDates returns the requested dates whose schedule status is blocking.
func BlockedDates(checkIn, checkOut time.Time, schedule []Day) ([]time.Time, error) {
	dates, err := Dates(checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	days := byDate(schedule)
	var out []time.Time
	for _, d := range dates {
		if day, ok := days[d.Unix()]; ok && day.Blocking() {
			out = append(out, d)
		}
	}
	return out, nil
}
