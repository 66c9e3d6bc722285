package period

import "time"

// Quote is the price of a stay.
type Quote struct {
	Total           float64 `json:"total"`
	Nights          int     `json:"nights"`
	AveragePerNight float64 `json:"average_per_night"`
	// Extrapolated is set when unpriced nights were filled with the average
	// of the priced ones.
	Extrapolated bool `json:"extrapolated,omitempty"`
	MissingDays  int  `json:"missing_days,omitempty"`
}

// QuoteStay prices [checkIn, checkOut). Nights without a scheduled price use
// basePrice. When basePrice is zero, those nights are filled with the
// average of the scheduled nights and the quote is marked Extrapolated.
func QuoteStay(checkIn, checkOut time.Time, basePrice float64, schedule []Day) (Quote, error) {
	dates, err := Dates(checkIn, checkOut)
	if err != nil {
		return Quote{}, err
	}
	days := byDate(schedule)

	var known float64
	var priced, missing int
	for _, d := range dates {
		if day, ok := days[d.Unix()]; ok && day.Price != nil {
			known += *day.Price
			priced++
			continue
		}
		if basePrice > 0 {
			known += basePrice
			priced++
			continue
		}
		missing++
	}

	q := Quote{Nights: len(dates), Total: known, MissingDays: missing}
	if missing > 0 && priced > 0 {
		avg := known / float64(priced)
		q.Total += avg * float64(missing)
		q.Extrapolated = true
	}
	q.AveragePerNight = q.Total / float64(q.Nights)
	return q, nil
}
