package models

import "time"

// Day flags
const (
	FlagPeak               = "peak"
	FlagEvent              = "event"
	FlagLowDemand          = "low_demand"
	FlagMissingData        = "missing_data"
	FlagInterpolated       = "interpolated"
	FlagLastMinuteDiscount = "last_minute_discount"
)

// Filter stages reported per night
const (
	StageStrict       = "strict"
	StageMedium       = "medium"
	StageFallbackAll  = "fallback_all"
	StageEmpty        = "empty"
	StageError        = "error"
	StageInterpolated = "interpolated"
	StageNoData       = "no_data"
)

// DayLayout is the calendar date format used in every payload
const DayLayout = "2006-01-02"

// PriceDistribution summarizes comparable prices. Quartiles are nil when
// fewer than four prices were available.
type PriceDistribution struct {
	Min    *float64 `json:"min"`
	P25    *float64 `json:"p25"`
	Median *float64 `json:"median"`
	P75    *float64 `json:"p75"`
	Max    *float64 `json:"max"`
}

// DayResult is the outcome for one calendar night, either queried live or
// interpolated. It is not modified after creation.
type DayResult struct {
	Date           time.Time
	MedianPrice    *float64
	CompsCollected int
	CompsFiltered  int
	CompsUsed      int
	FilterStage    string
	Flags          []string
	IsSampled      bool
	IsWeekend      bool
	Distribution   PriceDistribution
	TopComparables []Comparable
	Error          string
}

// HasFlag reports whether the day carries flag f.
func (d *DayResult) HasFlag(f string) bool {
	return HasFlag(d.Flags, f)
}

// HasFlag reports whether flags contains f.
func HasFlag(flags []string, f string) bool {
	for _, x := range flags {
		if x == f {
			return true
		}
	}
	return false
}

// IsWeekendNight treats Friday, Saturday and Sunday nights as weekend.
func IsWeekendNight(t time.Time) bool {
	switch t.Weekday() {
	case time.Friday, time.Saturday, time.Sunday:
		return true
	}
	return false
}

// ParseDay parses a YYYY-MM-DD date as UTC midnight.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, s, time.UTC)
}

// Truncate a timestamp to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DayOf(b).Sub(DayOf(a)).Hours() / 24)
}

// Nights returns each night in the half-open range [checkin, checkout).
func Nights(checkin, checkout time.Time) []time.Time {
	var out []time.Time
	for d := DayOf(checkin); d.Before(DayOf(checkout)); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
