package engine

import (
	"math"
	"time"
)

const kmPerMile = 1.609344

// KilometersToMiles converts a distance to the canonical unit.
func KilometersToMiles(km float64) float64 {
	return km / kmPerMile
}

// MilesToKilometers is the inverse of KilometersToMiles.
func MilesToKilometers(mi float64) float64 {
	return mi * kmPerMile
}

// DaysBetween returns fractional days from one instant to another.
func DaysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}

// IntervalDays is the calendar length of a month interval starting at from,
// so a 6-month interval starting on Jan 31 ends on Jul 31.
func IntervalDays(from time.Time, months int) float64 {
	from = from.UTC()
	return DaysBetween(from, from.AddDate(0, months, 0))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
