package model

import "github.com/shopspring/decimal"

// WeightedMean adds value with weight w to a mean built from oldWeight samples.
func WeightedMean(oldAvg float64, oldWeight int, value float64, w int) float64 {
	total := oldWeight + w
	if total <= 0 {
		return 0
	}
	return (oldAvg*float64(oldWeight) + value*float64(w)) / float64(total)
}

// RemoveFromMean is the inverse of WeightedMean.
// The result is 0 once no weight remains.
func RemoveFromMean(avg float64, weight int, value float64, w int) float64 {
	rest := weight - w
	if rest <= 0 {
		return 0
	}
	return (avg*float64(weight) - value*float64(w)) / float64(rest)
}

// Round3 rounds half away from zero to 3 decimal places.
func Round3(v float64) float64 {
	return decimal.NewFromFloat(v).Round(3).InexactFloat64()
}
