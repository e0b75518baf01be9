// Package mathx provides the numerical helpers used by the scan analysis:
// rounding to a unit, Savitzky-Golay smoothing, and local extremum search.
package mathx

import "math"

// Round rounds a float to the nearest "unit" (0.1 for tenth, 0.01 for hundredth, and so on).
func Round(x, unit float64) float64 {
	return math.Round(x/unit) * unit
}
