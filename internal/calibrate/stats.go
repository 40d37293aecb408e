package calibrate

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// minVariance is the smallest summed squared deviation of x that still
// yields a slope.
const minVariance = 1e-12

// median returns the middle value, averaging the two middle values of an
// even count, or 0 for no values. v is sorted in place.
func median(v []float64) float64 {
	n := len(v)
	if n == 0 {
		return 0
	}
	slices.Sort(v)
	if n%2 == 1 {
		return v[n/2]
	}
	return (v[n/2-1] + v[n/2]) / 2
}

// slope is the ordinary least squares slope of y against x. It is 0 when
// there are fewer than minPoints pairs or x does not vary.
func slope(x, y []float64, minPoints int) float64 {
	if len(x) < minPoints || len(x) == 0 {
		return 0
	}
	if stat.PopVariance(x, nil)*float64(len(x)) < minVariance {
		return 0
	}
	_, beta := stat.LinearRegression(x, y, nil, false)
	return beta
}
