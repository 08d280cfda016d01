package pricing

import (
	"math"
	"sort"
	"strconv"
)

// Round rounds x to the given number of decimal places, based on the exact
// binary value of x with ties going to even. 0.7725 is stored as
// 0.77249999... and therefore rounds to 0.772.
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	return v
}

// RoundInt rounds half to even.
func RoundInt(x float64) int {
	return int(math.RoundToEven(x))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Median of values; the mean of the two middle values for even lengths.
// ok is false for an empty input.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2], true
	}
	return (s[n/2-1] + s[n/2]) / 2, true
}

// Quartiles returns the first and third quartile using the exclusive method
// (positions i*(n+1)/4). ok is false for fewer than two values.
func Quartiles(values []float64) (q1, q3 float64, ok bool) {
	n := len(values)
	if n < 2 {
		return 0, 0, false
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	m := n + 1
	cut := func(i int) float64 {
		j := i * m / 4
		if j < 1 {
			j = 1
		}
		if j > n-1 {
			j = n - 1
		}
		delta := i*m - j*4
		return (s[j-1]*float64(4-delta) + s[j]*float64(delta)) / 4
	}
	return cut(1), cut(3), true
}

// Distribution derives min/p25/median/p75/max from prices, rounded to
// cents. Quartiles need at least four prices.
func Distribution(prices []float64) (d PriceDistribution) {
	if len(prices) == 0 {
		return d
	}
	lo, hi := prices[0], prices[0]
	for _, p := range prices {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	med, _ := Median(prices)
	d.Min = ptr(Round(lo, 2))
	d.Max = ptr(Round(hi, 2))
	d.Median = ptr(Round(med, 2))
	if len(prices) >= 4 {
		q1, q3, _ := Quartiles(prices)
		d.P25 = ptr(Round(q1, 2))
		d.P75 = ptr(Round(q3, 2))
	}
	return d
}

func ptr[T any](v T) *T { return &v }
