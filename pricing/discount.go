package pricing

import (
	"math"
	"sort"

	"airbnb-pricer/models"
)

// Stay lengths at which length-of-stay discounts start
const (
	WeeklyStayNights  = 7
	MonthlyStayNights = 28
)

// DiscountedPrice is a nightly price after discounts.
type DiscountedPrice struct {
	RefundablePrice    int `json:"refundablePrice"`
	NonRefundablePrice int `json:"nonRefundablePrice"`
}

// LengthDiscount is the length-of-stay discount fraction for a stay.
func LengthDiscount(stayNights int, p models.DiscountPolicy) float64 {
	switch {
	case stayNights >= MonthlyStayNights && p.MonthlyDiscountPct > 0:
		return p.MonthlyDiscountPct / 100
	case stayNights >= WeeklyStayNights && p.WeeklyDiscountPct > 0:
		return p.WeeklyDiscountPct / 100
	}
	return 0
}

// DiscountFractions returns the refundable and non-refundable discount
// fractions for a stay; both are capped at maxTotalDiscountPct.
func DiscountFractions(stayNights int, p models.DiscountPolicy) (refundable, nonRefundable float64) {
	length := LengthDiscount(stayNights, p)
	nonRef := 0.0
	if !p.Refundable {
		nonRef = p.NonRefundableDiscountPct / 100
	}
	maxTotal := p.MaxTotalDiscountPct / 100

	refundable = length
	switch p.StackingMode {
	case models.StackBestOnly:
		nonRefundable = math.Max(length, nonRef)
	case models.StackAdditive:
		nonRefundable = math.Min(length+nonRef, maxTotal)
	default:
		nonRefundable = math.Min(1-(1-length)*(1-nonRef), maxTotal)
	}
	refundable = math.Min(refundable, maxTotal)
	return refundable, nonRefundable
}

// ApplyDiscount prices one night of a stay of stayNights nights.
func ApplyDiscount(basePrice float64, stayNights int, p models.DiscountPolicy) DiscountedPrice {
	r, nr := DiscountFractions(stayNights, p)
	return DiscountedPrice{
		RefundablePrice:    RoundInt(basePrice * (1 - r)),
		NonRefundablePrice: RoundInt(basePrice * (1 - nr)),
	}
}

// ClampPrice applies the policy's optional floor and ceiling.
func ClampPrice(price int, p models.DiscountPolicy) int {
	out := float64(price)
	if p.MinPriceFloor != nil {
		out = math.Max(out, *p.MinPriceFloor)
	}
	if p.MaxPriceCeiling != nil {
		out = math.Min(out, *p.MaxPriceCeiling)
	}
	return RoundInt(out)
}

// AverageRefundablePriceForStay averages the refundable price over the
// first stayNights base prices, each discounted at that stay length.
func AverageRefundablePriceForStay(basePrices []int, stayNights int, p models.DiscountPolicy) int {
	n := stayNights
	if n > len(basePrices) {
		n = len(basePrices)
	}
	if n <= 0 {
		return 0
	}
	sum := 0
	for _, bp := range basePrices[:n] {
		sum += ApplyDiscount(float64(bp), stayNights, p).RefundablePrice
	}
	return RoundInt(float64(sum) / float64(n))
}

// BuildStayLengthAverages reports representative stay lengths: one night,
// the selected range, and a week and a month when the range covers them.
func BuildStayLengthAverages(basePrices []int, totalDays int, p models.DiscountPolicy) []models.StayLengthAverage {
	lengths := []int{1, totalDays}
	if totalDays >= WeeklyStayNights {
		lengths = append(lengths, WeeklyStayNights)
	}
	if totalDays >= MonthlyStayNights {
		lengths = append(lengths, MonthlyStayNights)
	}

	seen := make(map[int]bool)
	var uniq []int
	for _, l := range lengths {
		if l > 0 && !seen[l] {
			seen[l] = true
			uniq = append(uniq, l)
		}
	}
	sort.Ints(uniq)

	out := make([]models.StayLengthAverage, 0, len(uniq))
	for _, l := range uniq {
		out = append(out, models.StayLengthAverage{
			Nights:            l,
			AvgNightly:        AverageRefundablePriceForStay(basePrices, l, p),
			LengthDiscountPct: Round(LengthDiscount(l, p)*100, 2),
		})
	}
	return out
}
