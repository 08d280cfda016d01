package worker

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"airbnb-pricer/models"
)

const cacheKeyLength = 32

// ComputeCacheKey fingerprints every input that affects a job's output.
// The payload is a map so encoding/json emits its keys sorted, which keeps
// the serialization canonical.
func ComputeCacheKey(job *models.Job) string {
	a := job.InputAttributes
	p := job.DiscountPolicy
	mode := a.InputMode
	if mode == "" {
		mode = models.InputModeCriteria
	}

	payload := map[string]any{
		"inputMode":                mode,
		"listing_url":              job.ListingURL(),
		"address":                  job.InputAddress,
		"propertyType":             a.PropertyType,
		"bedrooms":                 intOrZero(a.Bedrooms),
		"beds":                     intOrZero(a.Beds),
		"bathrooms":                floatOrZero(a.Bathrooms),
		"maxGuests":                intOrZero(a.MaxGuests),
		"startDate":                job.InputDateStart.Format(models.DayLayout),
		"endDate":                  job.InputDateEnd.Format(models.DayLayout),
		"weeklyDiscountPct":        p.WeeklyDiscountPct,
		"monthlyDiscountPct":       p.MonthlyDiscountPct,
		"refundable":               p.Refundable,
		"nonRefundableDiscountPct": p.NonRefundableDiscountPct,
		"stackingMode":             string(p.StackingMode),
		"maxTotalDiscountPct":      p.MaxTotalDiscountPct,
		"minPriceFloor":            p.MinPriceFloor,
		"maxPriceCeiling":          p.MaxPriceCeiling,
	}
	// A map of scalars cannot fail to encode.
	canonical, _ := json.Marshal(payload)
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:cacheKeyLength]
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
