package estimator

import (
	"sort"
	"time"

	"airbnb-pricer/models"
	"airbnb-pricer/pricing"
)

type anchor struct {
	date  time.Time
	price float64
}

// InterpolateMissingDays returns one DayResult per night. Nights sampled
// with a price are kept as-is; every other night is linearly interpolated
// between the nearest priced anchors, or left unresolved when there are
// none.
func InterpolateMissingDays(sampled []models.DayResult, nights []time.Time) []models.DayResult {
	valid := map[time.Time]models.DayResult{}
	attempted := map[time.Time]bool{}
	var anchors []anchor
	for _, r := range sampled {
		d := models.DayOf(r.Date)
		attempted[d] = true
		if r.MedianPrice == nil {
			continue
		}
		if _, dup := valid[d]; !dup {
			anchors = append(anchors, anchor{date: d, price: *r.MedianPrice})
		}
		valid[d] = r
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].date.Before(anchors[j].date) })

	out := make([]models.DayResult, 0, len(nights))
	for _, n := range nights {
		night := models.DayOf(n)
		if r, ok := valid[night]; ok {
			out = append(out, r)
			continue
		}

		day := models.DayResult{
			Date:      night,
			IsWeekend: models.IsWeekendNight(night),
		}
		price, ok := interpolate(night, anchors)
		if !ok {
			day.FilterStage = models.StageNoData
			day.Flags = []string{models.FlagMissingData}
			day.Error = "No valid anchors for interpolation"
			out = append(out, day)
			continue
		}

		p := pricing.Round(price, 2)
		day.MedianPrice = &p
		day.FilterStage = models.StageInterpolated
		day.Flags = []string{models.FlagInterpolated}
		if attempted[night] {
			day.Flags = append(day.Flags, models.FlagMissingData)
		}
		out = append(out, day)
	}
	return out
}

// interpolate expects anchors sorted by date.
func interpolate(target time.Time, anchors []anchor) (float64, bool) {
	switch len(anchors) {
	case 0:
		return 0, false
	case 1:
		return anchors[0].price, true
	}

	var before, after *anchor
	for i := range anchors {
		a := &anchors[i]
		if !a.date.After(target) {
			before = a
		}
		if !a.date.Before(target) && after == nil {
			after = a
		}
	}

	switch {
	case before == nil:
		return after.price, true
	case after == nil:
		return before.price, true
	case before.date.Equal(after.date):
		return before.price, true
	}

	span := models.DaysBetween(before.date, after.date)
	offset := models.DaysBetween(before.date, target)
	return before.price + float64(offset)/float64(span)*(after.price-before.price), true
}
