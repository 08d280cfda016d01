package pricing

import (
	"sort"

	"airbnb-pricer/models"
)

// PipelineVersion tags results produced by the day-by-day pipeline
const PipelineVersion = "day-by-day-v1"

// maxComparableListings bounds the comparable index of a result.
const maxComparableListings = 20

// AssemblyInput is everything one run contributes to its result.
type AssemblyInput struct {
	Target             *models.ListingSpec
	Criteria           models.QueryCriteria
	Days               []models.DayResult
	TimingsMs          map[string]int64
	Source             string
	ExtractionWarnings []string
}

// TargetSpecOf converts a listing into its caller-facing view.
func TargetSpecOf(l *models.ListingSpec) models.TargetSpec {
	amenities := l.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	return models.TargetSpec{
		Title:        l.Title,
		Location:     l.Location,
		PropertyType: l.PropertyType,
		Accommodates: l.Accommodates,
		Bedrooms:     l.Bedrooms,
		Beds:         l.Beds,
		Baths:        l.Baths,
		Amenities:    amenities,
		Rating:       l.Rating,
		Reviews:      l.Reviews,
	}
}

// BuildTransparentResult aggregates per-night results into the result
// handed back to the caller.
func BuildTransparentResult(in AssemblyInput) models.TransparentResult {
	var valid, weekday, weekend []float64
	stats := models.DayQueryStats{TotalNights: len(in.Days)}
	comps := models.CompsSummary{}
	stageCount := map[string]int{}

	for i := range in.Days {
		d := &in.Days[i]
		comps.Collected += d.CompsCollected
		comps.AfterFiltering += d.CompsFiltered
		comps.UsedForPricing += d.CompsUsed
		if d.IsSampled {
			stats.Sampled++
		}
		if d.MedianPrice == nil {
			stats.Missing++
			continue
		}
		if !d.IsSampled {
			stats.Interpolated++
		} else {
			stageCount[d.FilterStage]++
		}
		valid = append(valid, *d.MedianPrice)
		if d.IsWeekend {
			weekend = append(weekend, *d.MedianPrice)
		} else {
			weekday = append(weekday, *d.MedianPrice)
		}
	}
	stats.ValidPriceCount = len(valid)
	comps.SampledDays = stats.Sampled
	comps.InterpolatedDays = stats.Interpolated
	comps.MissingDays = stats.Missing
	comps.FilterStage, comps.FilterStages = dominantStage(stageCount)

	dist := Distribution(valid)
	rec := models.RecommendedPrice{Nightly: dist.Median}
	rec.WeekdayEstimate = estimate(weekday, dist.Median)
	rec.WeekendEstimate = estimate(weekend, dist.Median)

	warnings := in.ExtractionWarnings
	if warnings == nil {
		warnings = []string{}
	}

	return models.TransparentResult{
		TargetSpec:         TargetSpecOf(in.Target),
		QueryCriteria:      in.Criteria,
		CompsSummary:       comps,
		PriceDistribution:  models.PriceSummary{PriceDistribution: dist, Currency: "USD"},
		RecommendedPrice:   rec,
		ComparableListings: ComparableIndex(in.Days),
		Debug: models.ResultDebug{
			Source:             in.Source,
			ExtractionWarnings: warnings,
			TimingsMs:          in.TimingsMs,
			PipelineVersion:    PipelineVersion,
			DayQueryStats:      stats,
		},
	}
}

// dominantStage picks the most frequent tier among priced sampled nights,
// preferring the stricter tier on ties.
func dominantStage(counts map[string]int) (string, []string) {
	order := []string{models.StageStrict, models.StageMedium, models.StageFallbackAll}
	best, bestN := models.StageFallbackAll, 0
	var seen []string
	for _, s := range order {
		n := counts[s]
		if n == 0 {
			continue
		}
		seen = append(seen, s)
		if n > bestN {
			best, bestN = s, n
		}
	}
	if seen == nil {
		seen = []string{}
	}
	return best, seen
}

func estimate(prices []float64, fallback *float64) *int {
	if m, ok := Median(prices); ok {
		v := RoundInt(m)
		return &v
	}
	if fallback != nil {
		v := RoundInt(*fallback)
		return &v
	}
	return nil
}

// ComparableIndex de-duplicates the per-night top comparables, averaging
// each listing's similarity over the nights it appeared in. The result is
// sorted by similarity descending, then price ascending, and capped at 20.
func ComparableIndex(days []models.DayResult) []models.Comparable {
	type state struct {
		item  models.Comparable
		sum   float64
		count int
	}
	index := map[string]*state{}
	var order []string
	for _, d := range days {
		for _, c := range d.TopComparables {
			id := c.ID
			if id == "" {
				id = c.URL
			}
			if id == "" {
				continue
			}
			if s, ok := index[id]; ok {
				s.sum += c.Similarity
				s.count++
				continue
			}
			index[id] = &state{item: c, sum: c.Similarity, count: 1}
			order = append(order, id)
		}
	}

	out := make([]models.Comparable, 0, len(order))
	for _, id := range order {
		s := index[id]
		item := s.item
		item.Similarity = Round(s.sum/float64(s.count), 3)
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].NightlyPrice < out[j].NightlyPrice
	})
	if len(out) > maxComparableListings {
		out = out[:maxComparableListings]
	}
	return out
}
