package pricing

import (
	"errors"
	"sort"

	"airbnb-pricer/models"
)

// ErrNoComparablePrices is returned when no comp carries a positive price.
var ErrNoComparablePrices = errors.New("no comparable prices collected")

// minWeight keeps weak matches from dropping out of the weighted median.
const minWeight = 0.05

// maxListingDiscount caps the new-listing discount applied to the median.
const maxListingDiscount = 0.35

// RecommendDebug explains how a recommendation was reached.
type RecommendDebug struct {
	PickedN            int      `json:"picked_n"`
	WeightedMedian     float64  `json:"weighted_median"`
	DiscountApplied    float64  `json:"discount_applied"`
	RecommendedNightly float64  `json:"recommended_nightly"`
	P25                *float64 `json:"p25"`
	P75                *float64 `json:"p75"`
	Min                float64  `json:"min"`
	Max                float64  `json:"max"`
}

// ScoredListing pairs a listing with its similarity to the target.
type ScoredListing struct {
	Listing models.ListingSpec
	Score   float64
}

// RankBySimilarity scores comps against the target, most similar first.
// Ties keep their input order.
func RankBySimilarity(target *models.ListingSpec, comps []models.ListingSpec) []ScoredListing {
	out := make([]ScoredListing, len(comps))
	for i := range comps {
		out[i] = ScoredListing{Listing: comps[i], Score: SimilarityScore(target, &comps[i])}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// WeightedMedian returns the value at which cumulative weight first
// reaches half the total. ok is false for empty input, mismatched lengths
// or a non-positive total weight.
func WeightedMedian(values, weights []float64) (float64, bool) {
	if len(values) == 0 || len(values) != len(weights) {
		return 0, false
	}
	type pair struct{ v, w float64 }
	pairs := make([]pair, len(values))
	total := 0.0
	for i := range values {
		pairs[i] = pair{values[i], weights[i]}
		total += weights[i]
	}
	if total <= 0 {
		return 0, false
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].v < pairs[j].v })
	cum := 0.0
	for _, p := range pairs {
		cum += p.w
		if cum >= total/2 {
			return p.v, true
		}
	}
	return pairs[len(pairs)-1].v, true
}

// RecommendPrice picks the max(3, topK) most similar priced comps and
// returns their similarity-weighted median less the clamped discount.
func RecommendPrice(target *models.ListingSpec, comps []models.ListingSpec, topK int, discount float64) (float64, RecommendDebug, error) {
	var priced []models.ListingSpec
	for _, c := range comps {
		if c.HasPrice() {
			priced = append(priced, c)
		}
	}
	if len(priced) == 0 {
		return 0, RecommendDebug{}, ErrNoComparablePrices
	}

	ranked := RankBySimilarity(target, priced)
	n := topK
	if n < 3 {
		n = 3
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	picked := ranked[:n]

	prices := make([]float64, len(picked))
	weights := make([]float64, len(picked))
	for i, s := range picked {
		prices[i] = *s.Listing.NightlyPrice
		weights[i] = s.Score
		if weights[i] < minWeight {
			weights[i] = minWeight
		}
	}

	wm, ok := WeightedMedian(prices, weights)
	if !ok {
		wm, _ = Median(prices)
	}
	d := clamp(discount, 0, maxListingDiscount)
	rec := wm * (1 - d)

	dist := Distribution(prices)
	debug := RecommendDebug{
		PickedN:            len(picked),
		WeightedMedian:     Round(wm, 2),
		DiscountApplied:    discount,
		RecommendedNightly: Round(rec, 2),
		P25:                dist.P25,
		P75:                dist.P75,
		Min:                *dist.Min,
		Max:                *dist.Max,
	}
	return rec, debug, nil
}
