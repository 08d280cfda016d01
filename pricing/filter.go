package pricing

import "airbnb-pricer/models"

// FilterStage reports which tier produced the kept candidates.
type FilterStage struct {
	Stage              string `json:"stage"`
	TotalCandidates    int    `json:"total_candidates"`
	FilteredCandidates int    `json:"filtered_candidates"`
}

// tolerances of a tier; a negative value leaves the attribute unconstrained
type tolerances struct {
	accommodates float64
	bedrooms     float64
	beds         float64
	baths        float64
}

type tier struct {
	stage   string
	minKeep int
	tol     tolerances
}

var tiers = []tier{
	{models.StageStrict, 8, tolerances{accommodates: 2, bedrooms: 1, beds: 2, baths: 1}},
	{models.StageMedium, 5, tolerances{accommodates: 3, bedrooms: 2, beds: -1, baths: 1.5}},
}

// FilterSimilarCandidates keeps candidates structurally similar to the
// target. Tiers are tried strict first, then medium; if neither keeps
// enough candidates, every candidate is returned.
func FilterSimilarCandidates(target *models.ListingSpec, candidates []models.ListingSpec) ([]models.ListingSpec, FilterStage) {
	total := len(candidates)
	if total == 0 {
		return nil, FilterStage{Stage: models.StageEmpty}
	}
	for _, t := range tiers {
		var kept []models.ListingSpec
		for i := range candidates {
			if t.accepts(target, &candidates[i]) {
				kept = append(kept, candidates[i])
			}
		}
		if len(kept) >= t.minKeep {
			return kept, FilterStage{Stage: t.stage, TotalCandidates: total, FilteredCandidates: len(kept)}
		}
	}
	return candidates, FilterStage{Stage: models.StageFallbackAll, TotalCandidates: total, FilteredCandidates: total}
}

func (t tier) accepts(target, c *models.ListingSpec) bool {
	if target.PropertyType != "" && c.PropertyType != "" && c.PropertyType != target.PropertyType {
		return false
	}
	return within(intAsFloat(target.Accommodates), intAsFloat(c.Accommodates), t.tol.accommodates) &&
		within(intAsFloat(target.Bedrooms), intAsFloat(c.Bedrooms), t.tol.bedrooms) &&
		within(intAsFloat(target.Beds), intAsFloat(c.Beds), t.tol.beds) &&
		within(target.Baths, c.Baths, t.tol.baths)
}

// within treats unknown values and unconstrained tolerances as a pass.
func within(t, c *float64, tol float64) bool {
	if tol < 0 || t == nil || c == nil {
		return true
	}
	d := *t - *c
	if d < 0 {
		d = -d
	}
	return d <= tol
}
