package pricing

import "airbnb-pricer/models"

// neutralPrior is credited when one side of a comparison is unknown.
const neutralPrior = 0.35

// mismatchedTypeCredit is credited when both property types are known but differ.
const mismatchedTypeCredit = 0.15

type feature struct {
	name    string
	weight  float64
	compare func(target, cand *models.ListingSpec) (sim float64, known bool)
}

// scoreAcc is threaded through the fold over the feature table.
type scoreAcc struct {
	score  float64
	weight float64
}

func (a scoreAcc) add(f feature, target, cand *models.ListingSpec) scoreAcc {
	sim, known := f.compare(target, cand)
	if !known {
		sim = neutralPrior
	}
	return scoreAcc{score: a.score + sim*f.weight, weight: a.weight + f.weight}
}

var features = []feature{
	{"accommodates", 2.2, numeric(3, func(l *models.ListingSpec) *float64 { return intAsFloat(l.Accommodates) })},
	{"bedrooms", 2.6, numeric(2, func(l *models.ListingSpec) *float64 { return intAsFloat(l.Bedrooms) })},
	{"beds", 1.4, numeric(3, func(l *models.ListingSpec) *float64 { return intAsFloat(l.Beds) })},
	{"baths", 2.0, numeric(1.5, func(l *models.ListingSpec) *float64 { return l.Baths })},
	{"propertyType", 1.8, propertyTypeMatch},
	{"amenities", 1.2, amenityOverlap},
}

// SimilarityScore compares a candidate against the target and returns a
// score in [0,1]. Unknown attributes contribute the neutral prior.
func SimilarityScore(target, cand *models.ListingSpec) float64 {
	var acc scoreAcc
	for _, f := range features {
		acc = acc.add(f, target, cand)
	}
	if acc.weight <= 0 {
		return 0
	}
	return clamp(acc.score/acc.weight, 0, 1)
}

func numeric(tolerance float64, get func(*models.ListingSpec) *float64) func(t, c *models.ListingSpec) (float64, bool) {
	return func(t, c *models.ListingSpec) (float64, bool) {
		tv, cv := get(t), get(c)
		if tv == nil || cv == nil {
			return 0, false
		}
		diff := *tv - *cv
		if diff < 0 {
			diff = -diff
		}
		sim := 1 - diff/tolerance
		if sim < 0 {
			sim = 0
		}
		return sim, true
	}
}

func propertyTypeMatch(t, c *models.ListingSpec) (float64, bool) {
	if t.PropertyType == "" || c.PropertyType == "" {
		return 0, false
	}
	if t.PropertyType == c.PropertyType {
		return 1, true
	}
	return mismatchedTypeCredit, true
}

func amenityOverlap(t, c *models.ListingSpec) (float64, bool) {
	if len(t.Amenities) == 0 || len(c.Amenities) == 0 {
		return 0, false
	}
	ts := make(map[string]struct{}, len(t.Amenities))
	for _, a := range t.Amenities {
		ts[a] = struct{}{}
	}
	union := len(ts)
	inter := 0
	seen := make(map[string]struct{}, len(c.Amenities))
	for _, a := range c.Amenities {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		if _, ok := ts[a]; ok {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union), true
}

func intAsFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
