package pricing

import (
	"sort"
	"testing"
	"time"

	"airbnb-pricer/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }
func day(s string) time.Time {
	t, err := models.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func spec(guests, bedrooms, beds int, baths float64, typ string) models.ListingSpec {
	return models.ListingSpec{
		Accommodates: intp(guests),
		Bedrooms:     intp(bedrooms),
		Beds:         intp(beds),
		Baths:        floatp(baths),
		PropertyType: typ,
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.772, Round(0.7725, 3))
	assert.Equal(t, 1.03, Round(1.0300000001, 3))
	assert.Equal(t, 2, RoundInt(2.5))
	assert.Equal(t, 4, RoundInt(3.5))
	assert.Equal(t, 148, RoundInt(147.6))
}

func TestMedianAndQuartiles(t *testing.T) {
	_, ok := Median(nil)
	assert.False(t, ok)

	m, _ := Median([]float64{3, 1, 2})
	assert.Equal(t, 2.0, m)
	m, _ = Median([]float64{4, 1, 3, 2})
	assert.Equal(t, 2.5, m)

	q1, q3, ok := Quartiles([]float64{4, 3, 2, 1})
	require.True(t, ok)
	assert.Equal(t, 1.25, q1)
	assert.Equal(t, 3.75, q3)

	d := Distribution([]float64{100, 200, 300})
	assert.Equal(t, 100.0, *d.Min)
	assert.Equal(t, 200.0, *d.Median)
	assert.Equal(t, 300.0, *d.Max)
	assert.Nil(t, d.P25, "quartiles need four prices")
	assert.Nil(t, d.P75)

	d = Distribution([]float64{100, 200, 300, 400})
	require.NotNil(t, d.P25)
	assert.Equal(t, 125.0, *d.P25)
	assert.Equal(t, 375.0, *d.P75)
}

func TestSimilarityScore(t *testing.T) {
	target := spec(4, 2, 2, 1, "entire_home")
	target.Amenities = []string{"wifi", "kitchen"}

	same := target
	assert.InDelta(t, 1.0, SimilarityScore(&target, &same), 1e-9)

	var unknown models.ListingSpec
	assert.InDelta(t, neutralPrior, SimilarityScore(&target, &unknown), 1e-9)

	other := spec(4, 2, 2, 1, "private_room")
	other.Amenities = []string{"wifi", "kitchen"}
	// Only the type differs: (11.2 - 1.8 + 0.15*1.8) / 11.2
	assert.InDelta(t, (11.2-1.8+0.27)/11.2, SimilarityScore(&target, &other), 1e-9)

	far := spec(10, 6, 8, 4, "entire_home")
	far.Amenities = []string{"pool"}
	// Numeric features all bottom out at zero; only the type matches.
	assert.InDelta(t, 1.8/11.2, SimilarityScore(&target, &far), 1e-9)
}

func TestSimilarityScoreBounded(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("score stays within [0,1]", prop.ForAll(
		func(g1, g2, b1, b2 int, ba1, ba2 float64) bool {
			a := spec(g1, b1, b1, ba1, "entire_home")
			b := spec(g2, b2, b2, ba2, "")
			s := SimilarityScore(&a, &b)
			return s >= 0 && s <= 1
		},
		gen.IntRange(0, 20), gen.IntRange(0, 20),
		gen.IntRange(0, 10), gen.IntRange(0, 10),
		gen.Float64Range(0, 8), gen.Float64Range(0, 8),
	))

	properties.TestingRun(t)
}

func TestFilterSimilarCandidates(t *testing.T) {
	target := spec(4, 2, 2, 1, "entire_home")

	_, stage := FilterSimilarCandidates(&target, nil)
	assert.Equal(t, models.StageEmpty, stage.Stage)

	var cands []models.ListingSpec
	for i := 0; i < 8; i++ {
		cands = append(cands, spec(4, 2, 3, 1, "entire_home"))
	}
	cands = append(cands, spec(4, 2, 2, 1, "private_room"))
	kept, stage := FilterSimilarCandidates(&target, cands)
	assert.Equal(t, models.StageStrict, stage.Stage)
	assert.Len(t, kept, 8)
	assert.Equal(t, 9, stage.TotalCandidates)

	// Beds are unconstrained in the medium tier.
	var medium []models.ListingSpec
	for i := 0; i < 5; i++ {
		medium = append(medium, spec(6, 3, 9, 2, "entire_home"))
	}
	kept, stage = FilterSimilarCandidates(&target, medium)
	assert.Equal(t, models.StageMedium, stage.Stage)
	assert.Len(t, kept, 5)

	few := []models.ListingSpec{spec(12, 6, 8, 4, "entire_home"), spec(1, 0, 1, 1, "entire_home")}
	kept, stage = FilterSimilarCandidates(&target, few)
	assert.Equal(t, models.StageFallbackAll, stage.Stage)
	assert.Len(t, kept, 2)
}

func TestWeightedMedian(t *testing.T) {
	v, ok := WeightedMedian([]float64{300, 100, 200}, []float64{1, 1, 1})
	require.True(t, ok)
	assert.Equal(t, 200.0, v)

	v, _ = WeightedMedian([]float64{100, 200, 300}, []float64{3, 1, 1})
	assert.Equal(t, 100.0, v)

	_, ok = WeightedMedian([]float64{100}, []float64{0})
	assert.False(t, ok)
	_, ok = WeightedMedian([]float64{100, 200}, []float64{1})
	assert.False(t, ok)

	// With an even count the first crossing is the lower-middle value,
	// not the mean of the two middle values.
	v, _ = WeightedMedian([]float64{200, 100}, []float64{1, 1})
	assert.Equal(t, 100.0, v)
	v, _ = WeightedMedian([]float64{100, 120, 180, 200}, []float64{1, 1, 1, 1})
	assert.Equal(t, 120.0, v)
	m, _ := Median([]float64{100, 120, 180, 200})
	assert.Equal(t, 150.0, m)
}

func TestWeightedMedianEqualWeights(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("equal weights pick the middle value", prop.ForAll(
		func(raw []int, w int) bool {
			values := make([]float64, len(raw))
			weights := make([]float64, len(raw))
			for i, v := range raw {
				values[i] = float64(v)
				weights[i] = float64(w)
			}
			got, ok := WeightedMedian(values, weights)
			if !ok {
				return false
			}
			sorted := append([]float64(nil), values...)
			sort.Float64s(sorted)
			n := len(sorted)
			if n%2 == 1 {
				m, _ := Median(values)
				return got == m
			}
			return got == sorted[n/2-1]
		},
		gen.SliceOf(gen.IntRange(20, 900)).SuchThat(func(v []int) bool { return len(v) > 0 }),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}

func TestRecommendPrice(t *testing.T) {
	target := spec(4, 2, 2, 1, "entire_home")

	_, _, err := RecommendPrice(&target, []models.ListingSpec{{NightlyPrice: floatp(0)}}, 10, 0)
	assert.ErrorIs(t, err, ErrNoComparablePrices)

	var comps []models.ListingSpec
	for _, p := range []float64{100, 120, 140, 160} {
		c := spec(4, 2, 2, 1, "entire_home")
		c.NightlyPrice = floatp(p)
		comps = append(comps, c)
	}
	rec, debug, err := RecommendPrice(&target, comps, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 120.0, rec)
	assert.Equal(t, 4, debug.PickedN)
	assert.Equal(t, 100.0, debug.Min)
	assert.Equal(t, 160.0, debug.Max)
	require.NotNil(t, debug.P25)

	// Discounts are clamped to 35%.
	rec, _, _ = RecommendPrice(&target, comps, 10, 0.9)
	assert.InDelta(t, 120*0.65, rec, 1e-9)
}

func TestApplyDiscount(t *testing.T) {
	p := models.DiscountPolicy{
		WeeklyDiscountPct:        8,
		MonthlyDiscountPct:       18,
		Refundable:               false,
		NonRefundableDiscountPct: 10,
		StackingMode:             models.StackCompound,
		MaxTotalDiscountPct:      40,
	}
	got := ApplyDiscount(200, 30, p)
	assert.Equal(t, 164, got.RefundablePrice)
	assert.Equal(t, 148, got.NonRefundablePrice)

	p.StackingMode = models.StackBestOnly
	_, nr := DiscountFractions(30, p)
	assert.Equal(t, 0.18, nr)

	// best_only takes the larger discount as is; the cap does not apply.
	p.NonRefundableDiscountPct = 50
	_, nr = DiscountFractions(30, p)
	assert.Equal(t, 0.50, nr)
	assert.Equal(t, 100, ApplyDiscount(200, 30, p).NonRefundablePrice)
	p.NonRefundableDiscountPct = 10

	p.StackingMode = models.StackAdditive
	p.MaxTotalDiscountPct = 20
	r, nr := DiscountFractions(30, p)
	assert.Equal(t, 0.18, r)
	assert.Equal(t, 0.20, nr)

	// Refundable policies never earn the non-refundable discount.
	p = models.DefaultDiscountPolicy()
	p.NonRefundableDiscountPct = 10
	got = ApplyDiscount(100, 1, p)
	assert.Equal(t, 100, got.NonRefundablePrice)
}

func TestCompoundDiscountNeverExceedsCap(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("compound discount is capped", prop.ForAll(
		func(weekly, monthly, nonRef, maxTotal float64, nights int) bool {
			p := models.DiscountPolicy{
				WeeklyDiscountPct:        weekly,
				MonthlyDiscountPct:       monthly,
				NonRefundableDiscountPct: nonRef,
				StackingMode:             models.StackCompound,
				MaxTotalDiscountPct:      maxTotal,
			}
			r, nr := DiscountFractions(nights, p)
			return r <= maxTotal/100+1e-12 && nr <= maxTotal/100+1e-12
		},
		gen.Float64Range(0, 100), gen.Float64Range(0, 100), gen.Float64Range(0, 100),
		gen.Float64Range(0, 100), gen.IntRange(1, 60),
	))

	properties.TestingRun(t)
}

func TestClampPrice(t *testing.T) {
	p := models.DefaultDiscountPolicy()
	assert.Equal(t, 90, ClampPrice(90, p))
	p.MinPriceFloor = floatp(100)
	p.MaxPriceCeiling = floatp(150)
	assert.Equal(t, 100, ClampPrice(90, p))
	assert.Equal(t, 150, ClampPrice(200, p))
}

func TestBuildStayLengthAverages(t *testing.T) {
	p := models.DefaultDiscountPolicy()
	p.WeeklyDiscountPct = 10
	base := []int{100, 100, 100, 100, 100, 100, 100, 100, 100, 100}

	avgs := BuildStayLengthAverages(base, len(base), p)
	require.Len(t, avgs, 3)
	assert.Equal(t, 1, avgs[0].Nights)
	assert.Equal(t, 100, avgs[0].AvgNightly)
	assert.Equal(t, 7, avgs[1].Nights)
	assert.Equal(t, 90, avgs[1].AvgNightly)
	assert.Equal(t, 10.0, avgs[1].LengthDiscountPct)
	assert.Equal(t, 10, avgs[2].Nights)
}

func TestTimeMultiplier(t *testing.T) {
	cases := map[int]float64{31: 1.00, 20: 0.97, 10: 0.92, 5: 0.85, 2: 0.75, 30: 0.97, 14: 0.92, 0: 0.75}
	for days, want := range cases {
		assert.Equal(t, want, TimeMultiplier(days), "daysAway=%d", days)
	}
}

func TestDemandAdjustment(t *testing.T) {
	assert.Equal(t, 1.03, DemandAdjustment(0.9))
	assert.Equal(t, 0.97, DemandAdjustment(0.3))
	assert.Equal(t, 0.90, DemandAdjustment(-5))
	assert.Equal(t, 1.05, DemandAdjustment(99))
	assert.Equal(t, 0.772, FinalMultiplier(TimeMultiplier(1), DemandAdjustment(0.9)))
	assert.Equal(t, MinFinalMultiplier, FinalMultiplier(0.5, 0.9))
}

func TestFinalMultiplierRange(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("final multiplier stays within [0.65,1.05]", prop.ForAll(
		func(daysAway int, demand float64) bool {
			f := FinalMultiplier(TimeMultiplier(daysAway), DemandAdjustment(demand))
			return f >= MinFinalMultiplier && f <= MaxFinalMultiplier
		},
		gen.IntRange(-10, 400),
		gen.Float64Range(-3, 3),
	))

	properties.TestingRun(t)
}

func TestComputeDynamicAdjustment(t *testing.T) {
	today := day("2026-03-02") // Monday
	med := func(v float64) models.PriceDistribution { return models.PriceDistribution{Median: floatp(v)} }
	days := []DemandInput{
		{Date: day("2026-04-06"), BaseDailyPrice: intp(100), CompsUsed: 30, Distribution: med(100)},
		{Date: day("2026-04-07"), BaseDailyPrice: intp(100), CompsUsed: 30, Distribution: med(100)},
		{Date: day("2026-04-08"), BaseDailyPrice: nil, CompsUsed: 0},
		{Date: day("2026-03-03"), BaseDailyPrice: intp(100), CompsUsed: 5, Distribution: med(100), Flags: []string{models.FlagLowDemand}},
	}
	out := ComputeDynamicAdjustment(today, days)
	require.Len(t, out, 4)

	assert.Equal(t, 0.5, out[0].Adjustment.DemandScore)
	assert.Equal(t, models.ConfidenceHigh, out[0].Adjustment.Confidence)
	assert.Equal(t, 1.0, out[0].Adjustment.TimeMultiplier)
	assert.Equal(t, 0.99, out[0].Adjustment.DemandAdjustment)
	assert.Equal(t, 99, *out[0].PriceAfterTimeAdjustment)
	assert.Contains(t, out[0].Flags, models.FlagLastMinuteDiscount)

	assert.Nil(t, out[2].PriceAfterTimeAdjustment)
	assert.Contains(t, out[2].Flags, models.FlagMissingData)
	assert.Equal(t, models.ConfidenceLow, out[2].Adjustment.Confidence)

	last := out[3].Adjustment
	assert.Equal(t, 0.75, last.TimeMultiplier)
	assert.Equal(t, "Last-minute window", last.Reasons[0])
	assert.Contains(t, last.Reasons, "Low-demand signal")
	assert.Equal(t, 0.35, last.DemandScore)
}

func TestBuildTransparentResult(t *testing.T) {
	target := spec(4, 2, 2, 1, "entire_home")
	days := []models.DayResult{
		{Date: day("2026-04-06"), MedianPrice: floatp(100), IsSampled: true, FilterStage: models.StageStrict, CompsCollected: 20, CompsFiltered: 12, CompsUsed: 10,
			TopComparables: []models.Comparable{{ID: "1", Similarity: 0.9, NightlyPrice: 100}, {ID: "2", Similarity: 0.5, NightlyPrice: 90}}},
		{Date: day("2026-04-07"), MedianPrice: floatp(150), IsSampled: false, FilterStage: models.StageInterpolated},
		{Date: day("2026-04-10"), MedianPrice: floatp(200), IsSampled: true, IsWeekend: true, FilterStage: models.StageStrict, CompsCollected: 20, CompsFiltered: 12, CompsUsed: 10,
			TopComparables: []models.Comparable{{ID: "1", Similarity: 0.7, NightlyPrice: 100}}},
		{Date: day("2026-04-11"), IsSampled: true, FilterStage: models.StageError, IsWeekend: true},
	}
	r := BuildTransparentResult(AssemblyInput{Target: &target, Days: days, Source: "scrape"})

	stats := r.Debug.DayQueryStats
	assert.Equal(t, 4, stats.TotalNights)
	assert.Equal(t, 3, stats.Sampled)
	assert.Equal(t, 1, stats.Interpolated)
	assert.Equal(t, 1, stats.Missing)
	assert.Equal(t, 3, stats.ValidPriceCount)

	assert.Equal(t, 40, r.CompsSummary.Collected)
	assert.Equal(t, models.StageStrict, r.CompsSummary.FilterStage)
	assert.Equal(t, 150.0, *r.RecommendedPrice.Nightly)
	assert.Equal(t, 125, *r.RecommendedPrice.WeekdayEstimate)
	assert.Equal(t, 200, *r.RecommendedPrice.WeekendEstimate)
	assert.Equal(t, "USD", r.PriceDistribution.Currency)
	assert.Equal(t, PipelineVersion, r.Debug.PipelineVersion)
	assert.Equal(t, []string{}, r.Debug.ExtractionWarnings)

	require.Len(t, r.ComparableListings, 2)
	assert.Equal(t, "1", r.ComparableListings[0].ID)
	assert.Equal(t, 0.8, r.ComparableListings[0].Similarity)
}
