package estimator

import (
	"testing"
	"time"

	"airbnb-pricer/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSampleDates(t *testing.T) {
	assert.Equal(t, []int{}, ComputeSampleDates(0, 20))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ComputeSampleDates(5, 20))

	got := ComputeSampleDates(30, 20)
	assert.Equal(t, []int{0, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 22, 24, 26, 28, 29}, got)

	assert.Len(t, sampleIndices(10, 14, 20), 10)
	assert.Len(t, sampleIndices(14, 14, 3), 14)
	assert.Equal(t, []int{0, 5, 10, 15, 19}, sampleIndices(20, 14, 4))
}

func TestComputeSampleDatesProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("samples are sorted, unique and span the range", prop.ForAll(
		func(total, maxQueries int) bool {
			got := ComputeSampleDates(total, maxQueries)
			if len(got) == 0 || got[0] != 0 || got[len(got)-1] != total-1 {
				return false
			}
			for i := 1; i < len(got); i++ {
				if got[i] <= got[i-1] {
					return false
				}
			}
			return len(got) <= maxQueries+1
		},
		gen.IntRange(1, 60), gen.IntRange(1, 25),
	))

	properties.TestingRun(t)
}

func priced(d string, p float64) models.DayResult {
	return models.DayResult{Date: day(d), MedianPrice: &p, IsSampled: true, FilterStage: models.StageStrict}
}

func TestInterpolateMissingDays(t *testing.T) {
	nights := models.Nights(day("2026-05-01"), day("2026-05-06"))
	require.Len(t, nights, 5)

	sampled := []models.DayResult{
		priced("2026-05-02", 100),
		{Date: day("2026-05-03"), IsSampled: true, FilterStage: models.StageEmpty, Flags: []string{models.FlagMissingData}},
		priced("2026-05-04", 200),
	}
	out := InterpolateMissingDays(sampled, nights)
	require.Len(t, out, 5)

	assert.Equal(t, 100.0, *out[0].MedianPrice, "before the first anchor")
	assert.Equal(t, []string{models.FlagInterpolated}, out[0].Flags)

	assert.Equal(t, 150.0, *out[2].MedianPrice)
	assert.Equal(t, models.StageInterpolated, out[2].FilterStage)
	assert.Equal(t, []string{models.FlagInterpolated, models.FlagMissingData}, out[2].Flags)
	assert.False(t, out[2].IsSampled)

	assert.Equal(t, 200.0, *out[4].MedianPrice, "after the last anchor")
	assert.Equal(t, models.StageStrict, out[1].FilterStage)
}

func TestInterpolateWithoutAnchors(t *testing.T) {
	nights := []time.Time{day("2026-05-01"), day("2026-05-02")}
	out := InterpolateMissingDays(nil, nights)
	require.Len(t, out, 2)
	for _, d := range out {
		assert.Nil(t, d.MedianPrice)
		assert.Equal(t, models.StageNoData, d.FilterStage)
		assert.True(t, d.HasFlag(models.FlagMissingData))
		assert.NotEmpty(t, d.Error)
	}
}

func TestInterpolateRoundsToCents(t *testing.T) {
	nights := models.Nights(day("2026-05-01"), day("2026-05-05"))
	out := InterpolateMissingDays([]models.DayResult{priced("2026-05-01", 100), priced("2026-05-04", 100.1)}, nights)
	assert.Equal(t, 100.03, *out[1].MedianPrice)
	assert.Equal(t, 100.07, *out[2].MedianPrice)
}
