package pricing

import (
	"fmt"
	"math"
	"time"

	"airbnb-pricer/models"
)

// Bounds of the combined lead-time and demand multiplier
const (
	MinFinalMultiplier = 0.65
	MaxFinalMultiplier = 1.05
)

const demandWindow = 3

// DemandInput is one calendar night fed to the dynamic layer.
type DemandInput struct {
	Date           time.Time
	BaseDailyPrice *int
	CompsUsed      int
	Distribution   models.PriceDistribution
	Flags          []string
}

// DemandRow is the market-demand reading for one night.
type DemandRow struct {
	Date        time.Time
	DemandScore float64
	Confidence  models.Confidence
	Reasons     []string
}

// AdjustedDay is a night after the lead-time and demand adjustment.
type AdjustedDay struct {
	Date                     time.Time
	BaseDailyPrice           *int
	Adjustment               models.DynamicAdjustment
	PriceAfterTimeAdjustment *int
	Flags                    []string
}

// TimeMultiplier is a step function of how many days away a night is.
func TimeMultiplier(daysAway int) float64 {
	switch {
	case daysAway > 30:
		return 1.00
	case daysAway > 14:
		return 0.97
	case daysAway > 7:
		return 0.92
	case daysAway > 3:
		return 0.85
	}
	return 0.75
}

// DemandAdjustment maps a demand score onto [0.90, 1.05].
func DemandAdjustment(demandScore float64) float64 {
	return Round(clamp(1-(0.6-demandScore)*0.10, 0.90, 1.05), 3)
}

// FinalMultiplier combines both factors, clamped and rounded to 3 places.
func FinalMultiplier(timeMultiplier, demandAdjustment float64) float64 {
	return Round(clamp(timeMultiplier*demandAdjustment, MinFinalMultiplier, MaxFinalMultiplier), 3)
}

// ComputeMarketDemand scores each night against the medians of up to three
// neighbours on either side, falling back to the global median.
func ComputeMarketDemand(days []DemandInput) []DemandRow {
	medians := make([]*float64, len(days))
	var known []float64
	for i, d := range days {
		medians[i] = d.Distribution.Median
		if d.Distribution.Median != nil {
			known = append(known, *d.Distribution.Median)
		}
	}
	globalMedian, hasGlobal := Median(known)

	out := make([]DemandRow, 0, len(days))
	for idx, day := range days {
		var reasons []string
		dayMedian := day.Distribution.Median

		var window []float64
		for j := max(0, idx-demandWindow); j < min(len(days), idx+demandWindow+1); j++ {
			if j != idx && medians[j] != nil {
				window = append(window, *medians[j])
			}
		}
		baseline, hasBaseline := Median(window)
		if !hasBaseline {
			baseline, hasBaseline = globalMedian, hasGlobal
		}

		premiumIndex := 0.0
		if dayMedian != nil && hasBaseline && baseline > 0 {
			ratio := *dayMedian / baseline
			premiumIndex = clamp((ratio-1)/0.25, -1, 1)
			deltaPct := RoundInt((ratio - 1) * 100)
			if deltaPct >= 5 || deltaPct <= -5 {
				sign := ""
				if deltaPct > 0 {
					sign = "+"
				}
				reasons = append(reasons, fmt.Sprintf("Median %s%d%% vs surrounding days", sign, deltaPct))
			}
		}

		tightnessIndex := 0.0
		dist := day.Distribution
		if dayMedian != nil && dist.P25 != nil && dist.P75 != nil {
			spread := (*dist.P75 - *dist.P25) / math.Max(*dayMedian, 1)
			tightnessIndex = clamp((0.18-spread)/0.18, -1, 1)
			if tightnessIndex >= 0.2 {
				reasons = append(reasons, "Tight market spread")
			} else if tightnessIndex <= -0.2 {
				reasons = append(reasons, "Wide market spread")
			}
		}

		weekendBoost := 0.0
		switch day.Date.Weekday() {
		case time.Friday, time.Saturday:
			weekendBoost = 0.08
			reasons = append(reasons, "Weekend boost")
		case time.Sunday:
			weekendBoost = 0.04
			reasons = append(reasons, "Weekend boost")
		}

		flagBoost := 0.0
		switch {
		case models.HasFlag(day.Flags, models.FlagPeak) || models.HasFlag(day.Flags, models.FlagEvent):
			flagBoost = 0.15
			reasons = append(reasons, "Peak/event signal")
		case models.HasFlag(day.Flags, models.FlagLowDemand):
			flagBoost = -0.15
			reasons = append(reasons, "Low-demand signal")
		}

		score := clamp(0.50+0.20*premiumIndex+0.15*tightnessIndex+weekendBoost+flagBoost, 0, 1)

		var confidence models.Confidence
		switch {
		case day.CompsUsed >= 25 && dayMedian != nil:
			confidence = models.ConfidenceHigh
		case day.CompsUsed >= 12:
			confidence = models.ConfidenceMedium
		default:
			confidence = models.ConfidenceLow
			reasons = append(reasons, "Low comps count (confidence low)")
		}

		if len(reasons) == 0 {
			reasons = append(reasons, "Neutral demand signal")
		}

		out = append(out, DemandRow{
			Date:        day.Date,
			DemandScore: Round(score, 3),
			Confidence:  confidence,
			Reasons:     reasons,
		})
	}
	return out
}

// ComputeDynamicAdjustment applies the lead-time and demand multipliers to
// every night. Nights without a base price are tagged missing_data.
func ComputeDynamicAdjustment(today time.Time, days []DemandInput) []AdjustedDay {
	demand := ComputeMarketDemand(days)

	out := make([]AdjustedDay, 0, len(days))
	for i, day := range days {
		row := demand[i]
		tm := TimeMultiplier(models.DaysBetween(today, day.Date))
		da := DemandAdjustment(row.DemandScore)
		final := FinalMultiplier(tm, da)

		reasons := append([]string(nil), row.Reasons...)
		if tm < 1 {
			reasons = append([]string{"Last-minute window"}, reasons...)
		}

		flags := append([]string(nil), day.Flags...)
		adjusted := AdjustedDay{
			Date:           day.Date,
			BaseDailyPrice: day.BaseDailyPrice,
			Adjustment: models.DynamicAdjustment{
				DemandScore:      row.DemandScore,
				Confidence:       row.Confidence,
				TimeMultiplier:   Round(tm, 3),
				DemandAdjustment: da,
				FinalMultiplier:  final,
				Reasons:          reasons,
			},
		}
		if day.BaseDailyPrice == nil {
			if !models.HasFlag(flags, models.FlagMissingData) {
				flags = append(flags, models.FlagMissingData)
			}
		} else {
			p := RoundInt(float64(*day.BaseDailyPrice) * final)
			adjusted.PriceAfterTimeAdjustment = &p
			if final < 1 && !models.HasFlag(flags, models.FlagLastMinuteDiscount) {
				flags = append(flags, models.FlagLastMinuteDiscount)
			}
		}
		adjusted.Flags = flags
		out = append(out, adjusted)
	}
	return out
}
