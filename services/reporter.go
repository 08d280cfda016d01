package services

import (
	"fmt"
	"io"
	"strings"

	"airbnb-pricer/models"
)

// PrintReport formats a pricing summary and its calendar for the terminal
func PrintReport(w io.Writer, summary *models.Summary, calendar []models.CalendarDay) {
	border := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	fmt.Fprintf(w, "\n╔%s╗\n", border)
	fmt.Fprintf(w, "║%s║\n", center("NIGHTLY PRICE RECOMMENDATION", 60))
	fmt.Fprintf(w, "╚%s╝\n", border)

	fmt.Fprintf(w, "\n %s\n", summary.InsightHeadline)

	if t := summary.TargetSpec; t != nil {
		fmt.Fprintf(w, "\n LISTING\n%s\n", thin)
		fmt.Fprintf(w, "  Title     : %s\n", truncate(t.Title, 45))
		fmt.Fprintf(w, "  Location  : %s\n", t.Location)
		fmt.Fprintf(w, "  Type      : %s\n", orDash(t.PropertyType))
		fmt.Fprintf(w, "  Capacity  : %s guests, %s bedrooms, %s baths\n",
			intOrDash(t.Accommodates), intOrDash(t.Bedrooms), floatOrDash(t.Baths))
	}

	fmt.Fprintf(w, "\n OVERVIEW\n%s\n", thin)
	fmt.Fprintf(w, "  Nightly Min / Median / Max : $%d / $%d / $%d\n", summary.NightlyMin, summary.NightlyMedian, summary.NightlyMax)
	fmt.Fprintf(w, "  Weekday / Weekend Avg      : $%d / $%d\n", summary.WeekdayAvg, summary.WeekendAvg)
	fmt.Fprintf(w, "  Selected Range             : %d nights at $%d/night\n", summary.SelectedRangeNights, summary.SelectedRangeAvgNightly)
	fmt.Fprintf(w, "  Est. Monthly Revenue       : $%d (%d%% occupancy)\n", summary.EstimatedMonthlyRevenue, summary.OccupancyPct)

	if cs := summary.CompsSummary; cs != nil {
		fmt.Fprintf(w, "\n COMPARABLES\n%s\n", thin)
		fmt.Fprintf(w, "  Collected / Filtered / Used : %d / %d / %d\n", cs.Collected, cs.AfterFiltering, cs.UsedForPricing)
		fmt.Fprintf(w, "  Filter Stage                : %s\n", cs.FilterStage)
		fmt.Fprintf(w, "  Sampled / Interpolated / Missing nights : %d / %d / %d\n", cs.SampledDays, cs.InterpolatedDays, cs.MissingDays)
	}

	if len(summary.StayLengthAverages) > 0 {
		fmt.Fprintf(w, "\n STAY LENGTHS\n%s\n", thin)
		for _, s := range summary.StayLengthAverages {
			fmt.Fprintf(w, "  %3d nights : $%d/night (%.0f%% off)\n", s.Nights, s.AvgNightly, s.LengthDiscountPct)
		}
	}

	if len(calendar) > 0 {
		fmt.Fprintf(w, "\n CALENDAR\n%s\n", thin)
		for _, c := range calendar {
			bar := strings.Repeat("▓", min(c.RefundablePrice/25, 30))
			fmt.Fprintf(w, "  %s %s  $%4d  $%4d  x%.3f %s %s\n",
				c.Date, c.DayOfWeek, c.RefundablePrice, c.NonRefundablePrice,
				c.DynamicAdjustment.FinalMultiplier, bar, strings.Join(c.Flags, ","))
		}
	}

	if len(summary.ComparableListings) > 0 {
		top := summary.ComparableListings[:min(5, len(summary.ComparableListings))]
		fmt.Fprintf(w, "\n TOP %d COMPARABLES\n%s\n", len(top), thin)
		for i, c := range top {
			fmt.Fprintf(w, "  %d. %-35s $%7.2f  %.3f\n", i+1, truncate(c.Title, 35), c.NightlyPrice, c.Similarity)
		}
	}

	fmt.Fprintf(w, "\n%s\n\n", border)
}

func center(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	pad := (width - len(runes)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(runes)-pad)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func floatOrDash(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}
