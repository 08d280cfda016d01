package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"airbnb-pricer/models"
	"airbnb-pricer/pricing"

	"github.com/sirupsen/logrus"
)

// OccupancyPct is the occupancy assumed for revenue estimates
const OccupancyPct = 70

// headlineTolerance is how far, in dollars, the market median may sit
// from the recommendation and still count as aligned.
const headlineTolerance = 5

// CalendarService turns per-night results into the nightly calendar and
// its summary
type CalendarService struct {
	logger logrus.FieldLogger
}

// NewCalendarService creates a new CalendarService
func NewCalendarService(logger logrus.FieldLogger) *CalendarService {
	return &CalendarService{logger: logger.WithField("component", "calendar")}
}

// Build assembles one calendar row per night of [checkin, checkout) and the
// summary over them. Each priced night runs through the dynamic layer and
// then the discount policy at the full stay length. Nights without a price
// keep numeric legacy prices derived from the overall median while their
// effective prices stay nil. recommended is the run's headline nightly
// price, if any.
func (s *CalendarService) Build(days []models.DayResult, checkin, checkout time.Time, policy models.DiscountPolicy, recommended *float64, today time.Time) (*models.Summary, []models.CalendarDay, error) {
	byDate := make(map[time.Time]*models.DayResult, len(days))
	var valid []float64
	for i := range days {
		byDate[models.DayOf(days[i].Date)] = &days[i]
		if days[i].MedianPrice != nil {
			valid = append(valid, *days[i].MedianPrice)
		}
	}
	overall, ok := pricing.Median(valid)
	if !ok {
		return nil, nil, models.NewNoUsableData("All day-queries returned no valid prices")
	}
	overallMedian := pricing.RoundInt(overall)

	nights := models.Nights(checkin, checkout)
	totalDays := max(1, len(nights))

	inputs := make([]pricing.DemandInput, 0, len(nights))
	for _, n := range nights {
		in := pricing.DemandInput{Date: n}
		if d, ok := byDate[n]; ok {
			if d.MedianPrice != nil {
				bp := pricing.RoundInt(*d.MedianPrice)
				in.BaseDailyPrice = &bp
			}
			in.CompsUsed = d.CompsUsed
			in.Distribution = d.Distribution
			in.Flags = append([]string(nil), d.Flags...)
		}
		inputs = append(inputs, in)
	}

	adjusted := pricing.ComputeDynamicAdjustment(models.DayOf(today), inputs)

	calendar := make([]models.CalendarDay, 0, len(adjusted))
	for _, a := range adjusted {
		row := models.CalendarDay{
			Date:                     a.Date.Format(models.DayLayout),
			DayOfWeek:                a.Date.Format("Mon"),
			IsWeekend:                models.IsWeekendNight(a.Date),
			BaseDailyPrice:           a.BaseDailyPrice,
			DynamicAdjustment:        a.Adjustment,
			LastMinuteMultiplier:     a.Adjustment.TimeMultiplier,
			PriceAfterTimeAdjustment: a.PriceAfterTimeAdjustment,
			Flags:                    a.Flags,
		}
		if row.Flags == nil {
			row.Flags = []string{}
		}

		base := overallMedian
		if a.PriceAfterTimeAdjustment != nil {
			base = *a.PriceAfterTimeAdjustment
		}
		disc := pricing.ApplyDiscount(float64(base), totalDays, policy)
		row.BasePrice = base
		row.RefundablePrice = pricing.ClampPrice(disc.RefundablePrice, policy)
		row.NonRefundablePrice = pricing.ClampPrice(disc.NonRefundablePrice, policy)
		if a.PriceAfterTimeAdjustment != nil {
			r, nr := row.RefundablePrice, row.NonRefundablePrice
			row.EffectiveDailyPriceRefundable = &r
			row.EffectiveDailyPriceNonRefundable = &nr
		}
		calendar = append(calendar, row)
	}

	summary := s.summarize(calendar, totalDays, policy, recommended)
	s.logger.WithFields(logrus.Fields{
		"nights": len(calendar),
		"median": summary.NightlyMedian,
	}).Info("Calendar built")
	return summary, calendar, nil
}

func (s *CalendarService) summarize(calendar []models.CalendarDay, totalDays int, policy models.DiscountPolicy, recommended *float64) *models.Summary {
	basePrices := make([]int, len(calendar))
	var weekday, weekend []int
	for i, c := range calendar {
		basePrices[i] = c.BasePrice
		if c.IsWeekend {
			weekend = append(weekend, c.BasePrice)
		} else {
			weekday = append(weekday, c.BasePrice)
		}
	}
	sorted := append([]int(nil), basePrices...)
	sort.Ints(sorted)
	median := sorted[len(sorted)/2]

	selectedAvg := pricing.AverageRefundablePriceForStay(basePrices, totalDays, policy)

	return &models.Summary{
		InsightHeadline:         headline(median, recommended),
		NightlyMin:              sorted[0],
		NightlyMedian:           median,
		NightlyMax:              sorted[len(sorted)-1],
		OccupancyPct:            OccupancyPct,
		WeekdayAvg:              meanOr(weekday, median),
		WeekendAvg:              meanOr(weekend, median),
		EstimatedMonthlyRevenue: pricing.RoundInt(float64(selectedAvg) * 30 * OccupancyPct / 100),
		WeeklyStayAvgNightly:    pricing.AverageRefundablePriceForStay(basePrices, min(pricing.WeeklyStayNights, totalDays), policy),
		MonthlyStayAvgNightly:   pricing.AverageRefundablePriceForStay(basePrices, min(pricing.MonthlyStayNights, totalDays), policy),
		SelectedRangeNights:     totalDays,
		SelectedRangeAvgNightly: selectedAvg,
		StayLengthAverages:      pricing.BuildStayLengthAverages(basePrices, totalDays, policy),
	}
}

func headline(median int, recommended *float64) string {
	if recommended == nil || *recommended == 0 || median == 0 {
		return fmt.Sprintf("Based on nearby comparable listings, the median nightly price is $%d.", median)
	}
	rec := pricing.RoundInt(*recommended)
	diff := pricing.RoundInt(float64(median) - *recommended)
	switch {
	case int(math.Abs(float64(diff))) <= headlineTolerance:
		return fmt.Sprintf("Your recommended price of $%d/night is well-aligned with the local market.", rec)
	case diff > headlineTolerance:
		return fmt.Sprintf("At $%d/night you're competitively positioned against the $%d market median.", rec, median)
	}
	return fmt.Sprintf("Comparable listings average $%d/night. Your recommended price factors in market positioning.", median)
}

func meanOr(values []int, fallback int) int {
	if len(values) == 0 {
		return fallback
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return pricing.RoundInt(float64(sum) / float64(len(values)))
}

// AttachTransparency copies the caller-facing parts of a pricing result
// onto the summary.
func AttachTransparency(summary *models.Summary, r *models.TransparentResult) {
	if summary == nil || r == nil {
		return
	}
	summary.TargetSpec = &r.TargetSpec
	summary.QueryCriteria = &r.QueryCriteria
	summary.CompsSummary = &r.CompsSummary
	summary.PriceDistribution = &r.PriceDistribution
	summary.RecommendedPrice = &r.RecommendedPrice
	summary.ComparableListings = r.ComparableListings
}

// MergeExtractedAttributes overwrites placeholder form attributes with the
// specs extracted from the listing page.
func MergeExtractedAttributes(attrs models.InputAttributes, t models.TargetSpec) models.InputAttributes {
	merged := attrs
	if t.PropertyType != "" {
		merged.PropertyType = t.PropertyType
	}
	if t.Accommodates != nil && *t.Accommodates > 0 {
		merged.MaxGuests = models.IntPtr(*t.Accommodates)
	}
	if t.Bedrooms != nil && *t.Bedrooms >= 0 {
		merged.Bedrooms = models.IntPtr(*t.Bedrooms)
	}
	if t.Baths != nil && *t.Baths > 0 {
		merged.Bathrooms = models.FloatPtr(*t.Baths)
	}
	if t.Beds != nil && *t.Beds > 0 {
		merged.Beds = models.IntPtr(*t.Beds)
	}
	return merged
}
