package estimator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"airbnb-pricer/models"
	"airbnb-pricer/pricing"
	"airbnb-pricer/services"
	"airbnb-pricer/utils"

	"github.com/sirupsen/logrus"
)

// Nights whose recommendation strays this far from the collected median
// are flagged as peak or low demand.
const (
	peakRatio      = 1.25
	lowDemandRatio = 0.75
)

var errNoPrice = errors.New("no price for night")

// EstimateBasePriceForDate runs a one-night search for night, filters and
// ranks the priced cards against target and recommends a nightly price
// with no new-listing discount. Collection failures never escape: they
// come back as a DayResult without a price and with the missing_data flag.
func (e *Estimator) EstimateBasePriceForDate(ctx context.Context, target *models.ListingSpec, night time.Time, adults int) models.DayResult {
	night = models.DayOf(night)
	day := models.DayResult{
		Date:      night,
		IsSampled: true,
		IsWeekend: models.IsWeekendNight(night),
	}
	log := e.logger.WithField("night", night.Format(models.DayLayout))

	qctx, cancel := context.WithTimeout(ctx, e.opts.PerNightTimeout)
	defer cancel()

	cards, err := e.renderer.SearchAndCollectCards(qctx, models.SearchQuery{
		Origin:    e.opts.Origin,
		Location:  target.Location,
		Checkin:   night,
		Checkout:  night.AddDate(0, 0, 1),
		Adults:    adults,
		MaxRounds: e.opts.DayScrollRounds,
		MaxCards:  e.opts.DayMaxCards,
	})
	if err != nil {
		log.Warnf("Night query failed: %v", err)
		day.FilterStage = models.StageError
		day.Flags = []string{models.FlagMissingData}
		day.Error = truncate(err.Error(), 200)
		return day
	}

	comps := e.cleaner.PricedSpecs(cards)
	day.CompsCollected = len(comps)
	if len(comps) == 0 {
		day.FilterStage = models.StageEmpty
		day.Flags = []string{models.FlagMissingData}
		day.Error = "No comps found"
		return day
	}

	filtered, stage := pricing.FilterSimilarCandidates(target, comps)
	day.CompsFiltered = stage.FilteredCandidates
	day.FilterStage = stage.Stage

	ranked := pricing.RankBySimilarity(target, filtered)
	prices := make([]float64, 0, len(ranked))
	for _, s := range ranked {
		prices = append(prices, *s.Listing.NightlyPrice)
	}
	day.Distribution = pricing.Distribution(prices)

	rec, debug, err := pricing.RecommendPrice(target, filtered, e.opts.TopK, 0)
	if err != nil {
		day.Flags = []string{models.FlagMissingData}
		day.Error = err.Error()
		return day
	}
	day.CompsUsed = debug.PickedN
	if rec > 0 {
		p := pricing.Round(rec, 2)
		day.MedianPrice = &p
	}

	if len(prices) >= 3 {
		median, _ := pricing.Median(prices)
		switch {
		case rec > median*peakRatio:
			day.Flags = append(day.Flags, models.FlagPeak)
		case rec < median*lowDemandRatio:
			day.Flags = append(day.Flags, models.FlagLowDemand)
		}
	}

	top := e.opts.TopK
	if top < 3 {
		top = 3
	}
	if top > len(ranked) {
		top = len(ranked)
	}
	for _, s := range ranked[:top] {
		day.TopComparables = append(day.TopComparables, comparableOf(target, s))
	}

	log.WithFields(logrus.Fields{
		"comps":    day.CompsCollected,
		"filtered": day.CompsFiltered,
		"used":     day.CompsUsed,
		"stage":    day.FilterStage,
	}).Info("Night priced")
	return day
}

// queryNight retries a night until it yields a price, sleeping the rate
// limit before every attempt. The last attempt's result is returned even
// when no attempt succeeded.
func (e *Estimator) queryNight(ctx context.Context, target *models.ListingSpec, night time.Time, adults int) models.DayResult {
	var last models.DayResult
	err := utils.RetryWithDelay(ctx, e.opts.PerDayMaxRetries, e.opts.RateLimit, e.logger, func(int) error {
		last = e.EstimateBasePriceForDate(ctx, target, night, adults)
		if last.MedianPrice == nil {
			return fmt.Errorf("%w: %s", errNoPrice, last.Error)
		}
		return nil
	})
	if err != nil && last.Date.IsZero() {
		// cancelled before the first attempt ran
		last = models.DayResult{
			Date:        models.DayOf(night),
			IsSampled:   true,
			IsWeekend:   models.IsWeekendNight(night),
			FilterStage: models.StageError,
			Flags:       []string{models.FlagMissingData},
			Error:       err.Error(),
		}
	}
	return last
}

func comparableOf(target *models.ListingSpec, s pricing.ScoredListing) models.Comparable {
	l := s.Listing
	id := services.RoomID(l.URL)
	if id == "" {
		id = l.URL
	}
	title := l.Title
	if title == "" {
		title = "Comparable listing"
	}
	ptype := l.PropertyType
	if ptype == "" {
		ptype = target.PropertyType
	}
	if ptype == "" {
		ptype = services.TypeEntireHome
	}
	currency := l.Currency
	if currency == "" {
		currency = "USD"
	}

	c := models.Comparable{
		ID:           id,
		Title:        title,
		PropertyType: ptype,
		Accommodates: intOr(l.Accommodates, target.Accommodates),
		Bedrooms:     intOr(l.Bedrooms, target.Bedrooms),
		Baths:        pricing.Round(floatOr(l.Baths, target.Baths), 1),
		NightlyPrice: pricing.Round(*l.NightlyPrice, 2),
		Currency:     currency,
		Similarity:   pricing.Round(s.Score, 3),
		Reviews:      l.Reviews,
		Location:     target.Location,
		URL:          l.URL,
	}
	if l.Rating != nil {
		c.Rating = models.FloatPtr(pricing.Round(*l.Rating, 2))
	}
	return c
}

// intOr falls back to the target's value, then to 1.
func intOr(v, fallback *int) int {
	switch {
	case v != nil:
		return *v
	case fallback != nil && *fallback != 0:
		return *fallback
	}
	return 1
}

func floatOr(v, fallback *float64) float64 {
	switch {
	case v != nil:
		return *v
	case fallback != nil && *fallback != 0:
		return *fallback
	}
	return 1
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
