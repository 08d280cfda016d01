// Package estimator drives the day-by-day pricing pipeline: it resolves
// the listing to price, queries sampled nights against the marketplace,
// interpolates the rest and assembles the transparent result.
package estimator

import (
	"context"
	"fmt"
	"time"

	"airbnb-pricer/config"
	"airbnb-pricer/models"
	"airbnb-pricer/pricing"
	"airbnb-pricer/services"

	"github.com/sirupsen/logrus"
)

const (
	// No new night query starts with less budget than this left.
	minNightBudget = 15 * time.Second
	// The anchor pass of a criteria run needs at least this much budget.
	minAnchorBudget = 30 * time.Second
	maxSearchAdults = 16
	defaultAdults   = 2
)

// Renderer is the page-rendering collaborator the pipeline depends on.
type Renderer interface {
	GotoAndExtractListing(ctx context.Context, url string) (*models.ListingSpec, []string, error)
	SearchAndCollectCards(ctx context.Context, q models.SearchQuery) ([]models.Card, error)
	Ping(ctx context.Context) error
}

// Options tunes sampling, scraping and the time budget of one run.
type Options struct {
	Origin           string
	MaxNights        int
	SampleThreshold  int
	MaxSampleQueries int
	PerDayMaxRetries int
	TopK             int
	MaxScrollRounds  int
	MaxCards         int
	DayScrollRounds  int
	DayMaxCards      int
	RateLimit        time.Duration
	MaxRuntime       time.Duration
	PerNightTimeout  time.Duration
}

// OptionsFromConfig maps worker configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Origin:           cfg.AirbnbURL,
		MaxNights:        cfg.MaxNights,
		SampleThreshold:  cfg.SampleThreshold,
		MaxSampleQueries: cfg.MaxSampleQueries,
		PerDayMaxRetries: cfg.PerDayMaxRetries,
		TopK:             cfg.TopK,
		MaxScrollRounds:  cfg.MaxScrollRounds,
		MaxCards:         cfg.MaxCards,
		DayScrollRounds:  cfg.DayScrollRounds,
		DayMaxCards:      cfg.DayMaxCards,
		RateLimit:        cfg.RateLimit,
		MaxRuntime:       cfg.MaxRuntime,
		PerNightTimeout:  45 * time.Second,
	}
}

// Estimate is the product of a pricing run.
type Estimate struct {
	Target *models.ListingSpec
	Days   []models.DayResult
	Result models.TransparentResult
}

// Estimator runs pricing pipelines against one renderer. It is not safe
// for concurrent runs; a worker prices one job at a time.
type Estimator struct {
	renderer Renderer
	cleaner  *services.DataCleaner
	opts     Options
	logger   logrus.FieldLogger
	now      func() time.Time
}

// New creates an Estimator
func New(renderer Renderer, opts Options, logger logrus.FieldLogger) *Estimator {
	if opts.PerNightTimeout <= 0 {
		opts.PerNightTimeout = 45 * time.Second
	}
	if opts.PerDayMaxRetries < 1 {
		opts.PerDayMaxRetries = 1
	}
	return &Estimator{
		renderer: renderer,
		cleaner:  services.NewDataCleaner(logger),
		opts:     opts,
		logger:   logger.WithField("component", "estimator"),
		now:      time.Now,
	}
}

// ValidateRange returns the nights of [checkin, checkout) or a validation
// error when the range is empty or longer than MaxNights.
func (e *Estimator) ValidateRange(checkin, checkout time.Time) ([]time.Time, error) {
	total := models.DaysBetween(checkin, checkout)
	if total < 1 {
		return nil, models.NewValidationError("Invalid date range: checkout must be after checkin")
	}
	if e.opts.MaxNights > 0 && total > e.opts.MaxNights {
		return nil, models.NewValidationError(fmt.Sprintf(
			"Date range of %d nights exceeds maximum of %d. Please select a shorter range.",
			total, e.opts.MaxNights))
	}
	return models.Nights(checkin, checkout), nil
}

// run is the state of one pipeline invocation.
type run struct {
	start    time.Time
	deadline time.Time
	timings  map[string]int64
}

func (e *Estimator) newRun() *run {
	start := e.now()
	return &run{start: start, deadline: start.Add(e.opts.MaxRuntime), timings: map[string]int64{}}
}

func (r *run) since(e *Estimator, t time.Time) int64 {
	return e.now().Sub(t).Milliseconds()
}

func (r *run) remaining(e *Estimator) time.Duration {
	return r.deadline.Sub(e.now())
}

// EstimateFromURL prices an existing listing: its page is extracted for
// the target spec, then the sampled nights are queried around it.
func (e *Estimator) EstimateFromURL(ctx context.Context, listingURL string, checkin, checkout time.Time, adults int) Outcome[Estimate] {
	r := e.newRun()
	nights, err := e.ValidateRange(checkin, checkout)
	if err != nil {
		return Failed[Estimate](err)
	}
	if err := e.renderer.Ping(ctx); err != nil {
		return Failed[Estimate](models.NewCollaboratorUnavailable(err))
	}
	return e.priceListing(ctx, r, listingURL, nights, adults, "scrape")
}

func (e *Estimator) priceListing(ctx context.Context, r *run, listingURL string, nights []time.Time, adults int, source string) Outcome[Estimate] {
	log := e.logger.WithField("url", listingURL)

	extractStart := e.now()
	target, warnings, err := e.renderer.GotoAndExtractListing(ctx, listingURL)
	r.timings["extract_ms"] = r.since(e, extractStart)
	if err != nil {
		return Failed[Estimate](models.NewCollaboratorUnavailable(fmt.Errorf("extract listing: %w", err)))
	}
	if target.Location == "" {
		target.Location = services.LocationFromTitle(target.Title)
		msg := fmt.Sprintf("Location fallback from title: '%s'", target.Location)
		warnings = append(warnings, msg)
		log.Warn(msg)
	}
	if target.Location == "" {
		return Failed[Estimate](models.NewEmptySearch("Cannot determine location from listing page."))
	}

	if target.Accommodates != nil && *target.Accommodates > 0 {
		adults = min(*target.Accommodates, maxSearchAdults)
	}

	indices := sampleIndices(len(nights), e.opts.SampleThreshold, e.opts.MaxSampleQueries)
	criteria := models.QueryCriteria{
		LocationBasis:      target.Location,
		SearchAdults:       adults,
		Checkin:            nights[0].Format(models.DayLayout),
		Checkout:           nights[len(nights)-1].AddDate(0, 0, 1).Format(models.DayLayout),
		TotalNights:        len(nights),
		SampledNights:      len(indices),
		QueryMode:          "day_by_day",
		PropertyTypeFilter: target.PropertyType,
	}
	log.WithFields(logrus.Fields{
		"nights":  len(nights),
		"queries": len(indices),
	}).Info("Starting day-by-day pipeline")

	loopStart := e.now()
	var sampled []models.DayResult
	stoppedEarly := false
	for pos, idx := range indices {
		if ctx.Err() != nil || r.remaining(e) < minNightBudget {
			log.Warnf("Time budget nearly spent, stopping after %d/%d night queries", pos, len(indices))
			stoppedEarly = true
			break
		}
		sampled = append(sampled, e.queryNight(ctx, target, nights[idx], adults))
	}
	r.timings["day_queries_ms"] = r.since(e, loopStart)

	interpStart := e.now()
	days := InterpolateMissingDays(sampled, nights)
	r.timings["interpolation_ms"] = r.since(e, interpStart)
	r.timings["total_ms"] = r.since(e, r.start)

	result := pricing.BuildTransparentResult(pricing.AssemblyInput{
		Target:             target,
		Criteria:           criteria,
		Days:               days,
		TimingsMs:          r.timings,
		Source:             source,
		ExtractionWarnings: warnings,
	})
	stats := result.Debug.DayQueryStats
	if stats.ValidPriceCount == 0 {
		return Failed[Estimate](models.NewNoUsableData("All day-queries returned no valid prices"))
	}

	log.WithFields(logrus.Fields{
		"queries":  len(sampled),
		"valid":    stats.ValidPriceCount,
		"total_ms": r.timings["total_ms"],
	}).Info("Day-by-day pipeline complete")

	est := Estimate{Target: target, Days: days, Result: result}
	if reason := degradedReason(stats, stoppedEarly); reason != "" {
		est.Result.Debug.Degraded = reason
		return Degraded(est, reason)
	}
	return OK(est)
}

// EstimateFromCriteria prices a property described only by its address
// and attributes. The closest priced search result becomes the anchor
// listing that the nightly queries are run around.
func (e *Estimator) EstimateFromCriteria(ctx context.Context, address string, attrs models.InputAttributes, checkin, checkout time.Time) Outcome[Estimate] {
	r := e.newRun()
	nights, err := e.ValidateRange(checkin, checkout)
	if err != nil {
		return Failed[Estimate](err)
	}
	if err := e.renderer.Ping(ctx); err != nil {
		return Failed[Estimate](models.NewCollaboratorUnavailable(err))
	}

	user := &models.ListingSpec{
		Title:        "User property",
		Location:     address,
		Accommodates: attrs.MaxGuests,
		Bedrooms:     attrs.Bedrooms,
		Beds:         attrs.Bedrooms,
		Baths:        attrs.Bathrooms,
		PropertyType: attrs.PropertyType,
	}
	if attrs.Beds != nil {
		user.Beds = attrs.Beds
	}
	adults := defaultAdults
	if attrs.MaxGuests != nil && *attrs.MaxGuests > 0 {
		adults = *attrs.MaxGuests
	}
	adults = min(adults, maxSearchAdults)

	scrollStart := e.now()
	cards, err := e.renderer.SearchAndCollectCards(ctx, models.SearchQuery{
		Origin:    e.opts.Origin,
		Location:  address,
		Checkin:   checkin,
		Checkout:  checkout,
		Adults:    adults,
		MaxRounds: e.opts.MaxScrollRounds,
		MaxCards:  e.opts.MaxCards,
	})
	r.timings["scroll_ms"] = r.since(e, scrollStart)
	if err != nil {
		return Failed[Estimate](models.NewCollaboratorUnavailable(fmt.Errorf("criteria search: %w", err)))
	}

	candidates := e.cleaner.PricedSpecs(cards)
	if len(candidates) == 0 {
		return Failed[Estimate](models.NewEmptySearch("No listings found in search results"))
	}
	filtered, _ := pricing.FilterSimilarCandidates(user, candidates)
	ranked := pricing.RankBySimilarity(user, filtered)
	best := ranked[0]
	e.logger.WithFields(logrus.Fields{
		"anchor": best.Listing.URL,
		"score":  pricing.Round(best.Score, 3),
	}).Info("Selected anchor listing")

	searchMs := r.since(e, r.start)
	if left := r.remaining(e); left < minAnchorBudget {
		return Failed[Estimate](models.NewEmptySearch(fmt.Sprintf(
			"Insufficient time for day-by-day queries (%.0fs remaining)", left.Seconds())))
	}

	out := e.priceListing(ctx, r, best.Listing.URL, nights, adults, "criteria")
	if out.Status == StatusFailed {
		return out
	}
	dbg := &out.Value.Result.Debug
	dbg.TimingsMs["criteria_search_ms"] = searchMs
	dbg.AnchorURL = best.Listing.URL
	dbg.AnchorScore = models.FloatPtr(pricing.Round(best.Score, 3))
	dbg.InitialCandidates = len(candidates)
	return out
}

func degradedReason(stats models.DayQueryStats, stoppedEarly bool) string {
	switch {
	case stoppedEarly:
		return fmt.Sprintf("time budget reached; %d of %d nights interpolated, %d missing",
			stats.Interpolated, stats.TotalNights, stats.Missing)
	case stats.Missing > 0 || stats.Interpolated > 0:
		return fmt.Sprintf("%d of %d nights interpolated, %d missing",
			stats.Interpolated, stats.TotalNights, stats.Missing)
	}
	return ""
}
