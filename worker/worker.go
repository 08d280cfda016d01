// Package worker runs the job lifecycle: it claims pricing jobs from the
// shared store, keeps their lease alive, runs the pricing pipeline and
// commits the result or a user-facing failure.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"airbnb-pricer/config"
	"airbnb-pricer/estimator"
	"airbnb-pricer/models"
	"airbnb-pricer/services"
	"airbnb-pricer/storage"
	"airbnb-pricer/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	maxBackoffFactor  = 12
	idleBackoffFactor = 1.5
	errBackoffFactor  = 2
	heartbeatJoin     = 5 * time.Second
	finalWriteTimeout = 15 * time.Second
	defaultAdults     = 2
)

// Core version suffixes record where a result came from
const (
	SuffixCache    = "+cache"
	SuffixScrape   = "+scrape"
	SuffixCriteria = "+criteria"
)

// Pipeline prices one job's listing over its date range
type Pipeline interface {
	EstimateFromURL(ctx context.Context, listingURL string, checkin, checkout time.Time, adults int) estimator.Outcome[estimator.Estimate]
	EstimateFromCriteria(ctx context.Context, address string, attrs models.InputAttributes, checkin, checkout time.Time) estimator.Outcome[estimator.Estimate]
}

// Options tunes the poll loop and the lease
type Options struct {
	PollInterval      time.Duration
	StaleAfter        time.Duration
	MaxAttempts       int
	HeartbeatInterval time.Duration
	CacheTTL          time.Duration
	Version           string
}

// OptionsFromConfig maps worker configuration onto Options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PollInterval:      cfg.PollInterval,
		StaleAfter:        cfg.StaleAfter,
		MaxAttempts:       cfg.MaxAttempts,
		HeartbeatInterval: cfg.HeartbeatInterval,
		CacheTTL:          cfg.CacheTTL(),
		Version:           cfg.WorkerVersion,
	}
}

// Worker processes one job at a time
type Worker struct {
	store    storage.Store
	pipeline Pipeline
	calendar *services.CalendarService
	opts     Options
	logger   logrus.FieldLogger
	host     string
	now      func() time.Time
	newToken func() string

	stats stats
}

// New creates a Worker
func New(store storage.Store, pipeline Pipeline, opts Options, logger logrus.FieldLogger) *Worker {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	w := &Worker{
		store:    store,
		pipeline: pipeline,
		calendar: services.NewCalendarService(logger),
		opts:     opts,
		logger:   logger.WithField("component", "worker"),
		host:     host,
		now:      time.Now,
		newToken: uuid.NewString,
	}
	w.stats.startedAt = w.now()
	return w
}

// Run polls for work until ctx is cancelled. An idle poll grows the wait
// by 1.5x and a failed one by 2x, both capped at 12x the poll interval;
// claiming a job resets it.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.WithFields(logrus.Fields{
		"version":      w.opts.Version,
		"poll":         w.opts.PollInterval,
		"stale_after":  w.opts.StaleAfter,
		"max_attempts": w.opts.MaxAttempts,
		"heartbeat":    w.opts.HeartbeatInterval,
	}).Info("Worker starting")

	backoff := utils.NewBackoff(w.opts.PollInterval, maxBackoffFactor)
	for ctx.Err() == nil {
		claimed, err := w.RunOnce(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			if ctx.Err() != nil {
				break
			}
			w.logger.Errorf("Worker loop error: %v", err)
			wait = backoff.Next(errBackoffFactor)
		case !claimed:
			wait = backoff.Next(idleBackoffFactor)
		default:
			backoff.Reset()
			continue
		}
		if utils.Sleep(ctx, wait) != nil {
			break
		}
	}
	w.logger.Info("Worker shut down")
	return nil
}

// RunOnce claims and processes at most one job. It reports whether a job
// was claimed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	token := w.newToken()
	w.stats.lastPoll.Store(w.now().UnixMilli())
	job, err := w.store.ClaimJob(ctx, token, w.opts.StaleAfter)
	if job == nil {
		return false, err
	}
	w.stats.claimed.Add(1)
	w.stats.setLastJob(job.ID)
	log := w.logger.WithField("job", job.ID)

	if err != nil {
		// The row was claimed but its inputs could not be decoded.
		log.Warnf("Rejecting job: %v", err)
		w.fail(ctx, job, token, models.UserMessageOf(err), err.Error(), w.now())
		return true, nil
	}

	if job.WorkerAttempts > w.opts.MaxAttempts {
		perr := models.NewAttemptsExceeded(job.WorkerAttempts)
		log.Warn(perr.Detail)
		w.fail(ctx, job, token, perr.UserMessage, perr.Detail, w.now())
		return true, nil
	}

	log.Infof("Claimed job (attempt %d)", job.WorkerAttempts)
	w.processJob(ctx, job, token)
	return true, nil
}

// processJob runs one claimed job to completion or failure. The heartbeat
// lives exactly as long as this call; a rejected heartbeat cancels the
// pipeline.
func (w *Worker) processJob(ctx context.Context, job *models.Job, token string) {
	start := w.now()
	log := w.logger.WithField("job", job.ID)

	jobCtx, cancelJob := context.WithCancel(ctx)
	defer cancelJob()
	hb := startHeartbeat(jobCtx, w.store, job.ID, token, w.opts.HeartbeatInterval, log, cancelJob)
	defer func() {
		if !hb.stop(heartbeatJoin) {
			log.Warn("Heartbeat did not stop in time")
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Processing failed: %v\n%s", r, debug.Stack())
			w.fail(ctx, job, token, models.MsgInternal, fmt.Sprint(r), start)
		}
	}()

	listingURL := job.ListingURL()
	mode := job.InputAttributes.InputMode
	if mode == "" {
		mode = models.InputModeCriteria
	}
	finalAttrs := job.InputAttributes
	finalAttrs.InputMode = mode
	finalAttrs.ListingURL = listingURL

	cacheKey := job.CacheKey
	if cacheKey == "" {
		cacheKey = ComputeCacheKey(job)
	}
	// URL mode must scrape at least once so extracted specs replace the
	// placeholder attributes.
	bypassCache := mode == models.InputModeURL && listingURL != ""

	if !bypassCache {
		if hit := w.lookupCache(jobCtx, cacheKey, log); hit != nil {
			w.stats.cacheHits.Add(1)
			w.complete(ctx, job, token, models.JobResult{
				Summary:     hit.Summary,
				Calendar:    hit.Calendar,
				CoreVersion: w.opts.Version + SuffixCache,
				Debug: map[string]any{
					"cache_hit":      true,
					"cache_key":      cacheKey,
					"worker_host":    w.host,
					"worker_version": w.opts.Version,
					"total_ms":       w.now().Sub(start).Milliseconds(),
				},
				InputAttributes: &finalAttrs,
			}, log)
			return
		}
	}

	var (
		outcome estimator.Outcome[estimator.Estimate]
		suffix  string
	)
	switch {
	case listingURL != "":
		log.Infof("URL mode: %s", listingURL)
		outcome = w.pipeline.EstimateFromURL(jobCtx, listingURL, job.InputDateStart, job.InputDateEnd, defaultAdults)
		suffix = SuffixScrape
	case mode == models.InputModeCriteria:
		log.Infof("Criteria mode: %s", job.InputAddress)
		outcome = w.pipeline.EstimateFromCriteria(jobCtx, job.InputAddress, job.InputAttributes, job.InputDateStart, job.InputDateEnd)
		suffix = SuffixCriteria
	default:
		w.fail(ctx, job, token, models.MsgMissingInput, "No listing URL and input mode is not criteria", start)
		return
	}

	est, err := outcome.Unwrap()
	if err != nil {
		if hb.leaseLost() {
			w.stats.leaseLost.Add(1)
			log.Warnf("Abandoning job after lost claim: %v", err)
			return
		}
		if ctx.Err() != nil {
			// Left running; another worker reclaims it once the heartbeat goes stale.
			log.Warnf("Shutdown interrupted job, leaving it for reclaim: %v", err)
			return
		}
		w.fail(ctx, job, token, models.UserMessageOf(err), err.Error(), start)
		return
	}
	if outcome.Status == estimator.StatusDegraded {
		log.Warnf("Partial data: %s", outcome.Reason)
	}

	summary, calendar, err := w.calendar.Build(est.Days, job.InputDateStart, job.InputDateEnd,
		job.DiscountPolicy, est.Result.RecommendedPrice.Nightly, w.now())
	if err != nil {
		w.fail(ctx, job, token, models.UserMessageOf(err), err.Error(), start)
		return
	}
	services.AttachTransparency(summary, &est.Result)
	if listingURL != "" {
		finalAttrs = services.MergeExtractedAttributes(finalAttrs, est.Result.TargetSpec)
	}

	dbg := structToMap(est.Result.Debug)
	dbg["cache_hit"] = false
	dbg["cache_key"] = cacheKey
	dbg["cache_bypassed_for_url_mode"] = bypassCache
	dbg["worker_host"] = w.host
	dbg["worker_version"] = w.opts.Version
	dbg["outcome"] = string(outcome.Status)
	dbg["total_ms"] = w.now().Sub(start).Milliseconds()

	result := models.JobResult{
		Summary:         *summary,
		Calendar:        calendar,
		CoreVersion:     w.opts.Version + suffix,
		Debug:           dbg,
		InputAttributes: &finalAttrs,
	}
	if !w.complete(ctx, job, token, result, log) {
		return
	}

	entry := models.CacheEntry{
		Key:       cacheKey,
		ExpiresAt: w.now().Add(w.opts.CacheTTL),
		Summary:   *summary,
		Calendar:  calendar,
		Meta: map[string]any{
			"source":      est.Result.Debug.Source,
			"listing_url": listingURL,
			"comps_count": est.Result.CompsSummary.Collected,
		},
	}
	wctx, cancel := finalWriteContext(ctx)
	defer cancel()
	if err := w.store.SetCached(wctx, entry); err != nil {
		log.Warnf("Failed to write cache: %v", err)
	}
	log.Infof("Completed in %dms (%s)", w.now().Sub(start).Milliseconds(), result.CoreVersion)
}

func (w *Worker) lookupCache(ctx context.Context, key string, log logrus.FieldLogger) *models.CacheEntry {
	entry, err := w.store.GetCached(ctx, key, w.now())
	if err != nil {
		log.Warnf("Cache lookup failed: %v", err)
		return nil
	}
	if entry != nil {
		log.Infof("Cache hit for key=%s...", key[:min(12, len(key))])
	}
	return entry
}

// complete commits a result and reports whether the store accepted it
func (w *Worker) complete(ctx context.Context, job *models.Job, token string, result models.JobResult, log logrus.FieldLogger) bool {
	wctx, cancel := finalWriteContext(ctx)
	defer cancel()
	ok, err := w.store.CompleteJob(wctx, job.ID, token, result)
	switch {
	case err != nil:
		log.Errorf("Failed to complete job: %v", err)
		return false
	case !ok:
		w.stats.leaseLost.Add(1)
		log.Warn(models.NewLeaseLost(job.ID).Error())
		return false
	}
	w.stats.completed.Add(1)
	return true
}

// fail writes a user-facing error to the job. A rejected write means the
// claim was lost and the store already belongs to another worker.
func (w *Worker) fail(ctx context.Context, job *models.Job, token, userMessage, detail string, start time.Time) {
	log := w.logger.WithField("job", job.ID)
	log.Warnf("Failing: %s", detail)

	wctx, cancel := finalWriteContext(ctx)
	defer cancel()
	ok, err := w.store.FailJob(wctx, job.ID, token, models.JobFailure{
		ErrorMessage: userMessage,
		Debug: map[string]any{
			"error":          detail,
			"worker_host":    w.host,
			"worker_version": w.opts.Version,
			"total_ms":       w.now().Sub(start).Milliseconds(),
		},
	})
	switch {
	case err != nil:
		log.Errorf("Failed to mark job as error: %v", err)
	case !ok:
		w.stats.leaseLost.Add(1)
		log.Warn(models.NewLeaseLost(job.ID).Error())
	default:
		w.stats.failed.Add(1)
	}
}

// finalWriteContext lets the closing store write of a job finish even
// while the worker is shutting down.
func finalWriteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
}

func structToMap(v any) map[string]any {
	out := map[string]any{}
	b, err := json.Marshal(v)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(b, &out)
	return out
}

type stats struct {
	claimed   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64
	leaseLost atomic.Int64
	lastPoll  atomic.Int64

	mu        sync.Mutex
	lastJobID string
	startedAt time.Time
}

func (s *stats) setLastJob(id string) {
	s.mu.Lock()
	s.lastJobID = id
	s.mu.Unlock()
}

// Stats is a point-in-time view of a worker's counters
type Stats struct {
	Version   string    `json:"version"`
	Host      string    `json:"host"`
	StartedAt time.Time `json:"startedAt"`
	LastPoll  time.Time `json:"lastPoll"`
	LastJobID string    `json:"lastJobId,omitempty"`
	Claimed   int64     `json:"claimed"`
	Completed int64     `json:"completed"`
	Failed    int64     `json:"failed"`
	CacheHits int64     `json:"cacheHits"`
	LeaseLost int64     `json:"leaseLost"`
}

// Stats returns the worker's counters
func (w *Worker) Stats() Stats {
	w.stats.mu.Lock()
	lastJob, started := w.stats.lastJobID, w.stats.startedAt
	w.stats.mu.Unlock()

	var lastPoll time.Time
	if ms := w.stats.lastPoll.Load(); ms > 0 {
		lastPoll = time.UnixMilli(ms)
	}
	return Stats{
		Version:   w.opts.Version,
		Host:      w.host,
		StartedAt: started,
		LastPoll:  lastPoll,
		LastJobID: lastJob,
		Claimed:   w.stats.claimed.Load(),
		Completed: w.stats.completed.Load(),
		Failed:    w.stats.failed.Load(),
		CacheHits: w.stats.cacheHits.Load(),
		LeaseLost: w.stats.leaseLost.Load(),
	}
}
