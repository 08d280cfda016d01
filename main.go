package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"airbnb-pricer/config"
	"airbnb-pricer/estimator"
	"airbnb-pricer/models"
	"airbnb-pricer/scraper/airbnb"
	"airbnb-pricer/server"
	"airbnb-pricer/services"
	"airbnb-pricer/storage"
	"airbnb-pricer/utils"
	"airbnb-pricer/worker"

	"github.com/sirupsen/logrus"
)

type oneShot struct {
	url      string
	address  string
	checkin  string
	checkout string
	csvPath  string
	bedrooms int
	guests   int
	baths    float64
	propType string
}

func main() {
	var shot oneShot
	flag.StringVar(&shot.url, "estimate-url", "", "price one listing URL and exit")
	flag.StringVar(&shot.address, "estimate-address", "", "price a property described by criteria and exit")
	flag.StringVar(&shot.checkin, "checkin", "", "first night (YYYY-MM-DD)")
	flag.StringVar(&shot.checkout, "checkout", "", "checkout day (YYYY-MM-DD)")
	flag.StringVar(&shot.csvPath, "csv", "", "also write the calendar to this CSV file")
	flag.IntVar(&shot.bedrooms, "bedrooms", 0, "criteria: bedrooms")
	flag.IntVar(&shot.guests, "guests", 0, "criteria: max guests")
	flag.Float64Var(&shot.baths, "baths", 0, "criteria: bathrooms")
	flag.StringVar(&shot.propType, "type", "", "criteria: property type")
	flag.Parse()

	// ================== Bootstrap ====================
	cfg := config.Load()
	logger := utils.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer := airbnb.NewScraper(cfg, logger)
	defer renderer.Close()
	pipeline := estimator.New(renderer, estimator.OptionsFromConfig(cfg), logger)

	if shot.url != "" || shot.address != "" {
		if err := runOneShot(ctx, cfg, logger, pipeline, shot); err != nil {
			logger.Errorf("Estimate failed: %v", err)
			os.Exit(1)
		}
		return
	}

	logger.Infof("Airbnb pricing worker %s", cfg.WorkerVersion)

	// =================== PostgreSQL Setup ========================================
	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Errorf("Cannot connect to PostgreSQL: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.CreateTables(ctx); err != nil {
		logger.Errorf("Failed to create DB tables: %v", err)
		os.Exit(1)
	}

	// =============== Worker ===================================
	w := worker.New(store, pipeline, worker.OptionsFromConfig(cfg), logger)

	status := server.NewStatusServer(w, renderer, logger)
	go func() {
		if err := status.Listen(cfg.StatusAddr); err != nil {
			logger.Errorf("Status server stopped: %v", err)
		}
	}()
	defer func() {
		if err := status.Shutdown(5 * time.Second); err != nil {
			logger.Warnf("Status server shutdown: %v", err)
		}
	}()

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("Worker stopped: %v", err)
	}
}

// runOneShot prices a single request through an in-memory store, prints the
// report and optionally writes the calendar as CSV.
func runOneShot(ctx context.Context, cfg *config.Config, logger *logrus.Logger, pipeline worker.Pipeline, shot oneShot) error {
	checkin, err := models.ParseDay(shot.checkin)
	if err != nil {
		return fmt.Errorf("invalid -checkin: %w", err)
	}
	checkout, err := models.ParseDay(shot.checkout)
	if err != nil {
		return fmt.Errorf("invalid -checkout: %w", err)
	}

	attrs := models.InputAttributes{InputMode: models.InputModeCriteria, PropertyType: shot.propType}
	if shot.url != "" {
		attrs = models.InputAttributes{InputMode: models.InputModeURL, ListingURL: shot.url}
	}
	if shot.bedrooms > 0 {
		attrs.Bedrooms = &shot.bedrooms
	}
	if shot.guests > 0 {
		attrs.MaxGuests = &shot.guests
	}
	if shot.baths > 0 {
		attrs.Bathrooms = &shot.baths
	}

	store := storage.NewMemoryStore()
	id := store.Enqueue(models.Job{
		InputAddress:    shot.address,
		InputListingURL: shot.url,
		InputAttributes: attrs,
		InputDateStart:  checkin,
		InputDateEnd:    checkout,
		DiscountPolicy:  models.DefaultDiscountPolicy(),
	})

	w := worker.New(store, pipeline, worker.OptionsFromConfig(cfg), logger)
	if _, err := w.RunOnce(ctx); err != nil {
		return err
	}

	_, result, failure, _ := store.Job(id)
	switch {
	case failure != nil:
		return fmt.Errorf("%s (%v)", failure.ErrorMessage, failure.Debug["error"])
	case result == nil:
		return fmt.Errorf("job %s produced no result", id)
	}

	services.PrintReport(os.Stdout, &result.Summary, result.Calendar)

	if shot.csvPath != "" {
		if err := storage.NewCSVWriter(shot.csvPath, logger).WriteCalendar(result.Calendar); err != nil {
			return err
		}
		fmt.Println(" Calendar →", shot.csvPath)
	}
	return nil
}
