package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"airbnb-pricer/models"

	"github.com/sirupsen/logrus"
)

// CSVWriter exports a pricing calendar to a CSV file
type CSVWriter struct {
	filePath string
	logger   logrus.FieldLogger
}

// NewCSVWriter creates a new CSVWriter
func NewCSVWriter(filePath string, logger logrus.FieldLogger) *CSVWriter {
	return &CSVWriter{filePath: filePath, logger: logger}
}

var calendarHeader = []string{
	"date", "day_of_week", "is_weekend", "base_price", "refundable_price",
	"non_refundable_price", "base_daily_price", "demand_score", "confidence",
	"time_multiplier", "final_multiplier", "price_after_time_adjustment",
	"effective_refundable", "effective_non_refundable", "flags",
}

// WriteCalendar writes one row per calendar night
func (w *CSVWriter) WriteCalendar(calendar []models.CalendarDay) error {
	dir := filepath.Dir(w.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(w.filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(calendarHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, c := range calendar {
		adj := c.DynamicAdjustment
		row := []string{
			c.Date,
			c.DayOfWeek,
			strconv.FormatBool(c.IsWeekend),
			strconv.Itoa(c.BasePrice),
			strconv.Itoa(c.RefundablePrice),
			strconv.Itoa(c.NonRefundablePrice),
			optInt(c.BaseDailyPrice),
			strconv.FormatFloat(adj.DemandScore, 'f', -1, 64),
			string(adj.Confidence),
			strconv.FormatFloat(adj.TimeMultiplier, 'f', -1, 64),
			strconv.FormatFloat(adj.FinalMultiplier, 'f', -1, 64),
			optInt(c.PriceAfterTimeAdjustment),
			optInt(c.EffectiveDailyPriceRefundable),
			optInt(c.EffectiveDailyPriceNonRefundable),
			strings.Join(c.Flags, "|"),
		}
		if err := writer.Write(row); err != nil {
			w.logger.Errorf("Failed to write CSV row for %s: %v", c.Date, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	w.logger.Infof("Calendar written to: %s (%d rows)", w.filePath, len(calendar))
	return nil
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
