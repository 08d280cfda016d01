package storage

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"airbnb-pricer/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCalendar(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	path := filepath.Join(t.TempDir(), "out", "calendar.csv")

	calendar := []models.CalendarDay{
		{
			Date: "2026-06-01", DayOfWeek: "Mon", BasePrice: 198, RefundablePrice: 178, NonRefundablePrice: 178,
			BaseDailyPrice:    models.IntPtr(200),
			DynamicAdjustment: models.DynamicAdjustment{DemandScore: 0.5, Confidence: models.ConfidenceHigh, TimeMultiplier: 1, FinalMultiplier: 0.99},
			Flags:             []string{models.FlagLastMinuteDiscount},
		},
		{Date: "2026-06-02", DayOfWeek: "Tue", BasePrice: 150, Flags: []string{models.FlagMissingData, models.FlagInterpolated}},
	}
	require.NoError(t, NewCSVWriter(path, logger).WriteCalendar(calendar))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, calendarHeader, rows[0])
	assert.Equal(t, []string{
		"2026-06-01", "Mon", "false", "198", "178", "178", "200", "0.5", "high", "1", "0.99", "", "", "", "last_minute_discount",
	}, rows[1])
	assert.Equal(t, "", rows[2][6], "unknown base price")
	assert.Equal(t, "missing_data|interpolated", rows[2][14])
}
