package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryWithDelay runs fn up to attempts times, sleeping delay before every
// attempt so that consecutive marketplace requests stay spaced out.
func RetryWithDelay(ctx context.Context, attempts int, delay time.Duration, log logrus.FieldLogger, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := Sleep(ctx, delay); err != nil {
			return err
		}
		if err := fn(attempt); err != nil {
			lastErr = err
			if attempt < attempts {
				log.WithFields(logrus.Fields{"attempt": attempt + 1, "max": attempts}).Infof("Retrying after: %v", err)
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("all %d attempts failed, last error: %w", attempts, lastErr)
}
