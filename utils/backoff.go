package utils

import "time"

// Backoff is the poll-loop wait, grown multiplicatively up to a cap.
type Backoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
}

// NewBackoff starts at base and never exceeds base*capFactor.
func NewBackoff(base time.Duration, capFactor float64) *Backoff {
	return &Backoff{
		base:    base,
		max:     time.Duration(float64(base) * capFactor),
		current: base,
	}
}

// Next returns the wait to use now and grows the following one by factor.
func (b *Backoff) Next(factor float64) time.Duration {
	d := b.current
	next := time.Duration(float64(b.current) * factor)
	if next > b.max {
		next = b.max
	}
	b.current = next
	return d
}

// Reset goes back to the base interval after work was found.
func (b *Backoff) Reset() {
	b.current = b.base
}
