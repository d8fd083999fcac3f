package session

import "time"

// Backoff produces the reconnect delay sequence floor, floor*f, floor*f^2, ...
// capped at ceiling.
type Backoff struct {
	floor   time.Duration
	ceiling time.Duration
	factor  float64
	current time.Duration
}

func NewBackoff(floor, ceiling time.Duration, factor float64) *Backoff {
	if ceiling < floor {
		ceiling = floor
	}
	if factor < 1 {
		factor = 1
	}
	return &Backoff{floor: floor, ceiling: ceiling, factor: factor, current: floor}
}

// Next returns the delay to wait now and advances the sequence.
func (b *Backoff) Next() time.Duration {
	d := b.current
	next := time.Duration(float64(b.current) * b.factor)
	if next > b.ceiling || next < b.current {
		next = b.ceiling
	}
	b.current = next
	return d
}

// Reset returns the sequence to the floor.
func (b *Backoff) Reset() {
	b.current = b.floor
}
