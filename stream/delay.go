package stream

import (
	"context"
	"time"
)

// FixedDelay waits a constant duration between pseudo-stream chunks,
// cancellable via ctx (spec.md §4.H: "All are cancellable; cancellation
// propagates as an error"). Grounded on the select/time.After pattern used
// for inter-chunk delay in the reference mock streaming server.
type FixedDelay struct {
	D time.Duration
}

const DefaultPseudoStreamDelay = 10 * time.Millisecond

func NewFixedDelay(d time.Duration) FixedDelay {
	if d <= 0 {
		d = DefaultPseudoStreamDelay
	}
	return FixedDelay{D: d}
}

func (f FixedDelay) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.D):
		return nil
	}
}
