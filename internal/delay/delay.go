// Package delay provides injectable processing-latency strategies. Real
// deployments draw a random delay to mimic slow tasks; tests substitute
// None without touching executor logic.
package delay

import (
	"context"
	"math/rand"
	"time"
)

// Strategy decides how long a worker lingers before settling a job.
type Strategy interface {
	// Wait blocks for the strategy's duration, or until the context is
	// cancelled, in which case the context error is returned.
	Wait(ctx context.Context) error
}

// Uniform waits a duration drawn uniformly from [Min, Max].
type Uniform struct {
	Min time.Duration
	Max time.Duration
}

func (u Uniform) Wait(ctx context.Context) error {
	d := u.Min
	if u.Max > u.Min {
		d += time.Duration(rand.Int63n(int64(u.Max-u.Min) + 1))
	}
	return sleep(ctx, d)
}

// Fixed waits exactly D. Useful for deterministic tests of timing paths.
type Fixed struct {
	D time.Duration
}

func (f Fixed) Wait(ctx context.Context) error {
	return sleep(ctx, f.D)
}

// None returns immediately.
type None struct{}

func (None) Wait(ctx context.Context) error {
	return ctx.Err()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
