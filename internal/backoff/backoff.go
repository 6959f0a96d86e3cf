package backoff

import (
	"context"
	"math/rand"
	"time"
)

// Policy is an exponential backoff with jitter. Attempt n waits
// Base*2^n plus a jittered fraction of a second. Sleep and Jitter are
// injectable so retry paths can be tested without real delays.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
	Jitter      func() float64
	Sleep       func(ctx context.Context, d time.Duration) error
}

// Default matches the remote-call policy: 3 attempts, 2^attempt seconds
// plus up to one second of jitter.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		Base:        1 * time.Second,
		Max:         60 * time.Second,
	}
}

// Delay returns the wait before retrying after the given zero-based
// attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		return p.max()
	}
	d := p.Base * time.Duration(1<<attempt)
	jitter := p.Jitter
	if jitter == nil {
		jitter = rand.Float64
	}
	d += time.Duration(jitter() * float64(time.Second))
	if d > p.max() {
		return p.max()
	}
	return d
}

// Wait blocks for the attempt's delay or until the context is done.
func (p Policy) Wait(ctx context.Context, attempt int) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return sleep(ctx, p.Delay(attempt))
}

func (p Policy) max() time.Duration {
	if p.Max <= 0 {
		return 60 * time.Second
	}
	return p.Max
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
