package ingest

import (
	"context"
	"time"
)

// Pacer spaces out content fetches so that two calls to Wait return at least
// delay apart. A zero delay never sleeps.
type Pacer struct {
	delay time.Duration
	last  time.Time
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay, now: time.Now, sleep: sleepCtx}
}

// Wait blocks until the next fetch may start or ctx ends.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.delay <= 0 {
		return nil
	}
	if !p.last.IsZero() {
		if remaining := p.delay - p.now().Sub(p.last); remaining > 0 {
			if err := p.sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}
	p.last = p.now()
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
