package collector

import (
	"context"
	"math/rand"
	"time"
)

// Pacer sleeps a random interval between vendor requests to mimic human
// browsing. The zero value never sleeps, which keeps tests fast.
type Pacer struct {
	min time.Duration
	max time.Duration
}

// NewPacer bounds the random sleep between min and max seconds.
func NewPacer(minSeconds, maxSeconds float64) *Pacer {
	if maxSeconds < minSeconds {
		maxSeconds = minSeconds
	}
	return &Pacer{
		min: time.Duration(minSeconds * float64(time.Second)),
		max: time.Duration(maxSeconds * float64(time.Second)),
	}
}

// Wait blocks for a random interval or until the context is cancelled.
func (p *Pacer) Wait(ctx context.Context) {
	if p == nil || p.max <= 0 {
		return
	}
	d := p.min
	if span := p.max - p.min; span > 0 {
		d += time.Duration(rand.Int63n(int64(span)))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
