// Package ratelimit spaces out fetches so a crawl never hammers a site.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter is the engine-facing contract: block until the next fetch may go.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Fixed enforces a jittered minimum delay between consecutive fetches.
type Fixed struct {
	mu         sync.Mutex
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
}

// NewFixed builds a limiter with a delay uniformly drawn from [min, max]
// between fetches.
func NewFixed(min, max time.Duration) *Fixed {
	if max < min {
		max = min
	}
	return &Fixed{minDelay: min, maxDelay: max}
}

func (f *Fixed) Wait(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delay := f.minDelay
	if f.maxDelay > f.minDelay {
		delay += time.Duration(rand.Int63n(int64(f.maxDelay - f.minDelay)))
	}

	if elapsed := time.Since(f.lastAction); elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	f.lastAction = time.Now()
	return nil
}

// Adaptive wraps Fixed and stretches the delay after repeated fetch
// failures, relaxing it again once fetches succeed.
type Adaptive struct {
	*Fixed
	errorStreak   int
	successStreak int
	maxErrors     int
	backoffFactor float64
}

// NewAdaptive builds an adaptive limiter starting from the given window.
func NewAdaptive(min, max time.Duration) *Adaptive {
	return &Adaptive{
		Fixed:         NewFixed(min, max),
		maxErrors:     3,
		backoffFactor: 1.5,
	}
}

// RecordSuccess notes a successful fetch; a run of successes slowly shrinks
// the delay floor back toward one second.
func (a *Adaptive) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successStreak++
	a.errorStreak = 0

	if a.successStreak > 5 {
		newMin := time.Duration(float64(a.minDelay) * 0.9)
		if newMin < time.Second {
			newMin = time.Second
		}
		a.minDelay = newMin
		a.successStreak = 0
	}
}

// RecordError notes a failed fetch; enough consecutive failures widen the
// delay window, capped at one minute.
func (a *Adaptive) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorStreak++
	a.successStreak = 0

	if a.errorStreak >= a.maxErrors {
		newMin := time.Duration(float64(a.minDelay) * a.backoffFactor)
		newMax := time.Duration(float64(a.maxDelay) * a.backoffFactor)
		if newMin > time.Minute {
			newMin = time.Minute
		}
		if newMax > 2*time.Minute {
			newMax = 2 * time.Minute
		}
		a.minDelay = newMin
		a.maxDelay = newMax
		a.errorStreak = 0
	}
}
