package ratelimit

import (
	"context"
	"sync"
	"time"

	"dcexport/pkg/retry"
)

// Pacer defines the interface for spacing successive API requests
type Pacer interface {
	// Pause blocks for the current inter-request gap or until the context
	// is cancelled
	Pause(ctx context.Context) error
	// RecordSuccess feeds back a successful request, narrowing the gap
	RecordSuccess()
	// RecordFailure feeds back a throttled request, widening the gap
	RecordFailure()
	// Gap returns the current inter-request gap
	Gap() time.Duration
	// Reset restores the initial gap
	Reset()
}

// AdaptivePacer adjusts the inter-request gap from API feedback: every
// success shrinks the gap toward a floor, every rate limit widens it toward
// a ceiling. Pacing stays polite without a fixed throttle that would fight
// the server's own Retry-After signal.
type AdaptivePacer struct {
	initial time.Duration // Gap at start and after Reset
	min     time.Duration // Floor the gap decays toward
	max     time.Duration // Ceiling the gap grows toward
	decay   float64       // Applied per success
	growth  float64       // Applied per failure
	current time.Duration
	mu      sync.Mutex
}

// NewAdaptivePacer creates a pacer starting at initial, decaying toward min
// on success and growing toward max on failure
func NewAdaptivePacer(initial, min, max time.Duration) *AdaptivePacer {
	if min <= 0 {
		min = 500 * time.Millisecond
	}
	if initial < min {
		initial = min
	}
	if max < initial {
		max = initial
	}
	return &AdaptivePacer{
		initial: initial,
		min:     min,
		max:     max,
		decay:   0.9,
		growth:  2.0,
		current: initial,
	}
}

// Pause blocks for the current gap, returning early if ctx is cancelled
func (p *AdaptivePacer) Pause(ctx context.Context) error {
	return retry.Wait(ctx, p.Gap())
}

// Gap returns the current inter-request gap
func (p *AdaptivePacer) Gap() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.current
}

// RecordSuccess narrows the gap by the decay factor, bounded by the floor
func (p *AdaptivePacer) RecordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := time.Duration(float64(p.current) * p.decay)
	if next < p.min {
		next = p.min
	}
	p.current = next
}

// RecordFailure widens the gap by the growth factor, bounded by the ceiling
func (p *AdaptivePacer) RecordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := time.Duration(float64(p.current) * p.growth)
	if next > p.max {
		next = p.max
	}
	p.current = next
}

// Reset restores the initial gap
func (p *AdaptivePacer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.initial
}
