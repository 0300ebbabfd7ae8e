// Package ratelimit spaces requests against the Discord API.
//
// Rather than enforcing a fixed requests-per-minute budget, the pacer adapts
// the gap between successive requests to API feedback: each success shrinks
// the gap toward a floor, each rate limit response widens it toward a
// ceiling. The hard wait demanded by a 429 is handled elsewhere (the fetch
// loop honors Retry-After directly); the pacer only tunes the steady-state
// request cadence so those 429s stay rare.
//
// Interface:
//
// Pacers implement the Pacer interface:
//   - Pause(ctx) error - block for the current gap, interruptible
//   - RecordSuccess()  - narrow the gap after a successful request
//   - RecordFailure()  - widen the gap after a throttled request
//   - Gap() time.Duration - the current gap
//   - Reset()          - restore the initial gap
//
// Usage:
//
//	// Start at 1s between requests, never below 500ms, never above 10s
//	pacer := ratelimit.NewAdaptivePacer(time.Second, 500*time.Millisecond, 10*time.Second)
//
//	for {
//	    page, err := fetch()
//	    if err != nil {
//	        pacer.RecordFailure()
//	        continue
//	    }
//	    process(page)
//	    if err := pacer.Pause(ctx); err != nil {
//	        return err // cancelled
//	    }
//	    pacer.RecordSuccess()
//	}
package ratelimit
