// Package retry provides backoff strategies and retry logic for handling
// transient failures in network operations, particularly Discord API calls.
//
// Features:
//   - Multiple backoff strategies (exponential, linear, constant)
//   - Jitter to avoid thundering herd problems
//   - Context support for cancellation (Wait is interruptible)
//   - Error-type specific backoff strategies
//   - Configurable retry predicates
//
// The delay computation is a pure function of the attempt number and the
// strategy's parameters, so policies can be tested without any network.
//
// Basic usage:
//
//	// Simple retry with defaults
//	err := retry.Do(func() error {
//		return store.Write(messages)
//	}, nil)
//
//	// Custom configuration
//	cfg := &retry.Config{
//		MaxAttempts: 5,
//		Backoff: &retry.ExponentialBackoff{
//			BaseDelay:    2 * time.Second,
//			MaxDelay:     30 * time.Second,
//			Multiplier:   2.0,
//			JitterFactor: 0.1,
//		},
//		RetryIf: retry.DefaultRetryIf,
//		Logger:  logger.GetLogger(),
//	}
//	err := retry.Do(operation, cfg)
//
//	// Per-error-kind strategies
//	backoffs := retry.NewErrorTypeBackoff()
//	delay := backoffs.GetBackoffForError(errs.ErrorTypeNetwork).NextDelay(attempt)
//
// Error Type Handling:
//
// Different error types get different backoff strategies:
//   - Network errors: quick retries with exponential backoff
//   - Server errors: moderate delays with exponential backoff
//   - Rate limits: no client-side backoff at all, the server's Retry-After
//     value is honored instead
//   - Auth/NotFound/Parsing errors: no retry (non-retryable)
package retry
