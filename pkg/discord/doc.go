// Package discord provides a client for fetching channel message history
// from the Discord REST API.
//
// This package includes:
//   - A configurable HTTP client with authentication headers and error handling
//   - A Message type that preserves server payloads verbatim
//   - Helper functions for constructing API endpoints
//   - Retry-After extraction for rate limited responses
//
// Example usage:
//
//	client := discord.NewClient(cfg, log)
//
//	// Verify the channel is reachable
//	channel, err := client.FetchChannel(ctx, "123456789012345678")
//	if err != nil {
//	    var apiErr *errors.Error
//	    if stderrors.As(err, &apiErr) {
//	        switch apiErr.Type {
//	        case errors.ErrorTypeAuth:
//	            // Handle authentication error
//	        case errors.ErrorTypeRateLimit:
//	            // Wait apiErr.RetryAfter and try again
//	        }
//	    }
//	}
//
//	// Page through history, newest first
//	before := ""
//	for {
//	    page, err := client.FetchMessages(ctx, channel.ID, before)
//	    if err != nil || len(page) == 0 {
//	        break
//	    }
//	    before = page[len(page)-1].ID
//	}
package discord
