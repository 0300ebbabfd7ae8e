// Package exporter provides the core functionality for exporting Discord
// channel message history.
//
// The exporter package orchestrates the entire export process, coordinating
// between the Discord API client, on-disk storage, checkpointing, request
// pacing and retry handling.
//
// Architecture:
//
// The Exporter struct is the main component that:
//   - Pages backward through a channel's history with the before cursor
//   - Accumulates messages in memory in fetch order (newest to oldest)
//   - Flushes the full archive atomically at the configured save interval
//   - Waits out rate limits using the server's Retry-After value
//   - Retries transient failures with bounded exponential backoff
//   - Records progress in a checkpoint so interrupted runs can resume
//
// Usage:
//
//	cfg := config.DefaultConfig()
//	cfg.Discord.Token = "..."
//
//	exp, err := exporter.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	if err := exp.ExportChannel(ctx, "123456789012345678"); err != nil {
//	    log.Fatal(err)
//	}
//
// Lifecycle:
//
// A run moves through running, stopping, flushing and terminated states.
// Cancelling the context moves the run to stopping; the in-memory archive
// is then flushed so the output file matches memory exactly before the
// state reaches terminated. A clean interrupt is not an error.
//
// Storage:
//
// The archive is a single JSON array written with a temp-file-and-rename
// sequence, so readers never observe a partially written file. Every flush
// rewrites the whole array, which makes the operation idempotent.
package exporter
