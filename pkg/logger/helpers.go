package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs HTTP request information
func LogRequest(method, url string, statusCode int, duration float64) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration,
	}

	if statusCode >= 200 && statusCode < 300 {
		GetLogger().DebugWithFields("HTTP request completed", fields)
	} else if statusCode >= 400 && statusCode < 500 {
		GetLogger().WarnWithFields("HTTP request client error", fields)
	} else if statusCode >= 500 {
		GetLogger().ErrorWithFields("HTTP request server error", fields)
	}
}

// LogRateLimit logs rate limiting events
func LogRateLimit(endpoint string, retryAfter time.Duration) {
	GetLogger().WithFields(map[string]interface{}{
		"endpoint":    endpoint,
		"retry_after": retryAfter,
		"action":      "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogExportStart logs the beginning of a channel export
func LogExportStart(channelID string, resuming bool, cursor string) {
	fields := map[string]interface{}{
		"channel_id": channelID,
		"resuming":   resuming,
	}
	if cursor != "" {
		fields["cursor"] = cursor
	}

	GetLogger().InfoWithFields("Export started", fields)
}

// LogExportProgress logs per-page export progress
func LogExportProgress(channelID string, fetched, pages, total int) {
	GetLogger().WithFields(map[string]interface{}{
		"channel_id": channelID,
		"fetched":    fetched,
		"pages":      pages,
		"total":      total,
	}).Info("Export progress")
}

// LogFlush logs a completed flush of the archive to disk
func LogFlush(path string, messages int) {
	GetLogger().WithFields(map[string]interface{}{
		"path":     path,
		"messages": messages,
	}).Debug("Archive flushed")
}

// LogExportComplete logs the final export summary
func LogExportComplete(channelID string, total, pages, requests int, elapsed time.Duration) {
	GetLogger().WithFields(map[string]interface{}{
		"channel_id": channelID,
		"total":      total,
		"pages":      pages,
		"requests":   requests,
		"elapsed":    elapsed,
	}).Info("Export complete")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing (useful for testing)
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
