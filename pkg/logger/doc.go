// Package logger provides structured logging for the exporter.
//
// It wraps the zerolog library to provide a clean, easy-to-use API with support for:
// - Multiple log levels (Debug, Info, Warn, Error, Fatal)
// - Structured logging with fields
// - Pretty console output with colors on stderr
// - Optional file output
// - Global logger instance for easy access
//
// Basic Usage:
//
//	import "dcexport/pkg/logger"
//
//	// Initialize the global logger
//	cfg := &config.LoggingConfig{
//	    Level: "info",
//	    File:  "dcexport.log",
//	}
//	err := logger.Initialize(cfg)
//
//	// Use the global logger
//	logger.Info("Export started")
//	logger.WithField("channel_id", "123456789012345678").Info("Fetching messages")
//	logger.WithError(err).Error("Flush failed")
//
// Advanced Usage:
//
//	log := logger.GetLogger().
//	    WithField("component", "exporter").
//	    WithField("channel_id", channelID)
//
//	log.InfoWithFields("Page fetched", map[string]interface{}{
//	    "messages": 100,
//	    "cursor":   cursor,
//	    "elapsed":  time.Second * 2,
//	})
//
// Log lines always go to stderr so that stdout stays usable for command
// output and shell pipelines.
package logger
