package logger

// This file shows how to integrate the logger into the main application

/*
Example integration in the command layer:

package main

import (
	"os"

	"dcexport/pkg/config"
	"dcexport/pkg/exporter"
	"dcexport/pkg/logger"
	"dcexport/pkg/ui"
)

func runExport(channelID string, flags map[string]interface{}) {
	// Load configuration
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Initialize the logger
	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}

	// Now the logger is available throughout the application
	logger.Info("dcexport starting")
	logger.WithField("channel_id", channelID).Info("Starting export")

	// Log configuration (be careful not to log sensitive data, never
	// the token)
	logger.WithFields(map[string]interface{}{
		"output_dir":    cfg.Output.Directory,
		"page_size":     cfg.Export.PageSize,
		"save_interval": cfg.Export.SaveInterval,
		"log_level":     cfg.Logging.Level,
	}).Debug("Configuration loaded")

	exp, err := exporter.New(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize exporter")
	}

	if err := exp.ExportChannel(ctx, channelID); err != nil {
		logger.WithError(err).WithField("channel_id", channelID).Error("Export failed")
		os.Exit(1)
	}

	logger.WithField("channel_id", channelID).Info("Export completed")
}
*/

// Example integration in the exporter:
/*
func (e *Exporter) ExportChannel(ctx context.Context, channelID string) error {
	log := logger.GetLogger().
		WithField("component", "exporter").
		WithField("channel_id", channelID)

	log.Info("Starting export")

	// Use the helper functions for standardized event logging
	logger.LogExportStart(channelID, resuming, cursor)

	for {
		// ... fetch one page ...

		logger.LogExportProgress(channelID, len(page), pages, total)

		// ... flush at the save interval ...
		logger.LogFlush(path, total)
	}

	logger.LogExportComplete(channelID, total, pages, requests, time.Since(start))
}
*/

// Example integration in the API client:
/*
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	start := time.Now()
	log := logger.GetLogger().WithField("component", "client")

	log.WithField("url", url).Debug("Sending request")

	// ... perform the request ...

	logger.LogRequest(http.MethodGet, url, resp.StatusCode, time.Since(start).Seconds())
	return resp, nil
}
*/

// Example integration with the pacer:
/*
func waitOutRateLimit(ctx context.Context, endpoint string, retryAfter time.Duration) error {
	logger.LogRateLimit(endpoint, retryAfter)
	return retry.Wait(ctx, retryAfter)
}
*/
