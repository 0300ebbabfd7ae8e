package exporter

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	"dcexport/pkg/checkpoint"
	"dcexport/pkg/config"
	"dcexport/pkg/discord"
	"dcexport/pkg/errors"
	"dcexport/pkg/logger"
	"dcexport/pkg/ratelimit"
	"dcexport/pkg/retry"
	"dcexport/pkg/storage"
	"dcexport/pkg/ui"
)

const (
	finalFlushAttempts = 3
	finalFlushDelay    = 200 * time.Millisecond
)

// State represents the lifecycle phase of an export run
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateFlushing
	StateTerminated
)

// String returns the lowercase name of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateFlushing:
		return "flushing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Exporter orchestrates the channel message export process
type Exporter struct {
	client         MessageFetcher
	storageManager *storage.Manager
	pacer          ratelimit.Pacer
	tracker        *ui.StatusTracker
	notifier       *ui.Notifier
	config         *config.Config
	logger         logger.Logger
	checkpointMgr  *checkpoint.Manager
	backoff        *retry.ErrorTypeBackoff

	state       atomic.Int32
	interrupted bool
	completed   bool

	// Per-run fields, touched only by the export loop
	channelID  string
	outputFile string
	messages   []discord.Message
	cursor     string
	pages      int
	requests   int
}

// New creates a new Exporter instance
func New(cfg *config.Config) (*Exporter, error) {
	log := logger.GetLogger()

	client := discord.NewClient(cfg, log)

	storageManager, err := storage.NewManager(cfg.Output.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	pacer := ratelimit.NewAdaptivePacer(
		cfg.RateLimit.InitialDelay,
		cfg.RateLimit.MinDelay,
		cfg.RateLimit.MaxDelay,
	)

	return &Exporter{
		client:         client,
		storageManager: storageManager,
		pacer:          pacer,
		tracker:        ui.NewStatusTracker(cfg.Export.SaveInterval),
		notifier:       ui.NewNotifier(),
		config:         cfg,
		logger:         log,
		backoff:        newErrorTypeBackoff(&cfg.Retry),
	}, nil
}

// newErrorTypeBackoff builds per-error-kind backoff strategies from the
// retry configuration
func newErrorTypeBackoff(cfg *config.RetryConfig) *retry.ErrorTypeBackoff {
	strategy := func() retry.BackoffStrategy {
		return &retry.ExponentialBackoff{
			BaseDelay:    cfg.BaseDelay,
			MaxDelay:     cfg.MaxBackoff,
			Multiplier:   cfg.Multiplier,
			JitterFactor: cfg.JitterFactor,
		}
	}
	return &retry.ErrorTypeBackoff{
		NetworkErrorBackoff: strategy(),
		ServerErrorBackoff:  strategy(),
		DefaultBackoff:      strategy(),
	}
}

// State returns the current lifecycle state
func (e *Exporter) State() State {
	return State(e.state.Load())
}

func (e *Exporter) setState(s State) {
	e.state.Store(int32(s))
}

// WasInterrupted reports whether the last run ended on a shutdown signal
func (e *Exporter) WasInterrupted() bool {
	return e.interrupted
}

// GetTotalExported returns the number of messages held in the archive
func (e *Exporter) GetTotalExported() int {
	return len(e.messages)
}

// GetRequestCount returns the number of message page requests issued
func (e *Exporter) GetRequestCount() int {
	return e.requests
}

// GetPagesFetched returns the number of non-empty pages appended
func (e *Exporter) GetPagesFetched() int {
	return e.pages
}

// OutputPath returns the full path of the archive file for the last run
func (e *Exporter) OutputPath() string {
	return e.storageManager.Path(e.outputFile)
}

// ExportChannel exports the full message history of a channel
func (e *Exporter) ExportChannel(ctx context.Context, channelID string) error {
	return e.exportChannelWithOptions(ctx, channelID, false, false)
}

// ExportChannelWithResume exports message history with checkpoint support
func (e *Exporter) ExportChannelWithResume(ctx context.Context, channelID string, resume bool, forceRestart bool) error {
	return e.exportChannelWithOptions(ctx, channelID, resume, forceRestart)
}

// exportChannelWithOptions is the internal implementation with checkpoint support
func (e *Exporter) exportChannelWithOptions(ctx context.Context, channelID string, resume bool, forceRestart bool) error {
	if !discord.IsValidChannelID(channelID) {
		return fmt.Errorf("invalid channel ID: %s", channelID)
	}

	e.setState(StateRunning)
	e.interrupted = false
	e.completed = false
	e.channelID = channelID
	e.outputFile = e.config.OutputFileName(channelID)

	ui.PrintHighlight("\n[INITIATING EXPORT SEQUENCE]\n")

	// Initialize checkpoint manager
	checkpointMgr, err := checkpoint.NewManager(channelID)
	if err != nil {
		e.setState(StateTerminated)
		e.logger.WithError(err).WithField("channel_id", channelID).Error("Failed to create checkpoint manager")
		return fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	e.checkpointMgr = checkpointMgr

	// Handle checkpoint logic
	var cp *checkpoint.Checkpoint
	resuming := false
	if forceRestart && checkpointMgr.Exists() {
		// Force restart: delete existing checkpoint
		if err := checkpointMgr.Delete(); err != nil {
			e.logger.WithError(err).Warn("Failed to delete existing checkpoint")
		}
		ui.PrintInfo("Force restart", "Ignoring existing checkpoint")
	} else if resume && checkpointMgr.Exists() {
		// Resume from checkpoint
		cp, err = checkpointMgr.Load()
		if err != nil {
			e.setState(StateTerminated)
			e.logger.WithError(err).Error("Failed to load checkpoint")
			return fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if cp != nil {
			if cp.ChannelID != channelID {
				e.setState(StateTerminated)
				return fmt.Errorf("checkpoint belongs to channel %s, not %s", cp.ChannelID, channelID)
			}
			if err := e.loadResumeState(cp); err != nil {
				e.setState(StateTerminated)
				return err
			}
			resuming = true
			ui.PrintInfo("Resuming from checkpoint", fmt.Sprintf("Exported: %d messages", len(e.messages)))
			e.logger.InfoWithFields("Resuming from checkpoint", map[string]interface{}{
				"channel_id":    channelID,
				"total_fetched": len(e.messages),
				"last_cursor":   e.cursor,
			})
		}
	} else if checkpointMgr.Exists() && !resume {
		// Checkpoint exists but resume not requested
		info, _ := checkpointMgr.GetCheckpointInfo()
		if info != nil {
			if !ui.IsQuietMode() {
				fmt.Printf("\n%s Previous export found (%v messages)\n", ui.Yellow("►"), info["total_fetched"])
				fmt.Printf("  Use: %s to continue where you left off\n", ui.Green("--resume"))
				fmt.Printf("  Use: %s to start fresh\n\n", ui.Yellow("--force-restart"))
			}
			e.setState(StateTerminated)
			return fmt.Errorf("checkpoint exists - use --resume to continue or --force-restart to start fresh")
		}
	}

	// Get channel info, either from the checkpoint or with a pre-flight request
	channelName := ""
	if resuming {
		channelName = cp.ChannelName
		e.logger.DebugWithFields("Using channel info from checkpoint", map[string]interface{}{
			"channel_id":   channelID,
			"channel_name": channelName,
		})
	} else {
		channel, err := e.fetchChannelInfo(ctx, channelID)
		if err != nil {
			e.setState(StateTerminated)
			if ctx.Err() != nil {
				// Interrupted before any messages were fetched; leave
				// whatever is on disk untouched
				e.interrupted = true
				e.logger.Info("Interrupted before export started")
				return nil
			}
			e.logger.WithError(err).WithField("channel_id", channelID).Error("Failed to fetch channel info")
			return fmt.Errorf("failed to fetch channel info: %w", err)
		}
		channelName = channel.Name
		display := channelName
		if display == "" {
			display = "(direct message)"
		}
		ui.PrintInfo("Channel", display)
	}

	// Create new checkpoint if needed
	if cp == nil {
		cp, err = checkpointMgr.Create(channelID, channelName, e.outputFile)
		if err != nil {
			e.logger.WithError(err).Warn("Failed to create checkpoint")
			// Continue without a persisted checkpoint
			cp = &checkpoint.Checkpoint{
				ChannelID:   channelID,
				ChannelName: channelName,
				OutputFile:  e.outputFile,
			}
		}
	}

	logger.LogExportStart(channelID, resuming, e.cursor)
	e.logger.InfoWithFields("Starting message export", map[string]interface{}{
		"channel_id": channelID,
		"output":     e.storageManager.Path(e.outputFile),
		"page_size":  e.config.Export.PageSize,
		"resume":     resuming,
	})

	var runErr error

	for {
		// Observe shutdown before issuing the next request
		if ctx.Err() != nil {
			e.beginShutdown()
			break
		}

		e.tracker.PrintPageStatus()

		page, err := e.fetchPage(ctx, e.cursor)
		if err != nil {
			if ctx.Err() != nil {
				e.beginShutdown()
				break
			}
			runErr = err
			break
		}

		if len(page) == 0 {
			e.completed = true
			e.logger.InfoWithFields("Channel history exhausted", map[string]interface{}{
				"channel_id": channelID,
				"total":      len(e.messages),
				"pages":      e.pages,
			})
			break
		}

		e.messages = append(e.messages, page...)
		e.cursor = page[len(page)-1].ID
		e.pages++
		e.tracker.AddMessages(len(page))
		e.tracker.IncrementPages()
		e.tracker.PrintProgress()

		logger.LogExportProgress(channelID, len(page), e.pages, len(e.messages))

		// The checkpoint is only advanced together with a flush, so its
		// cursor never runs ahead of what the file holds
		if e.tracker.NeedsFlush() {
			if err := e.flush(); err != nil {
				runErr = fmt.Errorf("failed to flush archive: %w", err)
				break
			}
			e.updateCheckpoint(cp)
		}

		// Inter-request pacing
		if err := e.pacer.Pause(ctx); err != nil {
			e.beginShutdown()
			break
		}
	}

	finalErr := e.finalize(cp)
	if runErr == nil {
		runErr = finalErr
	}

	if runErr != nil {
		e.logger.WithError(runErr).WithField("channel_id", channelID).Error("Export failed")
		if e.config.Notifications.Enabled && e.config.Notifications.OnError {
			e.notifier.SendError("EXPORT FAILED", runErr.Error())
		}
		ui.PrintError("\n[EXPORT FAILED]", runErr)
		return runErr
	}

	if e.interrupted {
		e.logger.InfoWithFields("Export interrupted, progress saved", map[string]interface{}{
			"channel_id": channelID,
			"total":      len(e.messages),
			"pages":      e.pages,
		})
		ui.PrintWarning(fmt.Sprintf("\n[EXPORT INTERRUPTED - %d MESSAGES SAVED]\n", len(e.messages)))
		return nil
	}

	logger.LogExportComplete(channelID, len(e.messages), e.pages, e.requests, e.tracker.GetElapsedTime())
	if e.config.Notifications.Enabled && e.config.Notifications.OnComplete {
		e.notifier.SendSuccess("EXPORT COMPLETE", fmt.Sprintf("%d messages saved to %s", len(e.messages), e.storageManager.Path(e.outputFile)))
	}
	ui.PrintSuccess("\n[EXPORT COMPLETED SUCCESSFULLY]\n")

	return nil
}

// loadResumeState restores the in-memory archive from the output file.
// The file is the source of truth for the cursor; the checkpoint supplies
// page counts and metadata.
func (e *Exporter) loadResumeState(cp *checkpoint.Checkpoint) error {
	loaded, err := e.storageManager.Load(e.outputFile)
	if err != nil {
		return fmt.Errorf("failed to load existing export: %w", err)
	}
	if loaded == nil && cp.TotalFetched > 0 {
		return fmt.Errorf("output file %s is missing for this checkpoint - use --force-restart to start over", e.storageManager.Path(e.outputFile))
	}

	e.messages = loaded
	e.pages = cp.PagesFetched
	if len(loaded) > 0 {
		e.cursor = loaded[len(loaded)-1].ID
		if e.cursor != cp.Cursor {
			e.logger.DebugWithFields("Checkpoint cursor differs from file, trusting the file", map[string]interface{}{
				"file_cursor":       e.cursor,
				"checkpoint_cursor": cp.Cursor,
			})
		}
	} else {
		e.cursor = cp.Cursor
	}
	e.tracker.SetExportedCount(len(loaded))

	return nil
}

// fetchChannelInfo retrieves channel metadata with the usual retry handling
func (e *Exporter) fetchChannelInfo(ctx context.Context, channelID string) (*discord.Channel, error) {
	e.logger.DebugWithFields("Fetching channel info", map[string]interface{}{
		"channel_id": channelID,
	})

	var channel *discord.Channel
	err := e.callAPI(ctx, func() error {
		var err error
		channel, err = e.client.FetchChannel(ctx, channelID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return channel, nil
}

// fetchPage retrieves one page of messages older than the cursor
func (e *Exporter) fetchPage(ctx context.Context, before string) ([]discord.Message, error) {
	var page []discord.Message
	err := e.callAPI(ctx, func() error {
		e.requests++
		var err error
		page, err = e.client.FetchMessages(ctx, e.channelID, before)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// callAPI runs one API operation, waiting out rate limits and retrying
// transient failures. Rate limit waits honor the server's Retry-After and
// never consume the retry budget; transient failures are bounded by
// max_retries. Auth, not-found and parsing errors return immediately.
func (e *Exporter) callAPI(ctx context.Context, op func() error) error {
	retries := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op()
		if err == nil {
			e.pacer.RecordSuccess()
			return nil
		}

		// A failure after cancellation is the shutdown, not the server
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var apiErr *errors.Error
		if !stderrors.As(err, &apiErr) {
			return err
		}

		switch apiErr.Type {
		case errors.ErrorTypeRateLimit:
			wait := apiErr.RetryAfter
			if wait <= 0 {
				wait = e.config.RateLimit.DefaultRetryAfter
			}
			e.pacer.RecordFailure()
			logger.LogRateLimit(e.channelID, wait)
			if e.config.Notifications.Enabled && e.config.Notifications.OnRateLimit {
				e.notifier.SendNotification("RATE LIMIT", fmt.Sprintf("Waiting %s before retrying", wait))
			} else {
				ui.PrintWarning(fmt.Sprintf("\n[RATE LIMITED - WAITING %s]", wait))
			}
			if err := retry.Wait(ctx, wait); err != nil {
				return err
			}

		case errors.ErrorTypeNetwork, errors.ErrorTypeServerError:
			retries++
			if retries > e.config.Retry.MaxRetries {
				e.logger.ErrorWithFields("Retry budget exhausted", map[string]interface{}{
					"channel_id": e.channelID,
					"retries":    retries - 1,
					"error":      err.Error(),
				})
				return fmt.Errorf("max retries (%d) exceeded: %w", e.config.Retry.MaxRetries, err)
			}
			delay := e.backoff.GetBackoffForError(apiErr.Type).NextDelay(retries)
			e.logger.WarnWithFields("Transient error, backing off", map[string]interface{}{
				"channel_id": e.channelID,
				"attempt":    retries,
				"delay_ms":   delay.Milliseconds(),
				"error":      err.Error(),
			})
			if err := retry.Wait(ctx, delay); err != nil {
				return err
			}

		default:
			// Auth, parsing, not found and unknown errors are fatal
			return err
		}
	}
}

// flush writes the full in-memory archive to the output file
func (e *Exporter) flush() error {
	if err := e.storageManager.Save(e.outputFile, e.messages); err != nil {
		return err
	}
	e.tracker.ResetInterval()
	logger.LogFlush(e.storageManager.Path(e.outputFile), len(e.messages))
	return nil
}

// updateCheckpoint records the flushed state; failures are logged, not fatal
func (e *Exporter) updateCheckpoint(cp *checkpoint.Checkpoint) {
	if cp == nil || e.checkpointMgr == nil {
		return
	}
	if err := e.checkpointMgr.UpdateProgress(cp, e.cursor, e.pages, len(e.messages)); err != nil {
		e.logger.WithError(err).Warn("Failed to update checkpoint progress")
	}
}

// beginShutdown marks the run as interrupted and moves to the stopping state
func (e *Exporter) beginShutdown() {
	if e.interrupted {
		return
	}
	e.interrupted = true
	e.setState(StateStopping)
	e.logger.InfoWithFields("Shutdown requested, stopping export", map[string]interface{}{
		"channel_id": e.channelID,
		"total":      len(e.messages),
	})
	if !ui.IsQuietMode() {
		fmt.Printf("\n%s Stopping, flushing %d messages to disk...\n", ui.Yellow("■"), len(e.messages))
	}
}

// finalize flushes the accumulated archive and settles the checkpoint.
// It runs on every exit path of the fetch loop, including interrupts, so
// the run's context is deliberately not used here.
func (e *Exporter) finalize(cp *checkpoint.Checkpoint) error {
	e.setState(StateFlushing)

	flushErr := retry.Do(func() error {
		return e.flush()
	}, &retry.Config{
		MaxAttempts: finalFlushAttempts,
		Backoff: &retry.LinearBackoff{
			BaseDelay: finalFlushDelay,
			Increment: finalFlushDelay,
			MaxDelay:  finalFlushAttempts * finalFlushDelay,
		},
		RetryIf:     func(error) bool { return true },
		Context:     context.Background(),
		Logger:      e.logger,
	})

	if flushErr != nil {
		e.logger.WithError(flushErr).Error("Final flush failed")
	}

	if e.completed {
		if e.checkpointMgr != nil && e.checkpointMgr.Exists() {
			if err := e.checkpointMgr.Delete(); err != nil {
				e.logger.WithError(err).Warn("Failed to delete checkpoint")
			} else {
				e.logger.Info("Checkpoint deleted after successful completion")
			}
		}
	} else if flushErr == nil {
		// The checkpoint must describe exactly what the file holds
		e.updateCheckpoint(cp)
	}

	e.setState(StateTerminated)
	return flushErr
}
