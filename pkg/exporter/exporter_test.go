package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"dcexport/pkg/checkpoint"
	"dcexport/pkg/config"
	"dcexport/pkg/discord"
	"dcexport/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChannelID = "123456789012345678"

// testConfig returns a configuration tuned for fast tests
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	// Keep checkpoints away from the real data directory
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg := config.DefaultConfig()
	cfg.Discord.Token = "test_token"
	cfg.Output.Directory = t.TempDir()
	cfg.RateLimit.InitialDelay = time.Millisecond
	cfg.RateLimit.MinDelay = time.Millisecond
	cfg.RateLimit.MaxDelay = 5 * time.Millisecond
	cfg.RateLimit.DefaultRetryAfter = 2 * time.Millisecond
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxBackoff = 5 * time.Millisecond
	cfg.Retry.JitterFactor = 0
	return cfg
}

// msgID formats a numeric ID as a fixed-width snowflake-style string so
// lexicographic order matches numeric order
func msgID(n int) string {
	return fmt.Sprintf("%018d", n)
}

// makeMessages builds one page of messages with descending IDs starting at
// newest, the order the API returns them in
func makeMessages(newest, count int) []discord.Message {
	msgs := make([]discord.Message, 0, count)
	for i := 0; i < count; i++ {
		id := msgID(newest - i)
		raw := fmt.Sprintf(`{"id":"%s","content":"message %d"}`, id, newest-i)
		msgs = append(msgs, discord.NewMessage(id, json.RawMessage(raw)))
	}
	return msgs
}

// pagedHistory serves a scripted message history keyed by the before cursor,
// the way the real API pages backward through a channel
type pagedHistory struct {
	pages map[string][]discord.Message
	calls int
}

func newPagedHistory(pages ...[]discord.Message) *pagedHistory {
	h := &pagedHistory{pages: make(map[string][]discord.Message)}
	cursor := ""
	for _, p := range pages {
		h.pages[cursor] = p
		if len(p) > 0 {
			cursor = p[len(p)-1].ID
		}
	}
	// Requesting past the oldest message yields an empty page
	h.pages[cursor] = nil
	return h
}

func (h *pagedHistory) fetch(ctx context.Context, channelID, before string) ([]discord.Message, error) {
	h.calls++
	page, ok := h.pages[before]
	if !ok {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("no scripted page for cursor %q", before),
		}
	}
	return page, nil
}

// mockFetcher is a scripted implementation of MessageFetcher
type mockFetcher struct {
	fetchChannel  func(ctx context.Context, channelID string) (*discord.Channel, error)
	fetchMessages func(ctx context.Context, channelID, before string) ([]discord.Message, error)
}

func (m *mockFetcher) FetchChannel(ctx context.Context, channelID string) (*discord.Channel, error) {
	if m.fetchChannel != nil {
		return m.fetchChannel(ctx, channelID)
	}
	return &discord.Channel{ID: channelID, Name: "general"}, nil
}

func (m *mockFetcher) FetchMessages(ctx context.Context, channelID, before string) ([]discord.Message, error) {
	if m.fetchMessages != nil {
		return m.fetchMessages(ctx, channelID, before)
	}
	return nil, nil
}

// readArchive decodes the archive file into the message IDs it holds
func readArchive(t *testing.T, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var msgs []discord.Message
	require.NoError(t, json.Unmarshal(data, &msgs))

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)

	exp, err := New(cfg)
	require.NoError(t, err)
	assert.NotNil(t, exp.client)
	assert.NotNil(t, exp.storageManager)
	assert.NotNil(t, exp.pacer)
	assert.NotNil(t, exp.tracker)
	assert.NotNil(t, exp.notifier)
	assert.NotNil(t, exp.backoff)
	assert.Equal(t, cfg, exp.config)
	assert.Equal(t, StateIdle, exp.State())
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateIdle, "idle"},
		{StateRunning, "running"},
		{StateStopping, "stopping"},
		{StateFlushing, "flushing"},
		{StateTerminated, "terminated"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.state.String())
	}
}

func TestExportChannelFullHistory(t *testing.T) {
	cfg := testConfig(t)
	exp, err := New(cfg)
	require.NoError(t, err)

	history := newPagedHistory(
		makeMessages(200, 50),
		makeMessages(150, 50),
		makeMessages(100, 13),
	)
	exp.client = &mockFetcher{fetchMessages: history.fetch}

	err = exp.ExportChannel(context.Background(), testChannelID)
	require.NoError(t, err)

	assert.Equal(t, 113, exp.GetTotalExported())
	assert.Equal(t, 3, exp.GetPagesFetched())
	// Three pages plus the empty page that ends the export
	assert.Equal(t, 4, exp.GetRequestCount())
	assert.False(t, exp.WasInterrupted())
	assert.Equal(t, StateTerminated, exp.State())

	ids := readArchive(t, exp.OutputPath())
	require.Len(t, ids, 113)
	assert.Equal(t, msgID(200), ids[0])
	assert.Equal(t, msgID(88), ids[len(ids)-1])
	assert.True(t, sort.SliceIsSorted(ids, func(i, j int) bool { return ids[i] > ids[j] }),
		"archive must run newest to oldest")

	// Checkpoint is removed after a completed export
	mgr, err := checkpoint.NewManager(testChannelID)
	require.NoError(t, err)
	assert.False(t, mgr.Exists())
}

func TestExportChannelEmptyChannel(t *testing.T) {
	cfg := testConfig(t)
	exp, err := New(cfg)
	require.NoError(t, err)

	history := newPagedHistory()
	exp.client = &mockFetcher{fetchMessages: history.fetch}

	err = exp.ExportChannel(context.Background(), testChannelID)
	require.NoError(t, err)

	assert.Equal(t, 0, exp.GetTotalExported())
	assert.Equal(t, 1, exp.GetRequestCount())

	// An empty channel still produces a valid, empty archive
	data, err := os.ReadFile(exp.OutputPath())
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(data)))
}

func TestExportChannelInvalidID(t *testing.T) {
	cfg := testConfig(t)
	exp, err := New(cfg)
	require.NoError(t, err)

	for _, id := range []string{"", "general", "1234", "1234567890123456789012345"} {
		err := exp.ExportChannel(context.Background(), id)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid channel ID")
	}
}

func TestExportChannelRateLimit(t *testing.T) {
	cfg := testConfig(t)
	exp, err := New(cfg)
	require.NoError(t, err)

	history := newPagedHistory(
		makeMessages(200, 50),
		makeMessages(150, 13),
	)
	rateLimited := false
	exp.client = &mockFetcher{
		fetchMessages: func(ctx context.Context, channelID, before string) ([]discord.Message, error) {
			if before == msgID(151) && !rateLimited {
				rateLimited = true
				return nil, &errors.Error{
					Type:       errors.ErrorTypeRateLimit,
					Message:    "You are being rate limited.",
					Code:       429,
					RetryAfter: 2 * time.Millisecond,
				}
			}
			return history.fetch(ctx, channelID, before)
		},
	}

	err = exp.ExportChannel(context.Background(), testChannelID)
	require.NoError(t, err)

	assert.True(t, rateLimited, "rate limit response was never served")
	assert.Equal(t, 63, exp.GetTotalExported())
	assert.Equal(t, 2, exp.GetPagesFetched())
	// Page one, the throttled attempt, its repeat, and the empty page
	assert.Equal(t, 4, exp.GetRequestCount())

	// The repeated request used the same cursor, so nothing was skipped
	// or duplicated
	ids := readArchive(t, exp.OutputPath())
	require.Len(t, ids, 63)
	assert.Equal(t, msgID(138), ids[len(ids)-1])
}

func TestExportChannelTransientRetry(t *testing.T) {
	cfg := testConfig(t)
	cfg.Retry.MaxRetries = 3
	exp, err := New(cfg)
	require.NoError(t, err)

	history := newPagedHistory(makeMessages(100, 13))
	failures := 0
	exp.client = &mockFetcher{
		fetchMessages: func(ctx context.Context, channelID, before string) ([]discord.Message, error) {
			if before == "" && failures < 2 {
				failures++
				return nil, &errors.Error{Type: errors.ErrorTypeNetwork, Message: "connection reset"}
			}
			return history.fetch(ctx, channelID, before)
		},
	}

	err = exp.ExportChannel(context.Background(), testChannelID)
	require.NoError(t, err)

	assert.Equal(t, 2, failures)
	assert.Equal(t, 13, exp.GetTotalExported())
	// Two failed attempts, the successful fetch, and the empty page
	assert.Equal(t, 4, exp.GetRequestCount())
}

func TestExportChannelRetryBudgetExhausted(t *testing.T) {
	cfg := testConfig(t)
	cfg.Retry.MaxRetries = 2
	exp, err := New(cfg)
	require.NoError(t, err)

	history := newPagedHistory(makeMessages(200, 50))
	exp.client = &mockFetcher{
		fetchMessages: func(ctx context.Context, channelID, before string) ([]discord.Message, error) {
			if before == msgID(151) {
				return nil, &errors.Error{Type: errors.ErrorTypeServerError, Message: "bad gateway", Code: 502}
			}
			return history.fetch(ctx, channelID, before)
		},
	}

	err = exp.ExportChannel(context.Background(), testChannelID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries (2) exceeded")
	assert.Equal(t, StateTerminated, exp.State())
	// Page one, then the first attempt at page two and its two retries
	assert.Equal(t, 4, exp.GetRequestCount())

	// Everything fetched before the failure reached disk
	ids := readArchive(t, exp.OutputPath())
	assert.Len(t, ids, 50)

	// The checkpoint survives a failed run and matches the file
	mgr, err := checkpoint.NewManager(testChannelID)
	require.NoError(t, err)
	require.True(t, mgr.Exists())
	cp, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, msgID(151), cp.Cursor)
	assert.Equal(t, 50, cp.TotalFetched)
}

func TestExportChannelFatalAuth(t *testing.T) {
	cfg := testConfig(t)
	exp, err := New(cfg)
	require.NoError(t, err)

	history := newPagedHistory(
		makeMessages(200, 50),
		makeMessages(150, 50),
	)
	exp.client = &mockFetcher{
		fetchMessages: func(ctx context.Context, channelID, before string) ([]discord.Message, error) {
			if before == msgID(101) {
				return nil, &errors.Error{Type: errors.ErrorTypeAuth, Message: "401: Unauthorized", Code: 401}
			}
			return history.fetch(ctx, channelID, before)
		},
	}

	err = exp.ExportChannel(context.Background(), testChannelID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth")
	// Auth errors are not retried
	assert.Equal(t, 3, exp.GetRequestCount())

	// Both fetched pages reached disk before the run aborted
	ids := readArchive(t, exp.OutputPath())
	assert.Len(t, ids, 100)
}

func TestExportChannelInterrupt(t *testing.T) {
	cfg := testConfig(t)
	exp, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	history := newPagedHistory(
		makeMessages(200, 50),
		makeMessages(150, 50),
		makeMessages(100, 13),
	)
	exp.client = &mockFetcher{
		fetchMessages: func(fctx context.Context, channelID, before string) ([]discord.Message, error) {
			if before == msgID(101) {
				// The signal lands while the third page is in flight
				cancel()
			}
			return history.fetch(fctx, channelID, before)
		},
	}

	err = exp.ExportChannel(ctx, testChannelID)
	require.NoError(t, err, "a clean interrupt is not an error")

	assert.True(t, exp.WasInterrupted())
	assert.Equal(t, StateTerminated, exp.State())
	assert.Equal(t, 113, exp.GetTotalExported())

	// The file matches memory exactly at termination
	ids := readArchive(t, exp.OutputPath())
	assert.Len(t, ids, exp.GetTotalExported())
}

func TestExportChannelInterruptBeforeStart(t *testing.T) {
	cfg := testConfig(t)
	exp, err := New(cfg)
	require.NoError(t, err)

	history := newPagedHistory(makeMessages(200, 50))
	exp.client = &mockFetcher{fetchMessages: history.fetch}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = exp.ExportChannel(ctx, testChannelID)
	require.NoError(t, err)
	assert.True(t, exp.WasInterrupted())
	assert.Equal(t, 0, history.calls)

	// Nothing was written
	_, statErr := os.Stat(exp.OutputPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestExportChannelCheckpointRefusal(t *testing.T) {
	cfg := testConfig(t)

	mgr, err := checkpoint.NewManager(testChannelID)
	require.NoError(t, err)
	cp, err := mgr.Create(testChannelID, "general", testChannelID+".json")
	require.NoError(t, err)
	require.NoError(t, mgr.UpdateProgress(cp, msgID(151), 1, 50))

	exp, err := New(cfg)
	require.NoError(t, err)
	history := newPagedHistory(makeMessages(200, 50))
	exp.client = &mockFetcher{fetchMessages: history.fetch}

	err = exp.ExportChannel(context.Background(), testChannelID)
	require.Error(t, err)
	assert.EqualError(t, err, "checkpoint exists - use --resume to continue or --force-restart to start fresh")
	assert.Equal(t, 0, history.calls, "no requests are made when the run is refused")
	assert.True(t, mgr.Exists(), "refusal must not disturb the checkpoint")
}

func TestExportChannelResume(t *testing.T) {
	cfg := testConfig(t)

	fullHistory := func() *pagedHistory {
		return newPagedHistory(
			makeMessages(200, 50),
			makeMessages(150, 50),
			makeMessages(100, 13),
		)
	}

	// First run is interrupted after the opening page
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := New(cfg)
	require.NoError(t, err)
	h1 := fullHistory()
	first.client = &mockFetcher{
		fetchMessages: func(fctx context.Context, channelID, before string) ([]discord.Message, error) {
			if before == msgID(151) {
				cancel()
				return nil, fctx.Err()
			}
			return h1.fetch(fctx, channelID, before)
		},
	}

	err = first.ExportChannelWithResume(ctx, testChannelID, false, false)
	require.NoError(t, err)
	require.True(t, first.WasInterrupted())
	require.Len(t, readArchive(t, first.OutputPath()), 50)

	// Second run picks up from the interrupted state
	second, err := New(cfg)
	require.NoError(t, err)
	h2 := fullHistory()
	second.client = &mockFetcher{fetchMessages: h2.fetch}

	err = second.ExportChannelWithResume(context.Background(), testChannelID, true, false)
	require.NoError(t, err)

	// The finished archive is identical to an uninterrupted export
	assert.Equal(t, 113, second.GetTotalExported())
	assert.Equal(t, 3, second.GetRequestCount())
	ids := readArchive(t, second.OutputPath())
	require.Len(t, ids, 113)
	assert.Equal(t, msgID(200), ids[0])
	assert.Equal(t, msgID(88), ids[len(ids)-1])
	assert.True(t, sort.SliceIsSorted(ids, func(i, j int) bool { return ids[i] > ids[j] }))

	// Completion clears the checkpoint
	mgr, err := checkpoint.NewManager(testChannelID)
	require.NoError(t, err)
	assert.False(t, mgr.Exists())
}

func TestExportChannelForceRestart(t *testing.T) {
	cfg := testConfig(t)

	mgr, err := checkpoint.NewManager(testChannelID)
	require.NoError(t, err)
	cp, err := mgr.Create(testChannelID, "general", testChannelID+".json")
	require.NoError(t, err)
	require.NoError(t, mgr.UpdateProgress(cp, msgID(151), 1, 50))

	exp, err := New(cfg)
	require.NoError(t, err)
	history := newPagedHistory(
		makeMessages(200, 50),
		makeMessages(150, 13),
	)
	exp.client = &mockFetcher{fetchMessages: history.fetch}

	err = exp.ExportChannelWithResume(context.Background(), testChannelID, false, true)
	require.NoError(t, err)

	// The export started over from the newest message
	assert.Equal(t, 63, exp.GetTotalExported())
	ids := readArchive(t, exp.OutputPath())
	require.Len(t, ids, 63)
	assert.Equal(t, msgID(200), ids[0])
	assert.False(t, mgr.Exists())
}

func TestExportChannelResumeChannelMismatch(t *testing.T) {
	cfg := testConfig(t)

	// A checkpoint keyed to this channel but recording another one
	mgr, err := checkpoint.NewManager(testChannelID)
	require.NoError(t, err)
	_, err = mgr.Create("999999999999999999", "other", "999999999999999999.json")
	require.NoError(t, err)

	exp, err := New(cfg)
	require.NoError(t, err)
	exp.client = &mockFetcher{}

	err = exp.ExportChannelWithResume(context.Background(), testChannelID, true, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkpoint belongs to channel")
}

func BenchmarkExportChannel(b *testing.B) {
	b.Setenv("XDG_DATA_HOME", b.TempDir())

	cfg := config.DefaultConfig()
	cfg.Discord.Token = "bench_token"
	cfg.Output.Directory = b.TempDir()
	cfg.RateLimit.InitialDelay = time.Microsecond
	cfg.RateLimit.MinDelay = time.Microsecond
	cfg.RateLimit.MaxDelay = time.Microsecond
	cfg.Retry.JitterFactor = 0

	pages := [][]discord.Message{
		makeMessages(300, 100),
		makeMessages(200, 100),
		makeMessages(100, 100),
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		exp, _ := New(cfg)
		h := newPagedHistory(pages...)
		exp.client = &mockFetcher{fetchMessages: h.fetch}
		_ = exp.ExportChannel(context.Background(), testChannelID)
	}
}
