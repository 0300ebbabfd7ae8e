package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// Message IDs are generated with a fixed width so lexicographic order
	// matches numeric snowflake order.
	mockIDBase   = uint64(800000000000000000)
	mockIDStride = uint64(4096)
)

// MockDiscordServer simulates the Discord message API with realistic
// pagination, authentication and failure behavior.
type MockDiscordServer struct {
	server *httptest.Server
	token  string

	mu             sync.RWMutex
	channels       map[string]*mockChannel
	errorResponses map[string]*errorRule
	cursors        map[string]string // last before cursor seen per channel
	lastAuth       string
	lastUserAgent  string
	retryAfter     float64

	rateLimitPending int32
	requestCount     int32
	messageRequests  int32
	rateLimitHits    int32
}

type mockChannel struct {
	id       string
	name     string
	guildID  string
	messages []mockMessage // newest first
}

// errorRule forces a path to fail with a status code. A negative remaining
// count means it keeps failing until cleared.
type errorRule struct {
	code      int
	remaining int
}

type mockMessage struct {
	ID        string     `json:"id"`
	Type      int        `json:"type"`
	Content   string     `json:"content"`
	ChannelID string     `json:"channel_id"`
	Author    mockAuthor `json:"author"`
	Timestamp string     `json:"timestamp"`
	Pinned    bool       `json:"pinned"`
	TTS       bool       `json:"tts"`
}

type mockAuthor struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
}

// NewMockDiscordServer creates a mock API server that accepts the given
// token in the Authorization header and rejects everything else.
func NewMockDiscordServer(token string) *MockDiscordServer {
	m := &MockDiscordServer{
		token:          token,
		channels:       make(map[string]*mockChannel),
		errorResponses: make(map[string]*errorRule),
		cursors:        make(map[string]string),
		retryAfter:     0.05,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/channels/", m.handleChannels)

	m.server = httptest.NewServer(mux)
	return m
}

// SeedChannel populates a channel with the given number of generated
// messages and returns their IDs, newest first.
func (m *MockDiscordServer) SeedChannel(channelID, name string, count int) []string {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	messages := make([]mockMessage, count)
	ids := make([]string, count)
	for i := 0; i < count; i++ {
		// messages[0] is the newest, IDs descend from there
		id := fmt.Sprintf("%d", mockIDBase+uint64(count-i)*mockIDStride)
		ids[i] = id
		messages[i] = mockMessage{
			ID:        id,
			Type:      0,
			Content:   fmt.Sprintf("message %d", count-i),
			ChannelID: channelID,
			Author: mockAuthor{
				ID:            fmt.Sprintf("%d", mockIDBase+uint64(i%3)+1),
				Username:      fmt.Sprintf("user%d", i%3+1),
				Discriminator: "0",
			},
			Timestamp: base.Add(-time.Duration(i) * time.Minute).Format("2006-01-02T15:04:05.000000-07:00"),
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[channelID] = &mockChannel{
		id:       channelID,
		name:     name,
		guildID:  "700000000000000000",
		messages: messages,
	}
	return ids
}

// MessageIDs returns the seeded message IDs for a channel, newest first
func (m *MockDiscordServer) MessageIDs(channelID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ch, ok := m.channels[channelID]
	if !ok {
		return nil
	}
	ids := make([]string, len(ch.messages))
	for i, msg := range ch.messages {
		ids[i] = msg.ID
	}
	return ids
}

// handleChannels routes /channels/{id} and /channels/{id}/messages
func (m *MockDiscordServer) handleChannels(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)

	m.mu.Lock()
	m.lastAuth = r.Header.Get("Authorization")
	m.lastUserAgent = r.Header.Get("User-Agent")
	m.mu.Unlock()

	if r.Header.Get("Authorization") != m.token {
		m.sendError(w, http.StatusUnauthorized)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/channels/")
	if channelID, ok := strings.CutSuffix(rest, "/messages"); ok {
		m.handleMessages(w, r, channelID)
		return
	}
	m.handleChannelInfo(w, r, rest)
}

// handleMessages serves one page of a channel's history, newest first,
// honoring the before cursor and limit the way the real API does.
func (m *MockDiscordServer) handleMessages(w http.ResponseWriter, r *http.Request, channelID string) {
	atomic.AddInt32(&m.messageRequests, 1)

	if atomic.CompareAndSwapInt32(&m.rateLimitPending, 1, 0) {
		m.sendRateLimit(w)
		return
	}

	if code := m.consumeErrorRule(r.URL.Path); code > 0 {
		m.sendError(w, code)
		return
	}

	m.mu.Lock()
	m.cursors[channelID] = r.URL.Query().Get("before")
	ch, ok := m.channels[channelID]
	m.mu.Unlock()

	if !ok {
		m.sendError(w, http.StatusNotFound)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	before := r.URL.Query().Get("before")
	start := 0
	if before != "" {
		// Fixed width IDs, string comparison matches numeric order
		for start < len(ch.messages) && ch.messages[start].ID >= before {
			start++
		}
	}

	end := start + limit
	if end > len(ch.messages) {
		end = len(ch.messages)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ch.messages[start:end])
}

// handleChannelInfo serves channel metadata
func (m *MockDiscordServer) handleChannelInfo(w http.ResponseWriter, r *http.Request, channelID string) {
	if code := m.consumeErrorRule(r.URL.Path); code > 0 {
		m.sendError(w, code)
		return
	}

	m.mu.RLock()
	ch, ok := m.channels[channelID]
	m.mu.RUnlock()

	if !ok {
		m.sendError(w, http.StatusNotFound)
		return
	}

	lastMessageID := ""
	if len(ch.messages) > 0 {
		lastMessageID = ch.messages[0].ID
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":              ch.id,
		"type":            0,
		"name":            ch.name,
		"guild_id":        ch.guildID,
		"last_message_id": lastMessageID,
	})
}

// sendRateLimit sends a 429 with the configured Retry-After
func (m *MockDiscordServer) sendRateLimit(w http.ResponseWriter) {
	atomic.AddInt32(&m.rateLimitHits, 1)

	m.mu.RLock()
	retryAfter := m.retryAfter
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.FormatFloat(retryAfter, 'g', -1, 64))
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":     "You are being rate limited.",
		"retry_after": retryAfter,
		"global":      false,
	})
}

// sendError sends an error response shaped like the real API's
func (m *MockDiscordServer) sendError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	message := http.StatusText(code)
	switch code {
	case http.StatusUnauthorized:
		message = "401: Unauthorized"
	case http.StatusForbidden:
		message = "Missing Access"
	case http.StatusNotFound:
		message = "Unknown Channel"
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": message,
		"code":    0,
	})
}

// SetErrorResponse configures a path to fail with the given status code
// until cleared
func (m *MockDiscordServer) SetErrorResponse(path string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorResponses[path] = &errorRule{code: code, remaining: -1}
}

// SetTransientError configures a path to fail the next n requests
func (m *MockDiscordServer) SetTransientError(path string, code int, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorResponses[path] = &errorRule{code: code, remaining: n}
}

// ClearErrorResponse removes error configuration for a path
func (m *MockDiscordServer) ClearErrorResponse(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.errorResponses, path)
}

// consumeErrorRule returns the status code to fail with, or 0
func (m *MockDiscordServer) consumeErrorRule(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule, ok := m.errorResponses[path]
	if !ok {
		return 0
	}
	if rule.remaining < 0 {
		return rule.code
	}
	if rule.remaining == 0 {
		return 0
	}
	rule.remaining--
	return rule.code
}

// RateLimitNextRequest makes the next message request receive a 429
func (m *MockDiscordServer) RateLimitNextRequest() {
	atomic.StoreInt32(&m.rateLimitPending, 1)
}

// SetRetryAfter sets the Retry-After value, in seconds, served with 429s
func (m *MockDiscordServer) SetRetryAfter(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryAfter = seconds
}

// GetURL returns the base URL of the mock server
func (m *MockDiscordServer) GetURL() string {
	return m.server.URL
}

// GetRequestCount returns the total number of requests
func (m *MockDiscordServer) GetRequestCount() int {
	return int(atomic.LoadInt32(&m.requestCount))
}

// GetMessageRequestCount returns the number of message page requests,
// including ones answered with an injected failure
func (m *MockDiscordServer) GetMessageRequestCount() int {
	return int(atomic.LoadInt32(&m.messageRequests))
}

// GetRateLimitHits returns the number of rate limit responses served
func (m *MockDiscordServer) GetRateLimitHits() int {
	return int(atomic.LoadInt32(&m.rateLimitHits))
}

// LastCursor returns the last before cursor a channel was queried with
func (m *MockDiscordServer) LastCursor(channelID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cursors[channelID]
}

// LastAuthorization returns the Authorization header of the last request
func (m *MockDiscordServer) LastAuthorization() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastAuth
}

// LastUserAgent returns the User-Agent header of the last request
func (m *MockDiscordServer) LastUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUserAgent
}

// ResetCounters resets all request counters
func (m *MockDiscordServer) ResetCounters() {
	atomic.StoreInt32(&m.requestCount, 0)
	atomic.StoreInt32(&m.messageRequests, 0)
	atomic.StoreInt32(&m.rateLimitHits, 0)
	m.mu.Lock()
	m.cursors = make(map[string]string)
	m.mu.Unlock()
}

// Close shuts down the mock server
func (m *MockDiscordServer) Close() {
	m.server.Close()
}
