package integration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dcexport/pkg/checkpoint"
	"dcexport/pkg/config"
	"dcexport/pkg/discord"
	"dcexport/pkg/logger"
)

// testToken is the token the mock server accepts. It only needs to look
// like a real one.
const testToken = "MTIzNDU2Nzg5MDEyMzQ1Njc4.G4rYQk.dGVzdC10b2tlbi1mb3ItaW50ZWdyYXRpb24"

// TestHelper provides common test utilities
type TestHelper struct {
	t          *testing.T
	mockServer *MockDiscordServer
	tempDir    string
}

// NewTestHelper creates a new test helper with an isolated data directory
// so checkpoints never leak between tests
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	return &TestHelper{
		t:       t,
		tempDir: t.TempDir(),
	}
}

// SetupMockServer starts the mock Discord API server
func (h *TestHelper) SetupMockServer() *MockDiscordServer {
	h.mockServer = NewMockDiscordServer(testToken)
	h.t.Cleanup(h.mockServer.Close)
	return h.mockServer
}

// GetTempDir returns the temporary directory for test files
func (h *TestHelper) GetTempDir() string {
	return h.tempDir
}

// CreateTempSubDir creates a subdirectory in the temp directory
func (h *TestHelper) CreateTempSubDir(name string) string {
	dir := filepath.Join(h.tempDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		h.t.Fatalf("Failed to create temp subdir: %v", err)
	}
	return dir
}

// CreateTestLogger creates a test logger
func (h *TestHelper) CreateTestLogger() logger.Logger {
	return logger.NewTestLogger()
}

// CreateTestConfig creates a configuration pointed at the mock server,
// with pacing and backoff shrunk to keep tests fast
func (h *TestHelper) CreateTestConfig() *config.Config {
	if h.mockServer == nil {
		h.t.Fatal("SetupMockServer must be called before CreateTestConfig")
	}

	cfg := config.DefaultConfig()

	cfg.Discord.Token = testToken
	cfg.Discord.APIBaseURL = h.mockServer.GetURL()

	cfg.Export.PageSize = 50
	cfg.Export.SaveInterval = 50
	cfg.Export.RequestTimeout = 5 * time.Second

	cfg.Output.Directory = h.CreateTempSubDir("exports")

	cfg.RateLimit.InitialDelay = time.Millisecond
	cfg.RateLimit.MinDelay = time.Millisecond
	cfg.RateLimit.MaxDelay = 10 * time.Millisecond
	cfg.RateLimit.DefaultRetryAfter = 5 * time.Millisecond

	cfg.Retry.MaxRetries = 3
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxBackoff = 10 * time.Millisecond
	cfg.Retry.JitterFactor = 0

	cfg.Logging.Level = "error"

	return cfg
}

// ReadArchive reads an export file back into messages
func (h *TestHelper) ReadArchive(path string) []discord.Message {
	h.t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		h.t.Fatalf("Failed to read archive %s: %v", path, err)
	}

	var messages []discord.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		h.t.Fatalf("Failed to parse archive %s: %v", path, err)
	}
	return messages
}

// ArchiveIDs returns the message IDs of an export file in file order
func (h *TestHelper) ArchiveIDs(path string) []string {
	h.t.Helper()

	messages := h.ReadArchive(path)
	ids := make([]string, len(messages))
	for i, msg := range messages {
		ids[i] = msg.ID
	}
	return ids
}

// LoadCheckpoint loads the checkpoint for a channel, nil if none exists
func (h *TestHelper) LoadCheckpoint(channelID string) *checkpoint.Checkpoint {
	h.t.Helper()

	manager, err := checkpoint.NewManager(channelID)
	if err != nil {
		h.t.Fatalf("Failed to create checkpoint manager: %v", err)
	}

	cp, err := manager.Load()
	if err != nil {
		h.t.Fatalf("Failed to load checkpoint: %v", err)
	}
	return cp
}

// AssertFileExists checks if a file exists
func (h *TestHelper) AssertFileExists(path string) {
	h.t.Helper()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		h.t.Errorf("Expected file to exist: %s", path)
	}
}
