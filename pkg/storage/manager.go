package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"dcexport/pkg/discord"
)

// Manager handles reading and writing message archives
type Manager struct {
	outputDir string
}

// NewManager creates a new storage manager
func NewManager(outputDir string) (*Manager, error) {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{outputDir: outputDir}, nil
}

// Path returns the full path an archive file name resolves to
func (m *Manager) Path(fileName string) string {
	return filepath.Join(m.outputDir, fileName)
}

// Exists reports whether an archive file is already present
func (m *Manager) Exists(fileName string) bool {
	_, err := os.Stat(m.Path(fileName))
	return err == nil
}

// Save writes the message archive atomically. The messages are written to
// a temporary file in the same directory and renamed over the target, so a
// crash mid-write never leaves a truncated archive behind. Writing the same
// messages twice produces an identical file.
func (m *Manager) Save(fileName string, messages []discord.Message) error {
	if messages == nil {
		// A nil slice would serialize as null instead of an empty array
		messages = []discord.Message{}
	}

	filename := m.Path(fileName)
	tempFile := filename + ".tmp"

	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	err = encoder.Encode(messages)
	if err == nil {
		err = out.Sync()
	}
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile) // Clean up temp file
		return fmt.Errorf("failed to write archive: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile) // Clean up temp file
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	// Atomic rename
	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile) // Clean up temp file
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// Load reads an existing archive. A missing file is not an error, it
// returns nil messages so callers can treat it as an empty export.
func (m *Manager) Load(fileName string) ([]discord.Message, error) {
	data, err := os.ReadFile(m.Path(fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	var messages []discord.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse archive %s: %w", fileName, err)
	}

	return messages, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}
