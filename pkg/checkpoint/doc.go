// Package checkpoint provides functionality for saving and resuming export progress.
//
// The checkpoint system allows an export to continue after interruptions
// such as network failures, rate limits, or manual stops. It tracks:
//   - The pagination cursor (oldest message already written to the archive)
//   - Pages and messages fetched so far
//   - The output file the progress belongs to
//
// Checkpoints are stored in platform-specific data directories:
//   - Linux: ~/.local/share/dcexport/checkpoints/
//   - macOS: ~/Library/Application Support/dcexport/checkpoints/
//   - Windows: %APPDATA%/dcexport/checkpoints/
//
// The checkpoint files are saved atomically to prevent corruption and include
// versioning for future compatibility.
package checkpoint
