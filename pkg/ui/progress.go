package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// StatusTracker keeps track of export progress
type StatusTracker struct {
	TotalExported   int
	CurrentInterval int
	SaveInterval    int
	PagesFetched    int
	StartTime       time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker(saveInterval int) *StatusTracker {
	return &StatusTracker{
		SaveInterval: saveInterval,
		StartTime:    time.Now(),
	}
}

// AddMessages records newly fetched messages against the total and the
// current flush interval
func (st *StatusTracker) AddMessages(count int) {
	st.TotalExported += count
	st.CurrentInterval += count
}

// IncrementPages increments the fetched page counter
func (st *StatusTracker) IncrementPages() {
	st.PagesFetched++
}

// ResetInterval resets the flush interval counter after a save
func (st *StatusTracker) ResetInterval() {
	st.CurrentInterval = 0
}

// GetIntervalProgress returns a formatted progress bar toward the next flush
func (st *StatusTracker) GetIntervalProgress() string {
	const width = 20
	interval := st.SaveInterval
	if interval <= 0 {
		interval = 1
	}
	progress := float64(st.CurrentInterval) / float64(interval)
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, width-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, st.CurrentInterval, interval)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// GetExportRate returns the average export rate (messages per minute)
func (st *StatusTracker) GetExportRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.TotalExported) / elapsed
}

// PrintProgress prints the current progress status
func (st *StatusTracker) PrintProgress() {
	if IsQuietMode() {
		return
	}
	fmt.Printf("\r%s Total: %d | Next flush: %s",
		Green("[EXPORTED]"),
		st.TotalExported,
		st.GetIntervalProgress())
}

// PrintPageStatus prints the current page fetch status
func (st *StatusTracker) PrintPageStatus() {
	if IsQuietMode() {
		return
	}
	fmt.Printf("\n%s page %d %s\n", Magenta("[FETCHING]"), st.PagesFetched+1, Yellow(st.GetIntervalProgress()))
}

// NeedsFlush checks if the current interval has reached the save threshold
func (st *StatusTracker) NeedsFlush() bool {
	return st.SaveInterval > 0 && st.CurrentInterval >= st.SaveInterval
}

// GetExportedCount returns the total number of exported messages
func (st *StatusTracker) GetExportedCount() int {
	return st.TotalExported
}

// SetExportedCount sets the total exported count (used for resuming)
func (st *StatusTracker) SetExportedCount(count int) {
	st.TotalExported = count
}
