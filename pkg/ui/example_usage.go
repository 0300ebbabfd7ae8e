// Package ui provides terminal UI components for the channel exporter
// This file demonstrates example usage of the UI components
package ui

/*
Example usage of the UI components:

// Terminal colors and output
ui.PrintLogo()                                    // Print ASCII logo
ui.PrintInfo("Target Channel", channelID)         // Labeled cyan info line
ui.PrintSuccess("Export completed!")              // Green success message
ui.PrintError("Failed to export", err.Error())    // Red error message
ui.PrintWarning("Rate limited, waiting %s", wait) // Yellow warning message
ui.PrintHighlight("[INITIATING EXPORT SEQUENCE]") // Magenta highlight message

// Quiet mode suppresses everything except errors
ui.SetQuietMode(true)

// Progress tracking
tracker := ui.NewStatusTracker(50)               // Flush every 50 messages
tracker.AddMessages(len(page))                   // Record a fetched page
tracker.IncrementPages()
tracker.PrintPageStatus()                        // Status line before a fetch
tracker.PrintProgress()                          // Progress bar toward the next flush
if tracker.NeedsFlush() {                        // Save interval reached
    tracker.ResetInterval()
}

// Notifications (cross-platform)
notifier := ui.NewNotifier()
notifier.SendNotification("RATE LIMIT", "Waiting 30s before continuing")
notifier.SendError("EXPORT FAILED", "Channel 123 could not be fetched")
notifier.SendSuccess("EXPORT COMPLETE", "1523 messages archived")

// Direct color usage
fmt.Printf("%s: %s\n", ui.Cyan("Channel"), ui.Yellow("general"))
fmt.Println(ui.Green("✓ Flushed"))
fmt.Println(ui.Red("✗ Failed"))
*/
