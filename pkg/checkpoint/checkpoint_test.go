package checkpoint

import (
	"os"
	"testing"
)

func TestCheckpointManager(t *testing.T) {
	// Create a temporary directory for testing
	tempDir, err := os.MkdirTemp("", "checkpoint_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	// Set environment variable to use temp directory
	os.Setenv("XDG_DATA_HOME", tempDir)
	defer os.Unsetenv("XDG_DATA_HOME")

	channelID := "123456789012345678"

	t.Run("CreateAndLoad", func(t *testing.T) {
		mgr, err := NewManager(channelID)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		// Create checkpoint
		cp, err := mgr.Create(channelID, "general", "123456789012345678.json")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		if cp.ChannelID != channelID {
			t.Errorf("Expected channel ID %s, got %s", channelID, cp.ChannelID)
		}
		if cp.ChannelName != "general" {
			t.Errorf("Expected channel name general, got %s", cp.ChannelName)
		}
		if cp.OutputFile != "123456789012345678.json" {
			t.Errorf("Expected output file recorded, got %s", cp.OutputFile)
		}
		if cp.Cursor != "" {
			t.Errorf("Expected empty initial cursor, got %s", cp.Cursor)
		}

		// Load checkpoint
		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint: %v", err)
		}
		if loaded == nil {
			t.Fatal("Expected checkpoint, got nil")
		}
		if loaded.ChannelID != channelID {
			t.Errorf("Expected loaded channel ID %s, got %s", channelID, loaded.ChannelID)
		}
	})

	t.Run("LoadMissing", func(t *testing.T) {
		mgr, err := NewManager("999999999999999999")
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Expected no error for missing checkpoint: %v", err)
		}
		if loaded != nil {
			t.Error("Expected nil checkpoint when none exists")
		}
	})

	t.Run("UpdateProgress", func(t *testing.T) {
		mgr, err := NewManager(channelID)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp, err := mgr.Create(channelID, "general", "out.json")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		// Update progress
		err = mgr.UpdateProgress(cp, "111111111111111111", 5, 487)
		if err != nil {
			t.Fatalf("Failed to update progress: %v", err)
		}

		// Verify update
		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint: %v", err)
		}
		if loaded.Cursor != "111111111111111111" {
			t.Errorf("Expected cursor 111111111111111111, got %s", loaded.Cursor)
		}
		if loaded.PagesFetched != 5 {
			t.Errorf("Expected 5 pages, got %d", loaded.PagesFetched)
		}
		if loaded.TotalFetched != 487 {
			t.Errorf("Expected 487 messages, got %d", loaded.TotalFetched)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		mgr, err := NewManager(channelID)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		_, err = mgr.Create(channelID, "general", "out.json")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		// Verify exists
		if !mgr.Exists() {
			t.Error("Expected checkpoint to exist")
		}

		// Delete
		err = mgr.Delete()
		if err != nil {
			t.Fatalf("Failed to delete checkpoint: %v", err)
		}

		// Verify deleted
		if mgr.Exists() {
			t.Error("Expected checkpoint to not exist after deletion")
		}

		// Deleting again is not an error
		if err := mgr.Delete(); err != nil {
			t.Errorf("Expected repeated delete to succeed: %v", err)
		}
	})

	t.Run("AtomicWrite", func(t *testing.T) {
		mgr, err := NewManager(channelID)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp, err := mgr.Create(channelID, "general", "out.json")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		// Simulate multiple concurrent saves
		done := make(chan bool, 10)
		for i := 0; i < 10; i++ {
			go func(n int) {
				mgr.Save(cp)
				done <- true
			}(i)
		}

		// Wait for all saves to complete
		for i := 0; i < 10; i++ {
			<-done
		}

		// Verify checkpoint is still valid
		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint after concurrent saves: %v", err)
		}
		if loaded == nil {
			t.Fatal("Checkpoint corrupted after concurrent saves")
		}
	})

	t.Run("GetCheckpointInfo", func(t *testing.T) {
		mgr, err := NewManager(channelID)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp, err := mgr.Create(channelID, "general", "out.json")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}
		if err := mgr.UpdateProgress(cp, "42", 2, 150); err != nil {
			t.Fatalf("Failed to update progress: %v", err)
		}

		info, err := mgr.GetCheckpointInfo()
		if err != nil {
			t.Fatalf("Failed to get checkpoint info: %v", err)
		}
		if info["channel_id"] != channelID {
			t.Errorf("Expected channel_id %s in info, got %v", channelID, info["channel_id"])
		}
		if info["total_fetched"] != 150 {
			t.Errorf("Expected total_fetched 150, got %v", info["total_fetched"])
		}
	})

	t.Run("BackupCheckpoint", func(t *testing.T) {
		mgr, err := NewManager(channelID)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp, err := mgr.Create(channelID, "general", "out.json")
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		// Add some data
		cp.TotalFetched = 42
		mgr.Save(cp)

		// Create backup
		err = mgr.BackupCheckpoint()
		if err != nil {
			t.Fatalf("Failed to backup checkpoint: %v", err)
		}

		// Verify backup exists
		backupPath := mgr.checkpointPath + ".backup"
		if _, err := os.Stat(backupPath); os.IsNotExist(err) {
			t.Error("Backup file not created")
		}
	})
}

func TestGetDataDirectory(t *testing.T) {
	// Test actual implementation
	dir, err := getDataDirectory()
	if err != nil {
		t.Fatalf("Failed to get data directory: %v", err)
	}

	// Verify it's a valid path
	if dir == "" {
		t.Error("Data directory is empty")
	}

	// Verify it can be created
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		t.Errorf("Cannot create data directory: %v", err)
	}
}
