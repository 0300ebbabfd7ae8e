// Package storage provides archive file management for channel exports.
//
// The storage package handles:
//   - Creating and managing the output directory
//   - Writing message archives with atomic write operations
//   - Loading existing archives for resumed exports
//
// The Manager type is the primary interface for storage operations. Archives
// are JSON arrays indented with two spaces, holding each message exactly as
// the server sent it. Writes go to a temporary file in the same directory
// followed by a rename, so an interrupted write never corrupts an existing
// archive, and writing the same messages twice produces an identical file.
//
// Usage:
//
//	manager, err := storage.NewManager("exports")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Load a previous export if one exists
//	messages, err := manager.Load("123456789012345678.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Persist the accumulated messages
//	err = manager.Save("123456789012345678.json", messages)
package storage
