// Package store holds the per-user persistent domain stores (to-dos, notes,
// saved links). Records live in one JSON file per user per store type and are
// rewritten in full on every mutation — acceptable at this write volume; the
// external contract would survive an append-only log swap.
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Result reports the outcome of an update/delete operation. Zero matches is a
// reported non-fatal failure, not an error.
type Result struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Reason  string `json:"reason,omitempty"`
}

func notFound() Result {
	return Result{Success: false, Reason: "not found"}
}

func failed(err error) Result {
	return Result{Success: false, Reason: err.Error()}
}

// userLocks serializes mutations per user id. Store files are exclusively
// owned by their user, so cross-user operations never contend.
type userLocks struct {
	locks sync.Map // user id -> *sync.Mutex
}

func (u *userLocks) lock(userID string) *sync.Mutex {
	actual, _ := u.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu
}

// readRecords loads the record file for one user, treating a missing file as
// an empty store and a corrupt file as empty plus a logged diagnostic (callers
// must see "no data", never a crash).
func readRecords[T any](path string) []T {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("⚠️  [STORE] Failed to read %s: %v", path, err)
		}
		return nil
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("⚠️  [STORE] Corrupt record file %s, treating as empty: %v", path, err)
		return nil
	}
	return records
}

// writeRecords atomically replaces the record file for one user
func writeRecords[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace record file: %w", err)
	}
	return nil
}

func userFile(baseDir, userID, name string) string {
	return filepath.Join(baseDir, sanitizeID(userID), name)
}

// sanitizeID keeps user-provided ids from escaping the data directory
func sanitizeID(id string) string {
	clean := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			clean = append(clean, r)
		default:
			clean = append(clean, '_')
		}
	}
	if len(clean) == 0 {
		return "_"
	}
	return string(clean)
}
