package store

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"peanut/internal/models"
)

const noteFile = "notes.json"

// NoteStore keeps per-user saved-content records on disk. Notes are immutable
// after creation except for deletion.
type NoteStore struct {
	baseDir string
	locks   userLocks

	now func() time.Time
}

// NewNoteStore creates a note store rooted at baseDir
func NewNoteStore(baseDir string) *NoteStore {
	return &NoteStore{baseDir: baseDir, now: time.Now}
}

// NoteFilter narrows Query results
type NoteFilter struct {
	Type    string
	Keyword string
	Since   time.Time
	Limit   int
}

// Create saves a classified personal record
func (s *NoteStore) Create(userID, content, noteType string, tags []string) (models.Note, error) {
	if !models.ValidNoteType(noteType) {
		noteType = models.NoteTypeInsight
	}

	mu := s.locks.lock(userID)
	defer mu.Unlock()

	note := models.Note{
		ID:        uuid.New().String(),
		Content:   strings.TrimSpace(content),
		Type:      noteType,
		Tags:      tags,
		CreatedAt: s.now(),
	}

	path := userFile(s.baseDir, userID, noteFile)
	records := readRecords[models.Note](path)
	records = append(records, note)
	if err := writeRecords(path, records); err != nil {
		log.Printf("❌ [NOTE] Failed to save note for user %s: %v", userID, err)
		return models.Note{}, fmt.Errorf("failed to save note: %w", err)
	}

	log.Printf("💾 [NOTE] Saved %s note for user %s", noteType, userID)
	return note, nil
}

// Query returns the user's notes matching the filter, newest-first, limited
func (s *NoteStore) Query(userID string, filter NoteFilter) []models.Note {
	records := readRecords[models.Note](userFile(s.baseDir, userID, noteFile))

	var out []models.Note
	for _, r := range records {
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(r.Content, filter.Keyword) {
			continue
		}
		if !filter.Since.IsZero() && r.CreatedAt.Before(filter.Since) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Delete removes notes matched by exact id or content keyword
func (s *NoteStore) Delete(userID, idOrKeyword string) Result {
	mu := s.locks.lock(userID)
	defer mu.Unlock()

	path := userFile(s.baseDir, userID, noteFile)
	records := readRecords[models.Note](path)

	kept := records[:0]
	deleted := 0
	for _, r := range records {
		if r.ID == idOrKeyword || (idOrKeyword != "" && strings.Contains(r.Content, idOrKeyword)) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}

	if deleted == 0 {
		return notFound()
	}
	if err := writeRecords(path, kept); err != nil {
		log.Printf("❌ [NOTE] Failed to delete notes for user %s: %v", userID, err)
		return failed(err)
	}

	log.Printf("🗑️  [NOTE] Deleted %d note(s) for user %s", deleted, userID)
	return Result{Success: true, Count: deleted}
}
