package models

import "time"

// Note content types
const (
	NoteTypeInsight   = "insight"
	NoteTypeKnowledge = "knowledge"
	NoteTypeMemory    = "memory"
	NoteTypeMusic     = "music"
	NoteTypeLife      = "life"
)

// Note is a classified personal record saved by a user.
// Notes are immutable after creation except for deletion.
type Note struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Type      string            `json:"type"` // insight, knowledge, memory, music, life
	Tags      []string          `json:"tags,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ValidNoteType reports whether t is one of the known note content types
func ValidNoteType(t string) bool {
	switch t {
	case NoteTypeInsight, NoteTypeKnowledge, NoteTypeMemory, NoteTypeMusic, NoteTypeLife:
		return true
	}
	return false
}
