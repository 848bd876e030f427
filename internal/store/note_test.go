package store

import (
	"testing"

	"peanut/internal/models"
)

func TestNoteCreateAndQuery(t *testing.T) {
	s := NewNoteStore(t.TempDir())

	if _, err := s.Create("user-1", "原來 Go 的 map 迭代順序是隨機的", models.NoteTypeKnowledge, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Create("user-1", "這首歌真好聽", models.NoteTypeMusic, []string{"song"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	knowledge := s.Query("user-1", NoteFilter{Type: models.NoteTypeKnowledge})
	if len(knowledge) != 1 {
		t.Fatalf("Expected 1 knowledge note, got %d", len(knowledge))
	}

	all := s.Query("user-1", NoteFilter{})
	if len(all) != 2 {
		t.Errorf("Expected 2 notes, got %d", len(all))
	}

	byKeyword := s.Query("user-1", NoteFilter{Keyword: "好聽"})
	if len(byKeyword) != 1 || byKeyword[0].Type != models.NoteTypeMusic {
		t.Errorf("Expected the music note for keyword 好聽, got %+v", byKeyword)
	}
}

func TestNoteInvalidTypeFallsBack(t *testing.T) {
	s := NewNoteStore(t.TempDir())

	note, err := s.Create("user-1", "some thought", "bogus", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if note.Type != models.NoteTypeInsight {
		t.Errorf("Unknown type should fall back to insight, got %s", note.Type)
	}
}

func TestNoteDelete(t *testing.T) {
	s := NewNoteStore(t.TempDir())

	if _, err := s.Create("user-1", "learned about sqlite wal mode", models.NoteTypeKnowledge, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if res := s.Delete("user-1", "sqlite"); !res.Success || res.Count != 1 {
		t.Fatalf("Expected 1 deleted note, got %+v", res)
	}
	if res := s.Delete("user-1", "sqlite"); res.Success {
		t.Errorf("Second delete should report not found, got %+v", res)
	}
}
