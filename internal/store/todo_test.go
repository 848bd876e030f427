package store

import (
	"testing"
	"time"

	"peanut/internal/models"
)

func TestTodoLifecycle(t *testing.T) {
	s := NewTodoStore(t.TempDir())

	created, err := s.Create("user-1", "buy milk")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Status != models.TodoStatusPending {
		t.Errorf("New todo should be pending, got %s", created.Status)
	}

	pending := s.Query("user-1", TodoFilter{Status: models.TodoStatusPending})
	if len(pending) != 1 || pending[0].Content != "buy milk" {
		t.Fatalf("Expected the new todo in pending query, got %+v", pending)
	}

	res := s.UpdateStatus("user-1", "milk", models.TodoStatusCompleted)
	if !res.Success || res.Count != 1 {
		t.Fatalf("Expected 1 updated todo, got %+v", res)
	}

	pending = s.Query("user-1", TodoFilter{Status: models.TodoStatusPending})
	if len(pending) != 0 {
		t.Errorf("Completed todo should leave the pending query, got %+v", pending)
	}

	completed := s.Query("user-1", TodoFilter{Status: models.TodoStatusCompleted})
	if len(completed) != 1 {
		t.Fatalf("Expected the todo in completed query, got %+v", completed)
	}
	if completed[0].CompletedAt == nil {
		t.Error("Completed todo should carry a completion timestamp")
	}
}

func TestTodoKeywordIgnoresCompleted(t *testing.T) {
	s := NewTodoStore(t.TempDir())

	if _, err := s.Create("user-1", "buy milk"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if res := s.UpdateStatus("user-1", "milk", models.TodoStatusCompleted); !res.Success {
		t.Fatalf("Update failed: %+v", res)
	}

	// Keyword operations only see pending records
	res := s.UpdateStatus("user-1", "milk", models.TodoStatusCompleted)
	if res.Success {
		t.Errorf("Completed records must not match keyword updates, got %+v", res)
	}
	if res.Reason != "not found" {
		t.Errorf("Expected reason %q, got %q", "not found", res.Reason)
	}
}

func TestTodoUpdateNoMatchIsNonFatal(t *testing.T) {
	s := NewTodoStore(t.TempDir())

	res := s.UpdateStatus("user-1", "nothing", models.TodoStatusCompleted)
	if res.Success {
		t.Error("Zero matches must report failure")
	}
	if res.Reason != "not found" {
		t.Errorf("Expected reason %q, got %q", "not found", res.Reason)
	}
}

func TestTodoQueryNewestFirst(t *testing.T) {
	s := NewTodoStore(t.TempDir())
	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, content := range []string{"first", "second", "third"} {
		if _, err := s.Create("user-1", content); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	todos := s.Query("user-1", TodoFilter{})
	if len(todos) != 3 {
		t.Fatalf("Expected 3 todos, got %d", len(todos))
	}
	if todos[0].Content != "third" || todos[2].Content != "first" {
		t.Errorf("Expected newest-first order, got %v, %v, %v", todos[0].Content, todos[1].Content, todos[2].Content)
	}
}

func TestTodoQueryLimit(t *testing.T) {
	s := NewTodoStore(t.TempDir())

	for i := 0; i < 5; i++ {
		if _, err := s.Create("user-1", "task"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	todos := s.Query("user-1", TodoFilter{Limit: 2})
	if len(todos) != 2 {
		t.Errorf("Expected limit of 2, got %d", len(todos))
	}
}

func TestTodoDelete(t *testing.T) {
	s := NewTodoStore(t.TempDir())

	if _, err := s.Create("user-1", "buy milk"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Create("user-1", "walk the dog"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	res := s.Delete("user-1", "milk")
	if !res.Success || res.Count != 1 {
		t.Fatalf("Expected 1 deleted todo, got %+v", res)
	}
	if remaining := s.Query("user-1", TodoFilter{}); len(remaining) != 1 {
		t.Errorf("Expected 1 remaining todo, got %d", len(remaining))
	}
}

func TestTodoStoresArePerUser(t *testing.T) {
	s := NewTodoStore(t.TempDir())

	if _, err := s.Create("user-1", "buy milk"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if todos := s.Query("user-2", TodoFilter{}); len(todos) != 0 {
		t.Errorf("User stores must be isolated, got %+v", todos)
	}
}

func TestTodoCreateParsesDueDate(t *testing.T) {
	s := NewTodoStore(t.TempDir())
	now := time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	created, err := s.Create("user-1", "明天要開會")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.DueDate == nil {
		t.Fatal("Expected a parsed due date for 明天")
	}
	want := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if !created.DueDate.Equal(want) {
		t.Errorf("Expected due date %v, got %v", want, created.DueDate)
	}
}
