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

const todoFile = "todos.json"

// DefaultQueryLimit bounds query results when the caller does not set one
const DefaultQueryLimit = 20

// TodoStore keeps per-user to-do records on disk
type TodoStore struct {
	baseDir string
	locks   userLocks

	now func() time.Time
}

// NewTodoStore creates a to-do store rooted at baseDir
func NewTodoStore(baseDir string) *TodoStore {
	return &TodoStore{baseDir: baseDir, now: time.Now}
}

// TodoFilter narrows Query results
type TodoFilter struct {
	Status  string // "", "pending", "completed"
	Keyword string // substring match against content
	Since   time.Time
	Limit   int
}

// Create appends a new pending to-do, parsing any due-date phrase embedded in
// the free-text content (best-effort, nil due date when unparseable).
func (s *TodoStore) Create(userID, content string) (models.Todo, error) {
	mu := s.locks.lock(userID)
	defer mu.Unlock()

	now := s.now()
	todo := models.Todo{
		ID:        uuid.New().String(),
		Content:   strings.TrimSpace(content),
		Status:    models.TodoStatusPending,
		CreatedAt: now,
		DueDate:   ParseDueDate(content, now),
	}

	path := userFile(s.baseDir, userID, todoFile)
	records := readRecords[models.Todo](path)
	records = append(records, todo)
	if err := writeRecords(path, records); err != nil {
		log.Printf("❌ [TODO] Failed to save todo for user %s: %v", userID, err)
		return models.Todo{}, fmt.Errorf("failed to save todo: %w", err)
	}

	log.Printf("📝 [TODO] Created todo for user %s (due: %v)", userID, todo.DueDate)
	return todo, nil
}

// Query returns the user's to-dos matching the filter, newest-first, limited.
// Records are never physically reordered; the sort happens at query time.
func (s *TodoStore) Query(userID string, filter TodoFilter) []models.Todo {
	records := readRecords[models.Todo](userFile(s.baseDir, userID, todoFile))

	var out []models.Todo
	for _, r := range records {
		if filter.Status != "" && r.Status != filter.Status {
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

// UpdateStatus sets the status of the to-dos matched by id or — for keyword
// matches — of pending records containing the keyword. Completed records are
// never retroactively touched by keyword operations.
func (s *TodoStore) UpdateStatus(userID, idOrKeyword, newStatus string) Result {
	mu := s.locks.lock(userID)
	defer mu.Unlock()

	path := userFile(s.baseDir, userID, todoFile)
	records := readRecords[models.Todo](path)

	now := s.now()
	updated := 0
	for i := range records {
		if !matchTodo(&records[i], idOrKeyword) {
			continue
		}
		if records[i].Status == newStatus {
			continue
		}
		records[i].Status = newStatus
		if newStatus == models.TodoStatusCompleted {
			completedAt := now
			records[i].CompletedAt = &completedAt
		} else {
			records[i].CompletedAt = nil
		}
		updated++
	}

	if updated == 0 {
		return notFound()
	}
	if err := writeRecords(path, records); err != nil {
		log.Printf("❌ [TODO] Failed to update todos for user %s: %v", userID, err)
		return failed(err)
	}

	log.Printf("✅ [TODO] Updated %d todo(s) for user %s -> %s", updated, userID, newStatus)
	return Result{Success: true, Count: updated}
}

// Delete removes the to-dos matched by id or by keyword against pending
// records. Zero matches is reported, not raised.
func (s *TodoStore) Delete(userID, idOrKeyword string) Result {
	mu := s.locks.lock(userID)
	defer mu.Unlock()

	path := userFile(s.baseDir, userID, todoFile)
	records := readRecords[models.Todo](path)

	kept := records[:0]
	deleted := 0
	for i := range records {
		if matchTodo(&records[i], idOrKeyword) {
			deleted++
			continue
		}
		kept = append(kept, records[i])
	}

	if deleted == 0 {
		return notFound()
	}
	if err := writeRecords(path, kept); err != nil {
		log.Printf("❌ [TODO] Failed to delete todos for user %s: %v", userID, err)
		return failed(err)
	}

	log.Printf("🗑️  [TODO] Deleted %d todo(s) for user %s", deleted, userID)
	return Result{Success: true, Count: deleted}
}

// matchTodo matches by exact id, or by substring against pending records only
func matchTodo(t *models.Todo, idOrKeyword string) bool {
	if t.ID == idOrKeyword {
		return true
	}
	return t.IsPending() && idOrKeyword != "" && strings.Contains(t.Content, idOrKeyword)
}
