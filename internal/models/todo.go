package models

import "time"

// Todo status values
const (
	TodoStatusPending   = "pending"
	TodoStatusCompleted = "completed"
)

// Todo represents one actionable item for a user
type Todo struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	Status      string     `json:"status"` // "pending" or "completed"
	CreatedAt   time.Time  `json:"created_at"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsPending returns true if the todo has not been completed yet
func (t *Todo) IsPending() bool {
	return t.Status == TodoStatusPending
}
