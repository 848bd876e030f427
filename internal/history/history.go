// Package history keeps per-user conversation turns in an embedded SQLite
// database.
package history

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Roles of a conversation turn
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one recorded conversation turn
type Turn struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// Store wraps the history database
type Store struct {
	db *sql.DB
}

// Open opens (and initializes) the history database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// Single writer: the history store serializes through one connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	log.Println("✅ History database ready")
	return &Store{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_user_time ON history(user_id, created_at);
`

// Append records one turn for a user
func (s *Store) Append(userID, role, content string) error {
	_, err := s.db.Exec(
		`INSERT INTO history (user_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		userID, role, content, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// Recent returns the user's last n turns in chronological order
func (s *Store) Recent(userID string, n int) ([]Turn, error) {
	if n <= 0 {
		n = 10
	}

	rows, err := s.db.Query(
		`SELECT role, content, created_at FROM history
		 WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse the DESC page into chronological order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Prune deletes turns older than the retention window and returns the count
func (s *Store) Prune(olderThan time.Duration) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM history WHERE created_at < ?`,
		time.Now().UTC().Add(-olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
