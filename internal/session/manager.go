// Package session tracks, per user, whether a multi-turn conversation is
// currently open. While a session is active every message from that user is
// treated as assistant-directed even without a wake word.
package session

import (
	"log"
	"sync"
	"time"
)

// DefaultIdleTimeout is how long a conversation stays open without activity
const DefaultIdleTimeout = 300 * time.Second

// Manager is the per-user conversation state machine. Each user is either Idle
// (no entry) or Active (entry present). Timeout is evaluated lazily on the next
// access, not by a background timer.
type Manager struct {
	idleTimeout time.Duration
	entries     map[string]time.Time // user id -> last activity
	mu          sync.Mutex
}

// NewManager creates a session manager. A non-positive idleTimeout falls back
// to the default.
func NewManager(idleTimeout time.Duration) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Manager{
		idleTimeout: idleTimeout,
		entries:     make(map[string]time.Time),
	}
}

// Touch opens the user's session or refreshes an open one
func (m *Manager) Touch(userID string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, open := m.entries[userID]; !open {
		log.Printf("💬 [SESSION] Conversation opened for user %s", userID)
	}
	m.entries[userID] = now
}

// IsActive reports whether the user's session is open. An expired entry is
// removed here (Active→Idle transition) and reported as inactive.
func (m *Manager) IsActive(userID string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	last, open := m.entries[userID]
	if !open {
		return false
	}
	if now.Sub(last) > m.idleTimeout {
		delete(m.entries, userID)
		log.Printf("💤 [SESSION] Conversation expired for user %s (idle %v)", userID, now.Sub(last).Round(time.Second))
		return false
	}
	return true
}

// End closes the user's session unconditionally (explicit "end conversation")
func (m *Manager) End(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, open := m.entries[userID]; open {
		delete(m.entries, userID)
		log.Printf("👋 [SESSION] Conversation ended for user %s", userID)
	}
}

// Count returns the number of currently tracked sessions, expired or not.
// Intended for health reporting.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
