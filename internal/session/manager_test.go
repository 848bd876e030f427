package session

import (
	"testing"
	"time"
)

func TestSessionTimeout(t *testing.T) {
	m := NewManager(300 * time.Second)
	t0 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	m.Touch("user-1", t0)

	if !m.IsActive("user-1", t0.Add(299*time.Second)) {
		t.Error("Session should be active within the idle timeout")
	}
	if m.IsActive("user-1", t0.Add(301*time.Second)) {
		t.Error("Session should expire after the idle timeout")
	}

	// Expired entry is gone: a fresh touch re-opens cleanly
	m.Touch("user-1", t0.Add(302*time.Second))
	if !m.IsActive("user-1", t0.Add(303*time.Second)) {
		t.Error("Session should be active again after re-open")
	}
}

func TestIsActiveRefreshesNothing(t *testing.T) {
	m := NewManager(300 * time.Second)
	t0 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	m.Touch("user-1", t0)

	// Reading activity must not extend the session
	m.IsActive("user-1", t0.Add(200*time.Second))
	if m.IsActive("user-1", t0.Add(301*time.Second)) {
		t.Error("IsActive must not refresh last activity")
	}
}

func TestEnd(t *testing.T) {
	m := NewManager(300 * time.Second)
	t0 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	m.Touch("user-1", t0)
	m.End("user-1")

	if m.IsActive("user-1", t0.Add(time.Second)) {
		t.Error("Session should be closed after End")
	}

	// Ending an idle session is a no-op
	m.End("user-2")
}

func TestSessionsArePerUser(t *testing.T) {
	m := NewManager(300 * time.Second)
	t0 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	m.Touch("user-1", t0)
	if m.IsActive("user-2", t0) {
		t.Error("Another user's session must stay idle")
	}
	if m.Count() != 1 {
		t.Errorf("Expected 1 tracked session, got %d", m.Count())
	}
}
