// Package governor wraps any external call with sliding-window rate limiting
// and classified retry. It is resource-agnostic: the wrapped fn is a plain
// zero-argument callable and the governor knows nothing about what it calls.
package governor

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrDailyQuota is returned when the trailing-24h window is full. The daily
// ceiling is hard: no waiting, no retry within the same call.
var ErrDailyQuota = errors.New("daily call quota exhausted")

const (
	minuteWindow = time.Minute
	dayWindow    = 24 * time.Hour

	// delay between retries of non-quota failures
	transientRetryDelay = 1 * time.Second
)

// Window tracks admissions over the trailing minute and trailing day.
// Both queues are time-ordered and pruned of expired entries before every
// admission check. Process-wide shared state, guarded by its own mutex.
type Window struct {
	perMinute int
	perDay    int

	minute []time.Time
	day    []time.Time
	mu     sync.Mutex

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewWindow creates a rate window with the given caps
func NewWindow(perMinute, perDay int) *Window {
	return &Window{
		perMinute: perMinute,
		perDay:    perDay,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// Admit blocks until a call slot is available in the minute window, or fails
// immediately with ErrDailyQuota when the day window is full. On admission the
// slot is reserved atomically (checked and appended under the same lock).
func (w *Window) Admit(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := w.now()
		w.minute = prune(w.minute, now.Add(-minuteWindow))
		w.day = prune(w.day, now.Add(-dayWindow))

		if len(w.day) >= w.perDay {
			w.mu.Unlock()
			return ErrDailyQuota
		}

		if len(w.minute) < w.perMinute {
			w.minute = append(w.minute, now)
			w.day = append(w.day, now)
			w.mu.Unlock()
			return nil
		}

		// Wait out the oldest minute entry, then re-check: another caller may
		// have taken the freed slot.
		wait := w.minute[0].Add(minuteWindow).Sub(now)
		w.mu.Unlock()

		if wait < 0 {
			wait = 0
		}
		log.Printf("⏳ [GOVERNOR] Minute window full (%d/%d), waiting %v", w.perMinute, w.perMinute, wait.Round(time.Millisecond))
		if err := w.sleep(ctx, wait+10*time.Millisecond); err != nil {
			return err
		}
	}
}

// MinuteCount returns the current trailing-minute admission count
func (w *Window) MinuteCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.minute = prune(w.minute, w.now().Add(-minuteWindow))
	return len(w.minute)
}

// DayCount returns the current trailing-day admission count
func (w *Window) DayCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.day = prune(w.day, w.now().Add(-dayWindow))
	return len(w.day)
}

// prune drops entries at or before cutoff. Queues are time-ordered, so the
// first retained index ends the scan.
func prune(queue []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(queue) && !queue[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return queue
	}
	return append(queue[:0], queue[i:]...)
}

// Governor executes external calls through the rate window with retry
type Governor struct {
	window  *Window
	backoff *BackoffCalculator

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a governor over a fresh window with the given caps
func New(perMinute, perDay int) *Governor {
	return NewWithWindow(NewWindow(perMinute, perDay))
}

// NewWithWindow creates a governor sharing an existing window. Callers that
// govern several call sites against one provider quota share a single window.
func NewWithWindow(window *Window) *Governor {
	return &Governor{
		window:  window,
		backoff: NewBackoffCalculator(1000, 30000, 2.0, 20),
		sleep:   sleepCtx,
	}
}

// Execute runs fn under the rate window, retrying classified failures up to
// maxRetries times. Quota errors sleep the provider-suggested delay when
// present, else exponential backoff; any other failure sleeps a short fixed
// delay. A full day window aborts immediately with ErrDailyQuota.
func (g *Governor) Execute(ctx context.Context, fn func() (string, error), maxRetries int) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := g.window.Admit(ctx); err != nil {
			if errors.Is(err, ErrDailyQuota) {
				log.Printf("🚫 [GOVERNOR] Daily quota reached (%d calls), refusing", g.window.perDay)
			}
			return "", err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == maxRetries {
			break
		}

		classified := Classify(err)
		var delay time.Duration
		if classified.Category == ErrorCategoryQuota {
			if classified.RetryAfter > 0 {
				delay = time.Duration(classified.RetryAfter) * time.Second
			} else {
				delay = g.backoff.NextDelay(attempt)
			}
		} else {
			delay = transientRetryDelay
		}

		log.Printf("🔄 [GOVERNOR] Call failed (%s), retrying (%d/%d) after %v — %s",
			classified.Category, attempt+1, maxRetries, delay.Round(time.Millisecond), classified.Message)

		if err := g.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
