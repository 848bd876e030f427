package governor

import (
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// ErrorCategory classifies call errors for retry decisions
type ErrorCategory int

const (
	// ErrorCategoryUnknown - unclassified error
	ErrorCategoryUnknown ErrorCategory = iota

	// ErrorCategoryTransient - temporary failures that may succeed on retry
	// Examples: timeout, server error (5xx), network error
	ErrorCategoryTransient

	// ErrorCategoryQuota - provider-side rate/quota errors (429), retried after
	// the provider-suggested delay when one is present
	ErrorCategoryQuota

	// ErrorCategoryPermanent - errors that will not succeed on retry
	// Examples: auth error (401/403), bad request (400)
	ErrorCategoryPermanent
)

// String returns a human-readable category name
func (c ErrorCategory) String() string {
	switch c {
	case ErrorCategoryTransient:
		return "transient"
	case ErrorCategoryQuota:
		return "quota"
	case ErrorCategoryPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// CallError wraps an external-call error with classification for the retry loop
type CallError struct {
	Category   ErrorCategory
	Message    string
	StatusCode int   // HTTP status code if applicable
	RetryAfter int   // Seconds to wait before retry (from Retry-After header)
	Cause      error // Original error
}

func (e *CallError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%d] %s", e.StatusCode, e.Message)
	}
	return e.Message
}

func (e *CallError) Unwrap() error {
	return e.Cause
}

// ClassifyHTTPError classifies an HTTP response error from the external service
func ClassifyHTTPError(statusCode int, body string) *CallError {
	err := &CallError{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, truncateString(body, 200)),
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		err.Category = ErrorCategoryQuota

	case statusCode >= 500 && statusCode < 600:
		err.Category = ErrorCategoryTransient

	case statusCode == http.StatusRequestTimeout:
		err.Category = ErrorCategoryTransient

	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		err.Category = ErrorCategoryPermanent

	case statusCode == http.StatusBadRequest ||
		statusCode == http.StatusNotFound ||
		statusCode == http.StatusUnprocessableEntity:
		err.Category = ErrorCategoryPermanent

	default:
		err.Category = ErrorCategoryUnknown
	}

	return err
}

// Classify classifies a general error. CallErrors pass through unchanged.
func Classify(err error) *CallError {
	if err == nil {
		return nil
	}

	if callErr, ok := err.(*CallError); ok {
		return callErr
	}

	errStr := err.Error()

	// Context timeout/cancellation — a timed-out attempt is retryable
	if strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "context canceled") {
		return &CallError{
			Category: ErrorCategoryTransient,
			Message:  "Request timed out",
			Cause:    err,
		}
	}

	// Network errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "EOF") {
		return &CallError{
			Category: ErrorCategoryTransient,
			Message:  fmt.Sprintf("Network error: %s", truncateString(errStr, 100)),
			Cause:    err,
		}
	}

	// Provider quota messages that arrive without a status code
	if strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") {
		return &CallError{
			Category: ErrorCategoryQuota,
			Message:  truncateString(errStr, 200),
			Cause:    err,
		}
	}

	return &CallError{
		Category: ErrorCategoryUnknown,
		Message:  truncateString(errStr, 200),
		Cause:    err,
	}
}

// BackoffCalculator computes retry delays with exponential backoff and jitter
type BackoffCalculator struct {
	initialDelay  time.Duration
	maxDelay      time.Duration
	multiplier    float64
	jitterPercent int
}

// NewBackoffCalculator creates a calculator with specified parameters
func NewBackoffCalculator(initialDelayMs, maxDelayMs int, multiplier float64, jitterPercent int) *BackoffCalculator {
	if initialDelayMs <= 0 {
		initialDelayMs = 1000
	}
	if maxDelayMs <= 0 {
		maxDelayMs = 30000
	}
	if multiplier <= 0 {
		multiplier = 2.0
	}
	if jitterPercent < 0 {
		jitterPercent = 20
	}

	return &BackoffCalculator{
		initialDelay:  time.Duration(initialDelayMs) * time.Millisecond,
		maxDelay:      time.Duration(maxDelayMs) * time.Millisecond,
		multiplier:    multiplier,
		jitterPercent: jitterPercent,
	}
}

// NextDelay calculates the delay for the given attempt number (0-indexed)
func (b *BackoffCalculator) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt))

	if delay > float64(b.maxDelay) {
		delay = float64(b.maxDelay)
	}

	// Jitter prevents thundering herd
	if b.jitterPercent > 0 {
		jitterRange := delay * float64(b.jitterPercent) / 100.0
		jitter := (rand.Float64()*2 - 1) * jitterRange
		delay += jitter
	}

	if delay < 0 {
		delay = float64(b.initialDelay)
	}

	return time.Duration(delay)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
