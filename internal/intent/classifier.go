// Package intent assigns a cleaned message to one of five coarse intents
// (todo, link, save-content, query, chat). Two interchangeable strategies
// satisfy the same contract: a deterministic rule table and an AI-delegated
// classifier that falls back to the rules on any failure.
package intent

import "context"

// Intents
const (
	IntentTodo        = "todo"
	IntentLink        = "link"
	IntentSaveContent = "save-content"
	IntentQuery       = "query"
	IntentChat        = "chat"
)

// To-do sub-intents
const (
	SubIntentCreate = "create"
	SubIntentQuery  = "query"
	SubIntentUpdate = "update"
)

// Query types
const (
	QueryKnowledge      = "knowledge"
	QueryContent        = "content"
	QueryRecommendation = "recommendation"
	QueryFeedback       = "feedback"
	QueryChatHistory    = "chat_history"
)

// Result is a classification outcome
type Result struct {
	Intent      string  `json:"intent"`
	SubIntent   string  `json:"sub_intent,omitempty"`
	ContentType string  `json:"content_type,omitempty"`
	QueryType   string  `json:"query_type,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// Classifier assigns an intent to detector-cleaned text
type Classifier interface {
	Classify(ctx context.Context, text string) Result
}

// ValidIntent reports whether s is one of the five known intents
func ValidIntent(s string) bool {
	switch s {
	case IntentTodo, IntentLink, IntentSaveContent, IntentQuery, IntentChat:
		return true
	}
	return false
}
