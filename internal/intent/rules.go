package intent

import (
	"context"
	"regexp"
	"strings"

	"peanut/internal/config"
	"peanut/internal/models"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// ExtractURL returns the first URL in text, or "" when none is present
func ExtractURL(text string) string {
	return urlPattern.FindString(text)
}

// RuleClassifier is the deterministic strategy. Precedence order matters:
// question-form text must never be classified as save-content, and short bare
// category words must resolve as queries before the substring scans meant for
// narrative sentences can swallow them.
type RuleClassifier struct {
	keywords *config.KeywordSource
}

// NewRuleClassifier creates the rule-based classifier over the given keyword
// tables (hot-reload aware).
func NewRuleClassifier(keywords *config.KeywordSource) *RuleClassifier {
	return &RuleClassifier{keywords: keywords}
}

// Classify implements Classifier
func (c *RuleClassifier) Classify(_ context.Context, text string) Result {
	kw := c.keywords.Current()
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	// 1. A URL anywhere wins regardless of surrounding text
	if urlPattern.MatchString(trimmed) {
		return Result{Intent: IntentLink, Confidence: 0.95}
	}

	// 2. To-do sets, query before update before create: the update/create
	// lists are substrings of common query phrasings.
	if containsAny(lower, kw.Todo.Query) {
		return Result{Intent: IntentTodo, SubIntent: SubIntentQuery, Confidence: 0.9}
	}
	if containsAny(lower, kw.Todo.Update) {
		return Result{Intent: IntentTodo, SubIntent: SubIntentUpdate, Confidence: 0.9}
	}
	if containsAny(lower, kw.Todo.Create) {
		return Result{Intent: IntentTodo, SubIntent: SubIntentCreate, Confidence: 0.85}
	}

	// 3. Bare category words resolve as queries with top confidence
	if category, ok := kw.BareCategories[lower]; ok {
		if category == "todo" {
			return Result{Intent: IntentTodo, SubIntent: SubIntentQuery, Confidence: 1.0}
		}
		return Result{Intent: IntentQuery, QueryType: category, Confidence: 1.0}
	}

	// 4. Knowledge / saved-content queries
	if containsAny(lower, kw.Query.Knowledge) {
		return Result{Intent: IntentQuery, QueryType: QueryKnowledge, Confidence: 0.85}
	}
	if containsAny(lower, kw.Query.Content) {
		return Result{Intent: IntentQuery, QueryType: QueryContent, Confidence: 0.85}
	}

	// 5. Generic questions, subclassified by secondary sets
	if containsAny(lower, kw.Query.Question) {
		queryType := QueryFeedback
		switch {
		case containsAny(lower, kw.Query.Recommendation):
			queryType = QueryRecommendation
		case containsAny(lower, kw.Query.ChatHistory):
			queryType = QueryChatHistory
		}
		return Result{Intent: IntentQuery, QueryType: queryType, Confidence: 0.8}
	}

	// 6. Statements (not question-form) matching a save-content set
	if !strings.HasSuffix(trimmed, "?") && !strings.HasSuffix(trimmed, "？") {
		if contentType := c.saveContentType(lower, kw); contentType != "" {
			return Result{Intent: IntentSaveContent, ContentType: contentType, Confidence: 0.8}
		}
	}

	// 7. Everything else is open conversation
	return Result{Intent: IntentChat, Confidence: 0.7}
}

func (c *RuleClassifier) saveContentType(lower string, kw *config.Keywords) string {
	switch {
	case containsAny(lower, kw.Save.Insight):
		return models.NoteTypeInsight
	case containsAny(lower, kw.Save.Knowledge):
		return models.NoteTypeKnowledge
	case containsAny(lower, kw.Save.Memory):
		return models.NoteTypeMemory
	case containsAny(lower, kw.Save.Music):
		return models.NoteTypeMusic
	case containsAny(lower, kw.Save.Life):
		return models.NoteTypeLife
	}
	return ""
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}
