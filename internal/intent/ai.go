package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// Generator is the slice of the generative service the AI classifier needs.
// The implementation is expected to run the call through the call governor.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const classifyTemplate = `Classify the user message into exactly one intent.
Reply with a single JSON object and nothing else:
{"intent":"todo|link|save-content|query|chat","sub_intent":"create|query|update","content_type":"insight|knowledge|memory|music|life","query_type":"knowledge|content|recommendation|feedback|chat_history","confidence":0.0}
Omit fields that do not apply. Message:
%s`

// AIClassifier delegates classification to the generative service and falls
// back to the rule-based strategy when the call or the structured output
// fails. It never fails the request.
type AIClassifier struct {
	generator Generator
	fallback  Classifier
}

// NewAIClassifier creates the AI-delegated strategy
func NewAIClassifier(generator Generator, fallback Classifier) *AIClassifier {
	return &AIClassifier{generator: generator, fallback: fallback}
}

// Classify implements Classifier
func (c *AIClassifier) Classify(ctx context.Context, text string) Result {
	raw, err := c.generator.Generate(ctx, fmt.Sprintf(classifyTemplate, text))
	if err != nil {
		log.Printf("⚠️  [CLASSIFY] AI classification failed, falling back to rules: %v", err)
		return c.fallback.Classify(ctx, text)
	}

	result, err := parseResult(raw)
	if err != nil {
		log.Printf("⚠️  [CLASSIFY] Malformed structured output, falling back to rules: %v", err)
		return c.fallback.Classify(ctx, text)
	}
	return result
}

// parseResult decodes the strict JSON object, tolerating surrounding prose by
// cutting the first {...} span.
func parseResult(raw string) (Result, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("no JSON object in output")
	}

	var result Result
	if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err != nil {
		return Result{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if !ValidIntent(result.Intent) {
		return Result{}, fmt.Errorf("unknown intent %q", result.Intent)
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		result.Confidence = 0.75
	}
	return result, nil
}
