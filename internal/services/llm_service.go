package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"peanut/internal/governor"
	"peanut/internal/history"
	"peanut/internal/respcache"
)

// LLMService calls the external generative-text service (OpenAI-compatible
// chat completions). Every call runs through the call governor; identical
// requests are served from the response cache.
type LLMService struct {
	endpoint   string
	apiKey     string
	model      string
	maxRetries int

	httpClient *http.Client
	governor   *governor.Governor
	cache      *respcache.Cache
	limiter    *rate.Limiter // smooths outbound bursts below the provider window
	metrics    *Metrics
}

// LLMConfig configures the generative service client
type LLMConfig struct {
	Endpoint   string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// NewLLMService creates the generative service client
func NewLLMService(cfg LLMConfig, gov *governor.Governor, cache *respcache.Cache, metrics *Metrics) *LLMService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return &LLMService{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxRetries: retries,
		httpClient: &http.Client{Timeout: timeout},
		governor:   gov,
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Limit(2), 2), // 2 req/s outbound smoothing
		metrics:    metrics,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate produces a reply for prompt without conversation history. Used by
// the AI classifier for structured-output calls.
func (s *LLMService) Generate(ctx context.Context, prompt string) (string, error) {
	return s.GenerateWithHistory(ctx, prompt, nil)
}

// GenerateWithHistory produces a reply for prompt, preceded by the user's
// recent conversation turns. The response cache is consulted first and
// populated on success; cache failures degrade to a miss.
func (s *LLMService) GenerateWithHistory(ctx context.Context, prompt string, turns []history.Turn) (string, error) {
	key := s.fingerprint(prompt, turns)
	if cached, found := s.cache.Get(key); found {
		s.metrics.CacheHits.Inc()
		log.Printf("📦 [LLM] Cache hit for prompt (len=%d)", len(prompt))
		return cached, nil
	}
	s.metrics.CacheMisses.Inc()

	messages := make([]chatMessage, 0, len(turns)+1)
	for _, turn := range turns {
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	start := time.Now()
	result, err := s.governor.Execute(ctx, func() (string, error) {
		return s.complete(ctx, messages)
	}, s.maxRetries)
	s.metrics.LLMCallLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, governor.ErrDailyQuota) {
			s.metrics.GovernorRefused.Inc()
			return "", err
		}
		classified := governor.Classify(err)
		s.metrics.LLMErrors.WithLabelValues(classified.Category.String()).Inc()
		return "", err
	}

	s.cache.Set(key, result, 0)
	return result, nil
}

// complete performs one chat-completions request
func (s *LLMService) complete(ctx context.Context, messages []chatMessage) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	s.metrics.LLMCalls.Inc()

	body, err := json.Marshal(chatRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusOK {
		callErr := governor.ClassifyHTTPError(resp.StatusCode, string(respBody))
		// Provider-suggested delay for quota errors
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, convErr := strconv.Atoi(retryAfter); convErr == nil {
				callErr.RetryAfter = seconds
			}
		}
		return "", callErr
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}

	return parsed.Choices[0].Message.Content, nil
}

// fingerprint derives the cache key from the prompt plus its contextual turns
func (s *LLMService) fingerprint(prompt string, turns []history.Turn) string {
	parts := make([]string, 0, 2*len(turns)+3)
	parts = append(parts, "chat", s.model)
	for _, turn := range turns {
		parts = append(parts, turn.Role, turn.Content)
	}
	parts = append(parts, prompt)
	return respcache.Key(parts...)
}
