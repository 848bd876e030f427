package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ReplyService delivers outbound replies through the chat platform's push
// endpoint. Delivery is best-effort: failures are logged, never retried.
type ReplyService struct {
	pushURL    string
	token      string
	httpClient *http.Client
}

// NewReplyService creates the outbound reply channel client. An empty pushURL
// disables delivery (replies still return through the webhook response).
func NewReplyService(pushURL, token string) *ReplyService {
	return &ReplyService{
		pushURL:    pushURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type pushPayload struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// Send pushes text to the destination identified by replyToken
func (s *ReplyService) Send(ctx context.Context, replyToken, text string) error {
	if s.pushURL == "" || replyToken == "" {
		return nil
	}

	body, err := json.Marshal(pushPayload{To: replyToken, Text: text})
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.pushURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("⚠️  [REPLY] Push failed: %v", err)
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 300 {
		log.Printf("⚠️  [REPLY] Push returned HTTP %d", resp.StatusCode)
		return fmt.Errorf("push returned HTTP %d", resp.StatusCode)
	}
	return nil
}
