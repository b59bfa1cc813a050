package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spec-kit/casework-service/internal/config"
)

// Backend is the external model service. It is non-deterministic and may
// return malformed output; callers own the parsing.
type Backend interface {
	Complete(ctx context.Context, system, user string) (string, error)
	AnalyzeImage(ctx context.Context, imageURL, userText, locale string) (string, error)
}

// httpBackend talks to an OpenAI-compatible chat completions endpoint.
type httpBackend struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewHTTPBackend builds the default backend from configuration.
func NewHTTPBackend(cfg config.EnrichmentConfig) Backend {
	return &httpBackend{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout()},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (b *httpBackend) Complete(ctx context.Context, system, user string) (string, error) {
	return b.send(ctx, []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
}

func (b *httpBackend) AnalyzeImage(ctx context.Context, imageURL, userText, locale string) (string, error) {
	prompt := fmt.Sprintf(
		"Describe this image for a case worker support context. Respond in locale %q. Accompanying text: %q", locale, userText)
	return b.send(ctx, []chatMessage{
		{Role: "user", Content: []map[string]any{
			{"type": "text", "text": prompt},
			{"type": "image_url", "image_url": map[string]string{"url": imageURL}},
		}},
	})
}

func (b *httpBackend) send(ctx context.Context, messages []chatMessage) (string, error) {
	if b.baseURL == "" {
		return "", fmt.Errorf("enrichment backend not configured")
	}

	payload, err := json.Marshal(chatRequest{
		Model:       b.model,
		Messages:    messages,
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("enrichment backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("enrichment backend returned status %d after %s", resp.StatusCode, time.Since(start))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode backend response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("enrichment backend returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
