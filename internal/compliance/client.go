// Package compliance calls the advisory pre-check for manager-authored
// text. Its verdict is never allowed to block a send.
package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spec-kit/casework-service/internal/config"
)

// RiskLevel classifies outbound text.
type RiskLevel string

const (
	RiskNone   RiskLevel = "none"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Result is the advisory verdict.
type Result struct {
	RiskLevel RiskLevel `json:"riskLevel"`
	Reason    string    `json:"reason,omitempty"`
}

// Checker runs the pre-check.
type Checker interface {
	Check(ctx context.Context, text string) (*Result, error)
}

// Client is the HTTP checker.
type Client struct {
	url    string
	client *http.Client
}

// NewClient builds a checker from configuration, or nil when disabled.
func NewClient(cfg config.ComplianceConfig) *Client {
	if !cfg.Enabled || cfg.URL == "" {
		return nil
	}
	return &Client{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout()},
	}
}

// Check submits text for risk classification.
func (c *Client) Check(ctx context.Context, text string) (*Result, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("compliance pre-check returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if result.RiskLevel == "" {
		result.RiskLevel = RiskNone
	}
	return &result, nil
}
