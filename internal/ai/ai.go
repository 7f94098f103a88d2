package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"marketwatch-backend/internal/types"

	"github.com/pkg/errors"
)

const (
	apiURL  = "https://api.anthropic.com/v1/messages"
	model   = "claude-sonnet-4-6"
	version = "2023-06-01"

	systemPrompt = "You are MarketWatch AI's trading assistant. You provide concise, " +
		"actionable Forex and market insights. Keep summaries under 120 words. " +
		"Never give financial advice - only analysis. Be direct and professional."
)

// Client generates short market summaries for fired alerts.
type Client struct {
	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type response struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// AlertSummary asks for a 2-3 sentence market context for a fired alert.
// Callers must treat any error (or empty text) as a signal to use their own
// fallback; delivery is never blocked on this call.
func (c *Client) AlertSummary(ctx context.Context, symbol string, price float64, kind types.AlertKind, target float64) (string, error) {
	prompt := fmt.Sprintf(
		"An alert just triggered: %s is at %.5f (alert type: %s, target level: %.5f). "+
			"Give a 2-3 sentence market context for %s right now.",
		symbol, price, kind, target, symbol)

	body, err := json.Marshal(request{
		Model:     model,
		MaxTokens: 180,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", errors.Wrap(err, "could not encode summary request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "could not build summary request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "summary request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("summary request failed: status %d", resp.StatusCode)
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", errors.Wrap(err, "could not parse summary response")
	}
	if len(parsed.Content) == 0 || parsed.Content[0].Text == "" {
		return "", errors.New("summary response was empty")
	}

	return parsed.Content[0].Text, nil
}
