// Package mrc wraps the machine reading comprehension model behind an HTTP
// service boundary. The model extracts candidate answer spans from a
// passage for a given question.
package mrc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"seekbot/internal/domain"
)

// Model answers a question against a passage, returning candidate answers
// best-first.
type Model interface {
	Answer(ctx context.Context, question, passage string, topK int) (domain.ResultList, error)
}

// ClientConfig configures the HTTP reading-comprehension client.
type ClientConfig struct {
	Endpoint string // e.g. "http://localhost:8003"
	TopK     int    // candidate answers requested (default 3)
	Logger   *slog.Logger
}

// Client is an HTTP client for a remote reading-comprehension service.
type Client struct {
	endpoint string
	topK     int
	client   *http.Client
	logger   *slog.Logger
}

// NewClient creates an MRC client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &Client{
		endpoint: cfg.Endpoint,
		topK:     cfg.TopK,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   cfg.Logger,
	}
}

type answerRequest struct {
	Question string `json:"question"`
	Passage  string `json:"passage"`
	TopK     int    `json:"top_k"`
}

type answerResponse struct {
	Answers []struct {
		Text  string  `json:"text"`
		Score float64 `json:"score"`
	} `json:"answers"`
	Error   bool   `json:"error"`
	Message string `json:"message,omitempty"`
}

// Answer implements Model.
func (c *Client) Answer(ctx context.Context, question, passage string, topK int) (domain.ResultList, error) {
	if topK <= 0 {
		topK = c.topK
	}

	payload, err := json.Marshal(answerRequest{Question: question, Passage: passage, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mrc request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mrc service returned %d: %s", resp.StatusCode, string(body))
	}

	var ar answerResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if ar.Error {
		return nil, fmt.Errorf("mrc service error: %s", ar.Message)
	}

	results := make(domain.ResultList, 0, len(ar.Answers))
	for i, a := range ar.Answers {
		results = append(results, domain.Document{
			ID:    fmt.Sprintf("answer:%d", i),
			Title: question,
			Text:  a.Text,
			Score: a.Score,
		})
	}
	return results, nil
}
