package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"seekbot/internal/domain"
)

const (
	searchTimeout   = 15 * time.Second
	userAgentString = "SeekBot/0.1"
)

// DuckDuckGo retrieves web results from the DuckDuckGo Instant Answer API
// (no key required). It has no addressable collection, so GetDoc is
// unsupported.
type DuckDuckGo struct {
	client *http.Client
}

// NewDuckDuckGo creates a web search engine.
func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{
		client: &http.Client{Timeout: searchTimeout},
	}
}

type ddgResponse struct {
	Heading       string `json:"Heading"`
	Abstract      string `json:"Abstract"`
	AbstractURL   string `json:"AbstractURL"`
	Answer        string `json:"Answer"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Retrieve implements Engine. Result order follows the API's own ranking;
// scores decay with position and are only meaningful within this list.
func (d *DuckDuckGo) Retrieve(ctx context.Context, query string, topK int) (domain.ResultList, error) {
	if topK <= 0 {
		topK = 3
	}

	endpoint := fmt.Sprintf("https://api.duckduckgo.com/?q=%s&format=json&no_html=1&skip_disambig=1",
		url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgentString)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var ddg ddgResponse
	if err := json.Unmarshal(body, &ddg); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	var results domain.ResultList
	if ddg.Abstract != "" {
		results = append(results, domain.Document{
			ID:    ddg.AbstractURL,
			Title: ddg.Heading,
			Text:  ddg.Abstract,
		})
	}
	if ddg.Answer != "" {
		results = append(results, domain.Document{
			ID:    "answer",
			Title: ddg.Heading,
			Text:  ddg.Answer,
		})
	}
	for _, topic := range ddg.RelatedTopics {
		if topic.Text == "" {
			continue
		}
		results = append(results, domain.Document{
			ID:    topic.FirstURL,
			Title: topic.Text,
			Text:  topic.Text,
		})
	}

	if len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Score = 1.0 / float64(i+1)
	}
	return results, nil
}

// GetDoc implements Engine. Web search has no collection to fetch from.
func (d *DuckDuckGo) GetDoc(ctx context.Context, id string) (domain.Document, error) {
	return domain.Document{}, fmt.Errorf("%w: get_doc on web search engine", domain.ErrUnsupported)
}
