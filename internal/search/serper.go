package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultSerperURL = "https://google.serper.dev/search"

	// Only the top results make it into the prompt; fetching more is waste.
	maxSnippets = 3
)

// Client answers a text query with short result snippets, best match first.
type Client interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// SerperClient queries the Serper search API.
type SerperClient struct {
	url    string
	apiKey string
	gl     string
	hl     string
	client *http.Client
}

type SerperConfig struct {
	URL    string
	APIKey string
	GL     string
	HL     string
}

func NewSerperClient(cfg SerperConfig) *SerperClient {
	u := strings.TrimSpace(cfg.URL)
	if u == "" {
		u = defaultSerperURL
	}
	return &SerperClient{
		url:    u,
		apiKey: strings.TrimSpace(cfg.APIKey),
		gl:     strings.TrimSpace(cfg.GL),
		hl:     strings.TrimSpace(cfg.HL),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type serperRequest struct {
	Q  string `json:"q"`
	GL string `json:"gl,omitempty"`
	HL string `json:"hl,omitempty"`
}

type serperResponse struct {
	Organic []struct {
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (c *SerperClient) Search(ctx context.Context, query string) ([]string, error) {
	payload, err := json.Marshal(serperRequest{Q: query, GL: c.gl, HL: c.hl})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, fmt.Errorf("serper status %d: %s", res.StatusCode, string(body))
	}

	var parsed serperResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	snippets := make([]string, 0, maxSnippets)
	for _, item := range parsed.Organic {
		s := strings.TrimSpace(item.Snippet)
		if s == "" {
			continue
		}
		snippets = append(snippets, s)
		if len(snippets) == maxSnippets {
			break
		}
	}
	return snippets, nil
}

// MockClient serves canned snippets for tests and keyless dev setups.
type MockClient struct {
	Snippets []string
	Err      error
}

func (m *MockClient) Search(_ context.Context, _ string) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Snippets, nil
}
