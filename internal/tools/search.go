package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	tavilyEndpoint = "https://api.tavily.com/search"
	braveEndpoint  = "https://api.search.brave.com/res/v1/web/search"
)

// SearchResult represents a single search result.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

// SearchConfig configures WebSearch.
type SearchConfig struct {
	Provider          string // tavily or brave
	APIKey            string
	MaxResults        int
	RequestsPerSecond float64 // 0 disables limiting
	Timeout           time.Duration
	Endpoint          string // overrides the provider URL
}

// WebSearch implements the web_search tool.
type WebSearch struct {
	cfg     SearchConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebSearch creates a web_search tool.
func NewWebSearch(cfg SearchConfig) *WebSearch {
	if cfg.Provider == "" {
		cfg.Provider = "tavily"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tavilyEndpoint
		if cfg.Provider == "brave" {
			cfg.Endpoint = braveEndpoint
		}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &WebSearch{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
	}
}

func (t *WebSearch) Name() string { return "web_search" }

func (t *WebSearch) Description() string {
	return "Search the web for up-to-date information. Returns a list of relevant results with URLs, initial content and the title of the page. Snippets are previews only; use web_fetch on the most promising URLs."
}

func (t *WebSearch) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The search query to look up on the web",
			},
		},
		"required": []string{"query"},
	}
}

func (t *WebSearch) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	return t.Search(ctx, query)
}

// Search runs a query against the configured provider.
func (t *WebSearch) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if t.cfg.APIKey == "" {
		return nil, fmt.Errorf("no search API key configured for %s", t.cfg.Provider)
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search rate limit: %w", err)
	}
	switch t.cfg.Provider {
	case "brave":
		return t.searchBrave(ctx, query)
	case "tavily":
		return t.searchTavily(ctx, query)
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", t.cfg.Provider)
	}
}

func (t *WebSearch) searchTavily(ctx context.Context, query string) ([]SearchResult, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"api_key":     t.cfg.APIKey,
		"query":       query,
		"max_results": t.cfg.MaxResults,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)

	var tavilyResp struct {
		Results []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := t.do(req, "tavily", &tavilyResp); err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(tavilyResp.Results))
	for _, r := range tavilyResp.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Content, Score: r.Score})
	}
	return results, nil
}

func (t *WebSearch) searchBrave(ctx context.Context, query string) ([]SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(t.cfg.MaxResults))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Subscription-Token", t.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	var braveResp struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := t.do(req, "brave", &braveResp); err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(braveResp.Web.Results))
	for _, r := range braveResp.Web.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return results, nil
}

func (t *WebSearch) do(req *http.Request, name string, out interface{}) error {
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s search failed: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s search error (%d): %s", name, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", name, err)
	}
	return nil
}
