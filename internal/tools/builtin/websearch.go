package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/adpilot-ai/adpilot/internal/fault"
	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

const (
	defaultResultCount = 5
	maxResultCount     = 20
	searchCacheTTL     = 5 * time.Minute
	maxCacheEntries    = 1000
)

// SearchResult is a single web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchClient queries the DuckDuckGo Instant Answer API with a small
// in-process response cache.
type SearchClient struct {
	baseURL    string
	httpClient *http.Client

	cacheMu sync.RWMutex
	cache   map[string]searchCacheEntry
}

type searchCacheEntry struct {
	results   []SearchResult
	expiresAt time.Time
}

// NewSearchClient creates a search client. An empty baseURL uses the
// public DuckDuckGo endpoint.
func NewSearchClient(baseURL string) *SearchClient {
	if baseURL == "" {
		baseURL = "https://api.duckduckgo.com"
	}
	return &SearchClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      make(map[string]searchCacheEntry),
	}
}

// Search returns up to count results for the query.
func (c *SearchClient) Search(ctx context.Context, query string, count int) ([]SearchResult, error) {
	if count <= 0 {
		count = defaultResultCount
	}
	if count > maxResultCount {
		count = maxResultCount
	}

	cacheKey := fmt.Sprintf("%s|%d", query, count)
	c.cacheMu.RLock()
	entry, ok := c.cache[cacheKey]
	c.cacheMu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.results, nil
	}

	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fault.Wrap(fault.CodeTransport, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; AdPilotBot/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.CodeTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fault.Newf(fault.CodeTransport, "search backend returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Wrap(fault.CodeTransport, err)
	}

	var ddg struct {
		AbstractText  string `json:"AbstractText"`
		AbstractURL   string `json:"AbstractURL"`
		Heading       string `json:"Heading"`
		RelatedTopics []struct {
			FirstURL string `json:"FirstURL"`
			Text     string `json:"Text"`
		} `json:"RelatedTopics"`
	}
	if err := json.Unmarshal(body, &ddg); err != nil {
		return nil, fault.Wrap(fault.CodeTransport, err)
	}

	results := make([]SearchResult, 0, count)
	if ddg.AbstractText != "" && ddg.AbstractURL != "" {
		results = append(results, SearchResult{
			Title:   ddg.Heading,
			URL:     ddg.AbstractURL,
			Snippet: ddg.AbstractText,
		})
	}
	for _, topic := range ddg.RelatedTopics {
		if len(results) >= count {
			break
		}
		if topic.FirstURL == "" || topic.Text == "" {
			continue
		}
		title := topic.Text
		if len(title) > 100 {
			title = title[:100]
		}
		results = append(results, SearchResult{
			Title:   title,
			URL:     topic.FirstURL,
			Snippet: topic.Text,
		})
	}

	c.cacheMu.Lock()
	if len(c.cache) >= maxCacheEntries {
		c.cache = make(map[string]searchCacheEntry)
	}
	c.cache[cacheKey] = searchCacheEntry{results: results, expiresAt: time.Now().Add(searchCacheTTL)}
	c.cacheMu.Unlock()

	return results, nil
}

func searchDescriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "web_search",
		Description: "Search the web for information.",
		Category:    models.CategoryBuiltin,
		Parameters: []models.ParamSpec{
			{Name: "query", Type: models.ParamString, Required: true, Description: "The search query."},
			{Name: "result_count", Type: models.ParamInteger, Default: defaultResultCount,
				Description: "Number of results to return, up to 20."},
		},
		Returns: "A list of results with title, url, and snippet.",
	}
}

func searchHandler(client *SearchClient) tools.Handler {
	return func(ctx context.Context, params map[string]any, _ tools.Context) (any, error) {
		query, _ := params["query"].(string)
		count := defaultResultCount
		switch n := params["result_count"].(type) {
		case int64:
			count = int(n)
		case int:
			count = n
		case float64:
			count = int(n)
		}
		results, err := client.Search(ctx, query, count)
		if err != nil {
			return nil, err
		}
		return map[string]any{"query": query, "results": results, "result_count": len(results)}, nil
	}
}
