package stores

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/harun/procurer/internal/tracing"
)

const defaultValyuBaseURL = "https://api.valyu.ai"

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// ValyuClient calls the Valyu search API.
type ValyuClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewValyuClient creates a client. An empty baseURL selects the public API.
func NewValyuClient(apiKey, baseURL string, httpClient *http.Client) *ValyuClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultValyuBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &ValyuClient{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Configured reports whether an API key is set.
func (c *ValyuClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Search runs a GB web search restricted to plumbing suppliers.
func (c *ValyuClient) Search(ctx context.Context, query string, maxResults int) (results []Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "valyu.search", attribute.Int("search.max_results", maxResults))
	defer func() { tracing.EndSpan(span, err) }()

	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	body, err := json.Marshal(map[string]any{
		"query":           query,
		"search_type":     "web",
		"max_num_results": maxResults,
		"country_code":    "GB",
		"category":        "plumbing supplies",
		"is_tool_call":    true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/deepsearch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("valyu request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return nil, fmt.Errorf("valyu error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var decoded struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
		Results []struct {
			Title       string          `json:"title"`
			URL         string          `json:"url"`
			Content     json.RawMessage `json:"content"`
			Description string          `json:"description"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Success != nil && !*decoded.Success {
		msg := strings.TrimSpace(decoded.Error)
		if msg == "" {
			msg = "search failed"
		}
		return nil, fmt.Errorf("valyu: %s", msg)
	}

	results = make([]Result, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		content := textContent(r.Content)
		if content == "" {
			content = r.Description
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Content: content})
	}

	return results, nil
}

// textContent returns content when it is a JSON string. Structured content
// is kept as its raw JSON text.
func textContent(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
