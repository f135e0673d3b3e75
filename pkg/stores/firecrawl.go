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

const defaultFirecrawlBaseURL = "https://api.firecrawl.dev"

// Page is a scraped web page.
type Page struct {
	URL     string
	Title   string
	Content string
}

// FirecrawlClient scrapes pages through the Firecrawl API.
type FirecrawlClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewFirecrawlClient creates a client. An empty baseURL selects the public API.
func NewFirecrawlClient(apiKey, baseURL string, httpClient *http.Client) *FirecrawlClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultFirecrawlBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 40 * time.Second}
	}
	return &FirecrawlClient{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Configured reports whether an API key is set.
func (c *FirecrawlClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Fetch scrapes targetURL and returns its main content as markdown.
func (c *FirecrawlClient) Fetch(ctx context.Context, targetURL string) (page *Page, err error) {
	ctx, span := tracing.StartSpan(ctx, "firecrawl.scrape", attribute.String("scrape.url", targetURL))
	defer func() { tracing.EndSpan(span, err) }()

	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(targetURL) == "" {
		return nil, fmt.Errorf("url is required")
	}

	body, err := json.Marshal(map[string]any{
		"url":             targetURL,
		"formats":         []string{"markdown"},
		"onlyMainContent": true,
		"timeout":         30000,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firecrawl request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return nil, fmt.Errorf("firecrawl error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var decoded struct {
		Success bool `json:"success"`
		Data    struct {
			Markdown string `json:"markdown"`
			HTML     string `json:"html"`
			Metadata struct {
				Title string `json:"title"`
				Error string `json:"error"`
			} `json:"metadata"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !decoded.Success {
		msg := strings.TrimSpace(decoded.Data.Metadata.Error)
		if msg == "" {
			msg = "scrape failed"
		}
		return nil, fmt.Errorf("firecrawl: %s", msg)
	}

	content := decoded.Data.Markdown
	if content == "" {
		content = decoded.Data.HTML
	}

	return &Page{URL: targetURL, Title: decoded.Data.Metadata.Title, Content: content}, nil
}
