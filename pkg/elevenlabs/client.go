package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/harun/procurer/internal/tracing"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// maxErrorBody bounds how much of a failed provider response is kept.
const maxErrorBody = 8192

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("elevenlabs api key is not configured")
	// ErrMissingSignedURL is returned when a successful response has no signed_url.
	ErrMissingSignedURL = errors.New("elevenlabs response has no signed_url")
	// ErrMissingAgentID is returned when agent creation succeeds without an agent_id.
	ErrMissingAgentID = errors.New("elevenlabs response has no agent_id")
)

// APIError is a non-success response from the provider.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elevenlabs %s failed (status %d): %s", e.Operation, e.StatusCode, e.Body)
}

// Client calls the ElevenLabs Conversational AI REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. An empty baseURL selects the public API and a
// nil httpClient a client with a 15s timeout.
func NewClient(apiKey, baseURL string, httpClient *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// BaseURL returns the REST base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateAgent creates a conversational agent and returns its id.
func (c *Client) CreateAgent(ctx context.Context, req CreateAgentRequest) (agentID string, err error) {
	ctx, span := tracing.StartSpan(ctx, "elevenlabs.create_agent", attribute.String("agent.name", req.Name))
	defer func() { tracing.EndSpan(span, err) }()

	if !c.Configured() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var decoded struct {
		AgentID string `json:"agent_id"`
	}
	if err := c.do(ctx, "create_agent", http.MethodPost, "/v1/convai/agents/create", bytes.NewReader(body), &decoded); err != nil {
		return "", err
	}
	if decoded.AgentID == "" {
		return "", ErrMissingAgentID
	}
	return decoded.AgentID, nil
}

// GetSignedURL asks the provider for a short-lived session URL for agentID.
func (c *Client) GetSignedURL(ctx context.Context, agentID string) (signedURL string, err error) {
	ctx, span := tracing.StartSpan(ctx, "elevenlabs.get_signed_url", attribute.String("agent.id", agentID))
	defer func() { tracing.EndSpan(span, err) }()

	if !c.Configured() {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(agentID) == "" {
		return "", fmt.Errorf("agent id is required")
	}

	path := "/v1/convai/conversation/get_signed_url?agent_id=" + url.QueryEscape(agentID)

	var decoded struct {
		SignedURL string `json:"signed_url"`
	}
	if err := c.do(ctx, "get_signed_url", http.MethodGet, path, nil, &decoded); err != nil {
		return "", err
	}
	if decoded.SignedURL == "" {
		return "", ErrMissingSignedURL
	}
	return decoded.SignedURL, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(b)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
