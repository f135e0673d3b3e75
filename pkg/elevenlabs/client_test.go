package elevenlabs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("  key  ", "", nil)
	assert.Equal(t, "https://api.elevenlabs.io", c.BaseURL())
	assert.True(t, c.Configured())
	assert.Equal(t, "key", c.apiKey)

	c = NewClient("", "http://localhost:9999/", nil)
	assert.Equal(t, "http://localhost:9999", c.BaseURL())
	assert.False(t, c.Configured())

	var nilClient *Client
	assert.False(t, nilClient.Configured())
}

func TestGetSignedURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/convai/conversation/get_signed_url", r.URL.Path)
		assert.Equal(t, "agent_abc123", r.URL.Query().Get("agent_id"))
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))
		_, _ = w.Write([]byte(`{"signed_url":"wss://example.test/convai?conversation_signature=xyz"}`))
	}))
	defer srv.Close()

	c := NewClient("secret", srv.URL, srv.Client())
	got, err := c.GetSignedURL(context.Background(), "agent_abc123")
	require.NoError(t, err)
	assert.Equal(t, "wss://example.test/convai?conversation_signature=xyz", got)
}

func TestGetSignedURLErrors(t *testing.T) {
	t.Run("non-success status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"invalid api key"}`))
		}))
		defer srv.Close()

		_, err := NewClient("bad", srv.URL, srv.Client()).GetSignedURL(context.Background(), "agent_x")
		require.Error(t, err)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "get_signed_url", apiErr.Operation)
		assert.Contains(t, apiErr.Body, "invalid api key")
	})

	t.Run("missing signed_url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		_, err := NewClient("k", srv.URL, srv.Client()).GetSignedURL(context.Background(), "agent_x")
		assert.ErrorIs(t, err, ErrMissingSignedURL)
	})

	t.Run("not configured", func(t *testing.T) {
		_, err := NewClient("", "http://127.0.0.1:1", nil).GetSignedURL(context.Background(), "agent_x")
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("empty agent id", func(t *testing.T) {
		_, err := NewClient("k", "http://127.0.0.1:1", nil).GetSignedURL(context.Background(), " ")
		assert.Error(t, err)
	})

	t.Run("error body is truncated", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(strings.Repeat("x", maxErrorBody*2)))
		}))
		defer srv.Close()

		_, err := NewClient("k", srv.URL, srv.Client()).GetSignedURL(context.Background(), "agent_x")
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Len(t, apiErr.Body, maxErrorBody)
	})
}

func TestCreateAgent(t *testing.T) {
	var received CreateAgentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/convai/agents/create", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"agent_id":"agent_new1"}`))
	}))
	defer srv.Close()

	req := CreateAgentRequest{
		Name: "Plumbing Parts Procurer",
		ConversationConfig: ConversationConfig{
			Agent: AgentConfig{
				Prompt:       PromptConfig{Prompt: "You call plumbing shops."},
				FirstMessage: "Hello",
				Language:     "en",
			},
		},
	}

	id, err := NewClient("secret", srv.URL, srv.Client()).CreateAgent(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "agent_new1", id)
	assert.Equal(t, "Plumbing Parts Procurer", received.Name)
	assert.Equal(t, "You call plumbing shops.", received.ConversationConfig.Agent.Prompt.Prompt)
	assert.Nil(t, received.ConversationConfig.TTS)
}

func TestCreateAgentErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", srv.URL, srv.Client()).CreateAgent(context.Background(), CreateAgentRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrMissingAgentID)

	_, err = NewClient("", srv.URL, srv.Client()).CreateAgent(context.Background(), CreateAgentRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{Operation: "create_agent", StatusCode: 422, Body: "bad prompt"}
	assert.Equal(t, "elevenlabs create_agent failed (status 422): bad prompt", err.Error())
}
