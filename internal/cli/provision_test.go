package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/harun/procurer/internal/metrics"
	"github.com/harun/procurer/pkg/elevenlabs"
	"github.com/harun/procurer/pkg/persona"
)

type mockCreator struct{ mock.Mock }

func (m *mockCreator) CreateAgent(ctx context.Context, req elevenlabs.CreateAgentRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestProvisionAgent(t *testing.T) {
	req := persona.Default().AgentRequest()

	t.Run("success", func(t *testing.T) {
		creator := &mockCreator{}
		creator.On("CreateAgent", mock.Anything, req).Return("agent_new_1", nil).Once()
		m := metrics.NewMetrics()

		id, err := provisionAgent(context.Background(), creator, req, m, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, "agent_new_1", id)
		assert.Contains(t, scrape(t, m), `agent_provisions_total{status="ok"} 1`)
		creator.AssertExpectations(t)
	})

	t.Run("failure is not retried", func(t *testing.T) {
		creator := &mockCreator{}
		apiErr := &elevenlabs.APIError{StatusCode: 422, Body: `{"detail":"bad voice"}`}
		creator.On("CreateAgent", mock.Anything, req).Return("", apiErr).Once()
		m := metrics.NewMetrics()

		_, err := provisionAgent(context.Background(), creator, req, m, zerolog.Nop())
		require.Error(t, err)

		var target *elevenlabs.APIError
		assert.True(t, errors.As(err, &target))
		assert.Contains(t, scrape(t, m), `agent_provisions_total{status="error"} 1`)
		creator.AssertNumberOfCalls(t, "CreateAgent", 1)
	})

	t.Run("nil metrics", func(t *testing.T) {
		creator := &mockCreator{}
		creator.On("CreateAgent", mock.Anything, req).Return("agent_x", nil)

		_, err := provisionAgent(context.Background(), creator, req, nil, zerolog.Nop())
		assert.NoError(t, err)
	})
}

func TestProvisionDryRun(t *testing.T) {
	dir := t.TempDir()
	personaPath := filepath.Join(dir, "tiler.yaml")
	require.NoError(t, os.WriteFile(personaPath, []byte(`
name: Tile Finder
prompt: You call tile shops asking for grout.
first_message: Hi, do you have a moment?
language: en
voice_id: voice_123
`), 0o644))

	t.Cleanup(func() {
		cfgFile = ""
		provisionPersona = ""
		provisionName = ""
		provisionDryRun = false
	})

	cmd := GetRootCmd()
	cmd.SetArgs([]string{
		"provision",
		"--config", filepath.Join(dir, "missing.json"),
		"--persona", personaPath,
		"--name", "Tile Finder v2",
		"--dry-run",
	})
	output := &bytes.Buffer{}
	cmd.SetOut(output)

	require.NoError(t, cmd.Execute())

	var req elevenlabs.CreateAgentRequest
	require.NoError(t, json.Unmarshal(output.Bytes(), &req))
	assert.Equal(t, "Tile Finder v2", req.Name)
	assert.Equal(t, "Hi, do you have a moment?", req.ConversationConfig.Agent.FirstMessage)
	require.NotNil(t, req.ConversationConfig.TTS)
	assert.Equal(t, "voice_123", req.ConversationConfig.TTS.VoiceID)
}

func TestProvisionRejectsBlankNameOverride(t *testing.T) {
	dir := t.TempDir()

	t.Cleanup(func() {
		cfgFile = ""
		provisionPersona = ""
		provisionName = ""
		provisionDryRun = false
	})

	cmd := GetRootCmd()
	cmd.SetArgs([]string{
		"provision",
		"--config", filepath.Join(dir, "missing.json"),
		"--name", "   ",
		"--dry-run",
	})
	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { cmd.SetErr(nil) })

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --name")
	assert.Empty(t, output.String())
}
