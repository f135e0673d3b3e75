package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardRun(t *testing.T) {
	t.Run("accepts defaults", func(t *testing.T) {
		in := strings.NewReader("sk_key\n\n\n\n\n\n")
		out := &bytes.Buffer{}

		cfg, err := NewWizardWithIO(in, out).Run()
		require.NoError(t, err)

		assert.Equal(t, "sk_key", cfg.ElevenLabs.APIKey)
		assert.Equal(t, DefaultAgentID, cfg.ElevenLabs.AgentID)
		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Contains(t, out.String(), "Configuration complete!")
	})

	t.Run("re-prompts on invalid answers", func(t *testing.T) {
		answers := []string{
			"",             // empty key rejected
			"sk_key",       // key
			"not-an-agent", // rejected
			"agent_abc123", // agent id
			"valyu-key",
			"",
			"99999", // rejected
			"8081",
			"loud", // rejected
			"debug",
		}
		in := strings.NewReader(strings.Join(answers, "\n") + "\n")
		out := &bytes.Buffer{}

		cfg, err := NewWizardWithIO(in, out).Run()
		require.NoError(t, err)

		assert.Equal(t, "agent_abc123", cfg.ElevenLabs.AgentID)
		assert.Equal(t, "valyu-key", cfg.Search.ValyuAPIKey)
		assert.Empty(t, cfg.Search.FirecrawlAPIKey)
		assert.Equal(t, 8081, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, 4, strings.Count(out.String(), "Error:"))
	})

	t.Run("input ends early", func(t *testing.T) {
		_, err := NewWizardWithIO(strings.NewReader(""), &bytes.Buffer{}).Run()
		assert.Error(t, err)
	})
}
