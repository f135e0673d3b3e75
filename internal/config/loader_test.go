package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.json", loader.configPath)
}

func TestLoaderLoad(t *testing.T) {
	t.Run("load default config when file doesn't exist", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "nonexistent.json")
		t.Setenv("PROCURER_DATA_DIR", tmpDir)

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, DefaultAgentID, cfg.ElevenLabs.AgentID)
		assert.Equal(t, 3000, cfg.Server.Port)
		assert.False(t, cfg.Server.TrustProxyHeaders)
		assert.Equal(t, filepath.Join(tmpDir, "procurer.db"), cfg.Store.DBPath)
	})

	t.Run("load config from file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")

		testConfig := `{
			"elevenlabs": {
				"api_key": "sk_file_key",
				"agent_id": "agent_fromfile"
			},
			"server": {
				"port": 9090,
				"trust_proxy_headers": true
			},
			"data_dir": "` + filepath.ToSlash(tmpDir) + `"
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, "sk_file_key", cfg.ElevenLabs.APIKey)
		assert.Equal(t, "agent_fromfile", cfg.ElevenLabs.AgentID)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.True(t, cfg.Server.TrustProxyHeaders)
		// Untouched sections keep their defaults.
		assert.Equal(t, 10, cfg.Search.MaxResults)
	})

	t.Run("provider keys from environment", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("PROCURER_DATA_DIR", tmpDir)
		t.Setenv("ELEVENLABS_API_KEY", "sk_env_key")
		t.Setenv("VALYU_API_KEY", "valyu-env")
		t.Setenv("FIRECRAWL_API_KEY", "fc-env")

		cfg, err := NewLoader(filepath.Join(tmpDir, "missing.json")).Load()

		require.NoError(t, err)
		assert.Equal(t, "sk_env_key", cfg.ElevenLabs.APIKey)
		assert.Equal(t, "valyu-env", cfg.Search.ValyuAPIKey)
		assert.Equal(t, "fc-env", cfg.Search.FirecrawlAPIKey)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "invalid.json")

		require.NoError(t, os.WriteFile(configPath, []byte("invalid json"), 0644))

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})
}

func TestLoaderSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "procurer.json")

	cfg := DefaultConfig()
	cfg.ElevenLabs.AgentID = "agent_saved"
	cfg.Server.Port = 4000
	cfg.DataDir = tmpDir

	loader := NewLoader(configPath)
	require.NoError(t, loader.Save(cfg))

	_, err := os.Stat(configPath)
	require.NoError(t, err)

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "agent_saved", loaded.ElevenLabs.AgentID)
	assert.Equal(t, 4000, loaded.Server.Port)
}

func TestGetConfigPath(t *testing.T) {
	t.Run("custom path", func(t *testing.T) {
		loader := NewLoader("/custom/path.json")
		assert.Equal(t, "/custom/path.json", loader.GetConfigPath())
	})

	t.Run("default path", func(t *testing.T) {
		loader := NewLoader("")
		assert.Contains(t, loader.GetConfigPath(), filepath.Join(".procurer", "procurer.json"))
	})
}
