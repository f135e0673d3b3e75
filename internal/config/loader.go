package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file and environment.
// A missing file is not an error: defaults plus environment are used.
func (l *Loader) Load() (*Config, error) {
	configPath := l.GetConfigPath()

	v := viper.New()
	v.SetConfigType("json")

	// PROCURER_SERVER_PORT -> server.port
	v.SetEnvPrefix("PROCURER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional provider variables work without the prefix.
	_ = v.BindEnv("elevenlabs.api_key", "PROCURER_ELEVENLABS_API_KEY", "ELEVENLABS_API_KEY")
	_ = v.BindEnv("elevenlabs.agent_id", "PROCURER_ELEVENLABS_AGENT_ID", "ELEVENLABS_AGENT_ID")
	_ = v.BindEnv("search.valyu_api_key", "PROCURER_SEARCH_VALYU_API_KEY", "VALYU_API_KEY")
	_ = v.BindEnv("search.firecrawl_api_key", "PROCURER_SEARCH_FIRECRAWL_API_KEY", "FIRECRAWL_API_KEY")
	_ = v.BindEnv("server.port", "PROCURER_SERVER_PORT", "PORT")
	_ = v.BindEnv("logging.level", "PROCURER_LOGGING_LEVEL")
	_ = v.BindEnv("data_dir", "PROCURER_DATA_DIR")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Environment-only values are not seen by Unmarshal unless a key exists.
	for key, dst := range map[string]*string{
		"elevenlabs.api_key":       &cfg.ElevenLabs.APIKey,
		"elevenlabs.agent_id":      &cfg.ElevenLabs.AgentID,
		"search.valyu_api_key":     &cfg.Search.ValyuAPIKey,
		"search.firecrawl_api_key": &cfg.Search.FirecrawlAPIKey,
		"logging.level":            &cfg.Logging.Level,
		"data_dir":                 &cfg.DataDir,
	} {
		if val := v.GetString(key); val != "" {
			*dst = val
		}
	}
	if port := v.GetInt("server.port"); port != 0 {
		cfg.Server.Port = port
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".procurer")
	}

	if cfg.Store.DBPath == "" {
		cfg.Store.DBPath = filepath.Join(cfg.DataDir, "procurer.db")
	}

	return cfg, nil
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	configPath := l.GetConfigPath()
	if configPath == "" {
		return fmt.Errorf("failed to resolve config path")
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("elevenlabs", cfg.ElevenLabs)
	v.Set("persona_path", cfg.PersonaPath)
	v.Set("server", cfg.Server)
	v.Set("search", cfg.Search)
	v.Set("store", cfg.Store)
	v.Set("logging", cfg.Logging)
	v.Set("tracing", cfg.Tracing)
	v.Set("data_dir", cfg.DataDir)

	if err := v.WriteConfig(); err != nil {
		if os.IsNotExist(err) {
			if err := v.SafeWriteConfig(); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
		} else {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".procurer", "procurer.json")
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
