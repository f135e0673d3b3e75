package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultAgentID is the agent the signed-URL endpoint issues sessions for
// unless the config overrides it.
const DefaultAgentID = "agent_6101kap5qq6wfyn9sddyrrgrz77k"

// Config represents the main procurer configuration
type Config struct {
	// Voice platform
	ElevenLabs ElevenLabsConfig `json:"elevenlabs" mapstructure:"elevenlabs"`

	// Persona file used by provision and the call page
	PersonaPath string `json:"persona_path" mapstructure:"persona_path"`

	// HTTP server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Store search
	Search SearchConfig `json:"search" mapstructure:"search"`

	// Procurement record storage
	Store StoreConfig `json:"store" mapstructure:"store"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Tracing
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ElevenLabsConfig holds voice platform credentials and the target agent
type ElevenLabsConfig struct {
	APIKey  string `json:"api_key" mapstructure:"api_key"`
	AgentID string `json:"agent_id" mapstructure:"agent_id"`
	BaseURL string `json:"base_url" mapstructure:"base_url"`
	Timeout int    `json:"timeout" mapstructure:"timeout"` // seconds
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host               string   `json:"host" mapstructure:"host"`
	Port               int      `json:"port" mapstructure:"port"`
	RateLimitPerMinute int      `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" mapstructure:"cors_allowed_origins"`
	ShutdownTimeout    int      `json:"shutdown_timeout" mapstructure:"shutdown_timeout"` // seconds
	TrustProxyHeaders  bool     `json:"trust_proxy_headers" mapstructure:"trust_proxy_headers"`
}

// SearchConfig holds store finder credentials
type SearchConfig struct {
	ValyuAPIKey      string `json:"valyu_api_key" mapstructure:"valyu_api_key"`
	ValyuBaseURL     string `json:"valyu_base_url" mapstructure:"valyu_base_url"`
	FirecrawlAPIKey  string `json:"firecrawl_api_key" mapstructure:"firecrawl_api_key"`
	FirecrawlBaseURL string `json:"firecrawl_base_url" mapstructure:"firecrawl_base_url"`
	MaxResults       int    `json:"max_results" mapstructure:"max_results"`
}

// StoreConfig holds procurement storage settings
type StoreConfig struct {
	DBPath        string `json:"db_path" mapstructure:"db_path"`
	RetentionDays int    `json:"retention_days" mapstructure:"retention_days"` // 0 keeps records forever
	PurgeSchedule string `json:"purge_schedule" mapstructure:"purge_schedule"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"service_name" mapstructure:"service_name"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		ElevenLabs: ElevenLabsConfig{
			AgentID: DefaultAgentID,
			BaseURL: "https://api.elevenlabs.io",
			Timeout: 15,
		},
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               3000,
			RateLimitPerMinute: 30,
			CORSAllowedOrigins: []string{},
			ShutdownTimeout:    10,
		},
		Search: SearchConfig{
			ValyuBaseURL:     "https://api.valyu.ai",
			FirecrawlBaseURL: "https://api.firecrawl.dev",
			MaxResults:       10,
		},
		Store: StoreConfig{
			RetentionDays: 30,
			PurgeSchedule: "@daily",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			Redaction: true,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "procurer",
		},
	}
}

// Addr returns the host:port the server listens on
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	masked := *c
	masked.ElevenLabs.APIKey = mask(c.ElevenLabs.APIKey)
	masked.Search.ValyuAPIKey = mask(c.Search.ValyuAPIKey)
	masked.Search.FirecrawlAPIKey = mask(c.Search.FirecrawlAPIKey)
	data, _ := json.MarshalIndent(&masked, "", "  ")
	return string(data)
}

// Validate checks if the configuration is usable for serving calls
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ElevenLabs.AgentID) == "" {
		return fmt.Errorf("elevenlabs agent_id is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate_limit_per_minute must not be negative, got %d", c.Server.RateLimitPerMinute)
	}
	if c.Store.RetentionDays < 0 {
		return fmt.Errorf("retention_days must not be negative, got %d", c.Store.RetentionDays)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search max_results must be positive, got %d", c.Search.MaxResults)
	}
	return nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
