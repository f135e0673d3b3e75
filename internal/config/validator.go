package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

var agentIDPattern = regexp.MustCompile(`^agent_[a-z0-9]+$`)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}
	if strings.ContainsAny(key, " \t\r\n") {
		return fmt.Errorf("%s API key must not contain whitespace", provider)
	}
	return nil
}

// ValidateAgentID validates a voice platform agent identifier
func (v *Validator) ValidateAgentID(id string) error {
	if id == "" {
		return fmt.Errorf("agent id cannot be empty")
	}
	if !agentIDPattern.MatchString(id) {
		return fmt.Errorf("invalid agent id format: %s (should look like agent_xxxx)", id)
	}
	return nil
}

// ValidateBaseURL validates a provider base URL
func (v *Validator) ValidateBaseURL(raw string) error {
	if raw == "" {
		return nil // Use default
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base url %q: missing host", raw)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidatePurgeSchedule validates the retention sweep cron expression
func (v *Validator) ValidatePurgeSchedule(expr string) error {
	if expr == "" {
		return nil // Use default
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", expr, err)
	}
	return nil
}

// ValidateOrigins validates CORS origins
func (v *Validator) ValidateOrigins(origins []string) error {
	for _, origin := range origins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" || u.Path != "" {
			return fmt.Errorf("invalid CORS origin: %s (expected scheme://host[:port])", origin)
		}
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := cfg.Validate(); err != nil {
		errors = append(errors, err)
	}

	if cfg.ElevenLabs.APIKey != "" {
		if err := v.ValidateAPIKey(cfg.ElevenLabs.APIKey, "elevenlabs"); err != nil {
			errors = append(errors, err)
		}
	}
	if err := v.ValidateAgentID(cfg.ElevenLabs.AgentID); err != nil {
		errors = append(errors, err)
	}

	for name, raw := range map[string]string{
		"elevenlabs": cfg.ElevenLabs.BaseURL,
		"valyu":      cfg.Search.ValyuBaseURL,
		"firecrawl":  cfg.Search.FirecrawlBaseURL,
	} {
		if err := v.ValidateBaseURL(raw); err != nil {
			errors = append(errors, fmt.Errorf("%s: %w", name, err))
		}
	}

	if err := v.ValidateOrigins(cfg.Server.CORSAllowedOrigins); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidatePurgeSchedule(cfg.Store.PurgeSchedule); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
