package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/procurer/internal/config"
	"github.com/harun/procurer/internal/logger"
	"github.com/harun/procurer/internal/tracing"
	"github.com/harun/procurer/pkg/elevenlabs"
)

// loadConfig reads the config file and environment and applies --log-level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

// initTracing installs the tracer provider when enabled and returns its
// shutdown func. The returned func is never nil.
func initTracing(cfg *config.Config, log zerolog.Logger) func() {
	if !cfg.Tracing.Enabled {
		return func() {}
	}
	if err := tracing.InitOpenTelemetry(cfg.Tracing.ServiceName); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing")
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}
}

func newElevenLabsClient(cfg *config.Config) *elevenlabs.Client {
	timeout := time.Duration(cfg.ElevenLabs.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return elevenlabs.NewClient(cfg.ElevenLabs.APIKey, cfg.ElevenLabs.BaseURL, &http.Client{Timeout: timeout})
}
