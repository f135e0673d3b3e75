package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/procurer/internal/metrics"
	"github.com/harun/procurer/pkg/api"
	"github.com/harun/procurer/pkg/persona"
	"github.com/harun/procurer/pkg/procurement"
	"github.com/harun/procurer/pkg/stores"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the call page and API",
	Long: `Serve the browser call page, the signed-URL endpoint and the procurement
API until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	base := log.GetZerolog()
	defer initTracing(cfg, base)()

	m := metrics.NewMetrics()

	voice := newElevenLabsClient(cfg)
	if !voice.Configured() {
		log.Warn().Msg("ELEVENLABS_API_KEY is not set; signed URL requests will fail")
	}

	p, err := persona.LoadOrDefault(cfg.PersonaPath)
	if err != nil {
		return fmt.Errorf("failed to load persona: %w", err)
	}

	records, err := procurement.Open(cfg.Store.DBPath, base)
	if err != nil {
		return err
	}
	defer records.Close()

	retention, err := procurement.NewRetention(records, cfg.Store.RetentionDays, cfg.Store.PurgeSchedule, base,
		func(n int64) { m.RecordsPurgedTotal.Add(float64(n)) })
	if err != nil {
		return fmt.Errorf("invalid retention settings: %w", err)
	}
	retention.Start()
	defer retention.Stop()

	searchHTTP := &http.Client{Timeout: 30 * time.Second}
	finder := stores.NewFinder(
		stores.NewValyuClient(cfg.Search.ValyuAPIKey, cfg.Search.ValyuBaseURL, searchHTTP),
		stores.NewFirecrawlClient(cfg.Search.FirecrawlAPIKey, cfg.Search.FirecrawlBaseURL, searchHTTP),
		cfg.Search.MaxResults,
		base,
	)
	if !finder.Available() {
		log.Warn().Msg("VALYU_API_KEY is not set; store search is disabled")
	}

	server, err := api.NewServer(api.Options{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		AgentID:            cfg.ElevenLabs.AgentID,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		TrustProxyHeaders:  cfg.Server.TrustProxyHeaders,
	}, api.Deps{
		SignedURLs: voice,
		Finder:     finder,
		Records:    records,
		Metrics:    m,
		Persona:    p,
	}, base)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if cfg.PersonaPath != "" {
		watcher, err := persona.NewWatcher(cfg.PersonaPath, base, server.SetPersona)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.PersonaPath).Msg("Persona hot reload disabled")
		} else {
			defer watcher.Stop()
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info().
		Str("addr", server.Addr()).
		Str("agent_id", cfg.ElevenLabs.AgentID).
		Msg("Procurer is serving")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return server.Stop(shutdownCtx)
}
