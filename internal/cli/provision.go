package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harun/procurer/internal/metrics"
	"github.com/harun/procurer/pkg/elevenlabs"
	"github.com/harun/procurer/pkg/persona"
)

var (
	provisionPersona string
	provisionName    string
	provisionDryRun  bool
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create the voice agent on ElevenLabs",
	Long: `Create a conversational agent from a persona file (or the built-in plumber
persona) and print its agent id. The agent is created once; failures are not retried.`,
	Args: cobra.NoArgs,
	RunE: runProvision,
}

func init() {
	provisionCmd.Flags().StringVar(&provisionPersona, "persona", "", "persona YAML file (default: config persona_path, then built-in)")
	provisionCmd.Flags().StringVar(&provisionName, "name", "", "override the agent name")
	provisionCmd.Flags().BoolVar(&provisionDryRun, "dry-run", false, "print the create-agent request instead of sending it")
	rootCmd.AddCommand(provisionCmd)
}

// AgentCreator creates a hosted agent.
type AgentCreator interface {
	CreateAgent(ctx context.Context, req elevenlabs.CreateAgentRequest) (string, error)
}

func runProvision(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	base := log.Component("provision")
	defer initTracing(cfg, base)()

	path := provisionPersona
	if path == "" {
		path = cfg.PersonaPath
	}
	p, err := persona.LoadOrDefault(path)
	if err != nil {
		return fmt.Errorf("failed to load persona: %w", err)
	}
	if provisionName != "" {
		p.Name = provisionName
		if err := p.Validate(); err != nil {
			return fmt.Errorf("invalid --name: %w", err)
		}
	}

	req := p.AgentRequest()

	if provisionDryRun {
		return writeAgentRequest(cmd.OutOrStdout(), req)
	}

	client := newElevenLabsClient(cfg)
	if !client.Configured() {
		return errors.New("ELEVENLABS_API_KEY is not set")
	}

	agentID, err := provisionAgent(cmd.Context(), client, req, metrics.NewMetrics(), base)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Agent created: %s\n", agentID)
	return nil
}

// provisionAgent sends req exactly once.
func provisionAgent(ctx context.Context, creator AgentCreator, req elevenlabs.CreateAgentRequest, m *metrics.Metrics, log zerolog.Logger) (string, error) {
	start := time.Now()
	agentID, err := creator.CreateAgent(ctx, req)
	m.ObserveProvider("create_agent", start)

	if err != nil {
		if m != nil {
			m.AgentProvisionsTotal.WithLabelValues("error").Inc()
		}
		log.Error().Err(err).Str("name", req.Name).Msg("Failed to create agent")
		return "", fmt.Errorf("failed to create agent: %w", err)
	}

	if m != nil {
		m.AgentProvisionsTotal.WithLabelValues("ok").Inc()
	}
	log.Info().Str("agent_id", agentID).Str("name", req.Name).Msg("Agent created")
	return agentID, nil
}

func writeAgentRequest(w io.Writer, req elevenlabs.CreateAgentRequest) error {
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
