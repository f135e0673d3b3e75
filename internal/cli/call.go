package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/procurer/pkg/callflow"
	"github.com/harun/procurer/pkg/elevenlabs"
)

var (
	callServer   string
	callYes      bool
	callDuration time.Duration
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Place a test call from the terminal",
	Long: `Run the call flow against a running procurer server: ask for microphone
consent, fetch a signed URL from the server and open the realtime session.
Agent and user text is printed until Ctrl+C, the session ends or --duration elapses.`,
	Args: cobra.NoArgs,
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&callServer, "server", "", "procurer server URL (default http://localhost:<server.port>)")
	callCmd.Flags().BoolVarP(&callYes, "yes", "y", false, "skip the microphone consent prompt")
	callCmd.Flags().DurationVar(&callDuration, "duration", 0, "end the call after this long (0 waits for Ctrl+C)")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	server := callServer
	if server == "" {
		server = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if callDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, callDuration)
		defer cancel()
	}

	out := cmd.OutOrStdout()
	return placeCall(ctx, callflow.Options{
		Permission: callflow.ConsentPrompt{In: cmd.InOrStdin(), Out: out, AssumeYes: callYes},
		Source:     callflow.NewHTTPSignedURLSource(server),
		Dialer:     callflow.ElevenLabsDialer{Options: elevenlabs.DialOptions{Logger: log.GetZerolog()}},
		Logger:     log.GetZerolog(),
	}, out)
}

// placeCall runs one call until ctx is done or the remote side hangs up.
// opts.OnChange and opts.OnEvent are replaced.
func placeCall(ctx context.Context, opts callflow.Options, out io.Writer) error {
	var (
		mu        sync.Mutex
		connected bool
		endOnce   sync.Once
	)
	ended := make(chan struct{})

	opts.OnChange = func(s callflow.State) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Fprintf(out, "* %s\n", s.Label())
		if s.Err != "" {
			fmt.Fprintf(out, "! %s\n", s.Err)
		}
		switch s.Status {
		case callflow.StatusConnected:
			connected = true
		case callflow.StatusDisconnected:
			if connected {
				endOnce.Do(func() { close(ended) })
			}
		}
	}
	opts.OnEvent = func(ev elevenlabs.Event) {
		mu.Lock()
		defer mu.Unlock()

		text := strings.TrimSpace(ev.Text)
		switch ev.Type {
		case elevenlabs.EventAgentResponse:
			fmt.Fprintf(out, "agent: %s\n", text)
		case elevenlabs.EventUserTranscript:
			fmt.Fprintf(out, "you:   %s\n", text)
		case elevenlabs.EventError:
			fmt.Fprintf(out, "error: %s\n", text)
		}
	}

	ctrl, err := callflow.NewController(opts)
	if err != nil {
		return err
	}

	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	if ctrl.Snapshot().Status != callflow.StatusConnected {
		return nil
	}

	select {
	case <-ctx.Done():
	case <-ended:
		return nil
	}

	return ctrl.Stop()
}
