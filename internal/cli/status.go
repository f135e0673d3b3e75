package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var statusServer string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long:  `Show the health of a running procurer server.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusServer, "server", "", "procurer server URL (default http://localhost:<server.port>)")
	rootCmd.AddCommand(statusCmd)
}

type healthReport struct {
	Status          string  `json:"status"`
	Uptime          float64 `json:"uptime"`
	SearchAvailable bool    `json:"search_available"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	server := statusServer
	if server == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		server = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	report, err := fetchHealth(ctx, http.DefaultClient, server)
	out := cmd.OutOrStdout()
	if err != nil {
		fmt.Fprintln(out, "Status: stopped")
		fmt.Fprintf(out, "Error: %v\n", err)
		return nil
	}

	search := "disabled"
	if report.SearchAvailable {
		search = "enabled"
	}
	fmt.Fprintf(out, "Status: %s\n", report.Status)
	fmt.Fprintf(out, "Server: %s\n", server)
	fmt.Fprintf(out, "Uptime: %s\n", formatDuration(time.Duration(report.Uptime*float64(time.Second))))
	fmt.Fprintf(out, "Store search: %s\n", search)

	return nil
}

func fetchHealth(ctx context.Context, client *http.Client, server string) (*healthReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(server, "/")+"/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("health check returned %s", resp.Status)
	}

	var report healthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("invalid health response: %w", err)
	}
	return &report, nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
