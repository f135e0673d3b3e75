package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/procurer/pkg/procurement"
)

var (
	listLimit int
	listJSON  bool
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Inspect recorded procurement requests",
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List procurement requests, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRequestsList,
}

var reservationsCmd = &cobra.Command{
	Use:   "reservations",
	Short: "List reservation outcomes reported by the agent, newest first",
	Args:  cobra.NoArgs,
	RunE:  runReservationsList,
}

func init() {
	for _, c := range []*cobra.Command{requestsListCmd, reservationsCmd} {
		c.Flags().IntVar(&listLimit, "limit", 20, "maximum rows to show (0 for all)")
		c.Flags().BoolVar(&listJSON, "json", false, "print JSON instead of a table")
	}
	requestsCmd.AddCommand(requestsListCmd)
	rootCmd.AddCommand(requestsCmd)
	rootCmd.AddCommand(reservationsCmd)
}

func openRecords() (*procurement.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := procurement.Open(cfg.Store.DBPath, log.Component("cli"))
	if err != nil {
		log.Close()
		return nil, nil, err
	}
	return store, func() {
		store.Close()
		log.Close()
	}, nil
}

func runRequestsList(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openRecords()
	if err != nil {
		return err
	}
	defer closeFn()

	return printRequests(cmd.Context(), cmd.OutOrStdout(), store, listLimit, listJSON)
}

func runReservationsList(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openRecords()
	if err != nil {
		return err
	}
	defer closeFn()

	return printReservations(cmd.Context(), cmd.OutOrStdout(), store, listLimit, listJSON)
}

func printRequests(ctx context.Context, w io.Writer, store *procurement.Store, limit int, asJSON bool) error {
	requests, err := store.ListRequests(ctx, limit)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(w, map[string]any{"total": len(requests), "requests": requests})
	}
	if len(requests) == 0 {
		fmt.Fprintln(w, "No procurement requests recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPART\tPOSTCODE\tRECEIVED")
	for _, r := range requests {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Part, r.Postcode, r.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func printReservations(ctx context.Context, w io.Writer, store *procurement.Store, limit int, asJSON bool) error {
	reservations, err := store.ListReservations(ctx, limit)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(w, map[string]any{"total": len(reservations), "reservations": reservations})
	}
	if len(reservations) == 0 {
		fmt.Fprintln(w, "No reservations recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAVAILABLE\tPRICE\tPICKUP\tNOTES")
	for _, r := range reservations {
		available := "no"
		if r.ItemAvailable {
			available = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n", r.ID, available, r.Price, r.PickupTime, r.Notes)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
