package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/procurer/pkg/stores"
)

var (
	findItem     string
	findLocation string
	findOut      string
)

var findStoresCmd = &cobra.Command{
	Use:   "find-stores",
	Short: "Search for shops selling a part near a UK postcode",
	Long: `Search the web for shops selling a part near a UK postcode, extract their
phone numbers and addresses, and write the results as JSON.`,
	Args: cobra.NoArgs,
	RunE: runFindStores,
}

func init() {
	findStoresCmd.Flags().StringVar(&findItem, "item", "", "part to search for (required)")
	findStoresCmd.Flags().StringVar(&findLocation, "location", "", "UK postcode to search near (required)")
	findStoresCmd.Flags().StringVar(&findOut, "out", "plumbing_shops.json", "output file")
	_ = findStoresCmd.MarkFlagRequired("item")
	_ = findStoresCmd.MarkFlagRequired("location")
	rootCmd.AddCommand(findStoresCmd)
}

type storeReport struct {
	PartToAcquire    string         `json:"part_to_acquire"`
	LocationPostcode string         `json:"location_postcode"`
	SearchedAt       time.Time      `json:"searched_at"`
	TotalStores      int            `json:"total_stores"`
	Stores           []stores.Store `json:"stores"`
}

func runFindStores(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	base := log.Component("find-stores")
	defer initTracing(cfg, base)()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	finder := stores.NewFinder(
		stores.NewValyuClient(cfg.Search.ValyuAPIKey, cfg.Search.ValyuBaseURL, httpClient),
		stores.NewFirecrawlClient(cfg.Search.FirecrawlAPIKey, cfg.Search.FirecrawlBaseURL, httpClient),
		cfg.Search.MaxResults,
		base,
	)
	if !finder.Available() {
		return errors.New("VALYU_API_KEY is not set")
	}

	found, err := finder.Find(cmd.Context(), findItem, findLocation)
	if err != nil {
		return err
	}

	report := storeReport{
		PartToAcquire:    findItem,
		LocationPostcode: stores.NormalizePostcode(findLocation),
		SearchedAt:       time.Now().UTC(),
		TotalStores:      len(found),
		Stores:           found,
	}
	if err := writeReport(findOut, report); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Found %d stores, saved to %s\n", len(found), findOut)
	return nil
}

func writeReport(path string, report storeReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}
