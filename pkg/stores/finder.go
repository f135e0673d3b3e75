package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrInvalidInput marks a request the caller must fix.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSearchFailed marks a failure of the search provider.
	ErrSearchFailed = errors.New("search failed")
	// ErrNotConfigured is returned when a provider has no API key.
	ErrNotConfigured = errors.New("provider api key is not configured")
)

// Store is a shop found for a part, with whatever contact details could be
// extracted.
type Store struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Content string `json:"content,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// Searcher runs a web search.
type Searcher interface {
	Configured() bool
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Scraper fetches page content.
type Scraper interface {
	Configured() bool
	Fetch(ctx context.Context, url string) (*Page, error)
}

// Finder looks up shops selling a part near a UK postcode.
type Finder struct {
	searcher    Searcher
	scraper     Scraper
	logger      zerolog.Logger
	maxResults  int
	concurrency int
}

// NewFinder creates a finder. scraper may be nil.
func NewFinder(searcher Searcher, scraper Scraper, maxResults int, logger zerolog.Logger) *Finder {
	if maxResults <= 0 {
		maxResults = 10
	}
	return &Finder{
		searcher:    searcher,
		scraper:     scraper,
		logger:      logger.With().Str("component", "store-finder").Logger(),
		maxResults:  maxResults,
		concurrency: 4,
	}
}

// Available reports whether searches can run.
func (f *Finder) Available() bool {
	return f != nil && f.searcher != nil && f.searcher.Configured()
}

// Query builds the search phrase for part near postcode.
func Query(part, postcode string) string {
	return fmt.Sprintf("plumbing shops near %s selling %s", postcode, part)
}

// Find validates the input, searches and enriches each hit with phone and
// address. Pages are scraped only for hits missing either detail, and only
// when a scraper is configured. Scrape failures leave the fields empty.
func (f *Finder) Find(ctx context.Context, part, postcode string) ([]Store, error) {
	part = strings.TrimSpace(part)
	if part == "" {
		return nil, fmt.Errorf("%w: part_to_acquire is required and cannot be empty", ErrInvalidInput)
	}
	pc := NormalizePostcode(postcode)
	if !ValidPostcode(pc) {
		return nil, fmt.Errorf("%w: invalid UK postcode: %s (e.g. 'SW1A 1AA', 'E1 6AN')", ErrInvalidInput, postcode)
	}
	if !f.Available() {
		return nil, ErrNotConfigured
	}

	results, err := f.searcher.Search(ctx, Query(part, pc), f.maxResults)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	found := make([]Store, len(results))
	for i, r := range results {
		name := r.Title
		if name == "" {
			name = r.URL
		}
		found[i] = Store{
			Name:    name,
			URL:     r.URL,
			Content: r.Content,
			Phone:   ExtractPhone(r.Content),
			Address: ExtractAddress(r.Content),
		}
	}

	f.enrich(ctx, found)

	f.logger.Info().
		Str("part", part).
		Str("postcode", pc).
		Int("stores", len(found)).
		Msg("Store search complete")

	return found, nil
}

func (f *Finder) enrich(ctx context.Context, found []Store) {
	if f.scraper == nil || !f.scraper.Configured() {
		return
	}

	sem := make(chan struct{}, f.concurrency)
	var wg sync.WaitGroup

	for i := range found {
		s := &found[i]
		if (s.Phone != "" && s.Address != "") || s.URL == "" {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			page, err := f.scraper.Fetch(ctx, s.URL)
			if err != nil {
				f.logger.Debug().Err(err).Str("url", s.URL).Msg("Scrape failed")
				return
			}
			if s.Phone == "" {
				s.Phone = ExtractPhone(s.Content, page.Content)
			}
			if s.Address == "" {
				s.Address = ExtractAddress(page.Content)
			}
		}()
	}

	wg.Wait()
}
