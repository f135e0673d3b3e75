package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/procurer/internal/metrics"
	"github.com/harun/procurer/internal/web"
	"github.com/harun/procurer/pkg/persona"
	"github.com/harun/procurer/pkg/procurement"
	"github.com/harun/procurer/pkg/stores"
)

// SignedURLIssuer exchanges the server-side API key for a session URL.
type SignedURLIssuer interface {
	GetSignedURL(ctx context.Context, agentID string) (string, error)
}

// StoreFinder searches for shops selling a part.
type StoreFinder interface {
	Available() bool
	Find(ctx context.Context, part, postcode string) ([]stores.Store, error)
}

// RecordStore persists procurement requests and reservation outcomes.
type RecordStore interface {
	SaveRequest(ctx context.Context, part, postcode string) (*procurement.Request, error)
	ListRequests(ctx context.Context, limit int) ([]procurement.Request, error)
	SaveReservation(ctx context.Context, res procurement.Reservation) (*procurement.Reservation, error)
	ListReservations(ctx context.Context, limit int) ([]procurement.Reservation, error)
}

// Options configures the server.
type Options struct {
	Host               string
	Port               int
	AgentID            string
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	// TrustProxyHeaders keys rate limiting on X-Forwarded-For / X-Real-IP.
	// Only enable behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// Deps are the collaborators behind the routes. SignedURLs and Records are
// required; a nil Finder makes store search report unavailable.
type Deps struct {
	SignedURLs SignedURLIssuer
	Finder     StoreFinder
	Records    RecordStore
	Metrics    *metrics.Metrics
	Persona    *persona.Persona
}

// Server is the procurer HTTP server.
type Server struct {
	options     Options
	server      *http.Server
	handler     http.Handler
	signedURLs  SignedURLIssuer
	finder      StoreFinder
	records     RecordStore
	metrics     *metrics.Metrics
	persona     atomic.Pointer[persona.Persona]
	rateLimiter *RateLimiter
	logger      zerolog.Logger
	startTime   time.Time

	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// NewServer creates a server. Zero options take defaults.
func NewServer(options Options, deps Deps, logger zerolog.Logger) (*Server, error) {
	if options.Port == 0 {
		options.Port = 3000
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.RateLimitPerMinute == 0 {
		options.RateLimitPerMinute = 30
	}

	if options.AgentID == "" {
		return nil, errors.New("agent id is required")
	}
	if deps.SignedURLs == nil {
		return nil, errors.New("signed url issuer is required")
	}
	if deps.Records == nil {
		return nil, errors.New("record store is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewMetrics()
	}
	if deps.Persona == nil {
		deps.Persona = persona.Default()
	}

	s := &Server{
		options:     options,
		signedURLs:  deps.SignedURLs,
		finder:      deps.Finder,
		records:     deps.Records,
		metrics:     deps.Metrics,
		rateLimiter: NewRateLimiter(options.RateLimitPerMinute),
		logger:      logger.With().Str("component", "api").Logger(),
		startTime:   time.Now(),
	}
	s.persona.Store(deps.Persona)
	s.handler = s.routes()
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// SetPersona swaps the persona shown on the call page.
func (s *Server) SetPersona(p *persona.Persona) {
	if p != nil {
		s.persona.Store(p)
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.options.Host, s.options.Port)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/get-signed-url", s.handleSignedURL)

	mux.HandleFunc("POST /api/procurePart", s.handleProcurePart)
	mux.HandleFunc("POST /api/procure_part", s.handleProcurePart)
	mux.HandleFunc("GET /api/procurePart/list", s.handleListRequests)

	mux.HandleFunc("POST /api/findStores", s.handleFindStores)
	mux.HandleFunc("POST /api/find_stores", s.handleFindStores)

	mux.HandleFunc("POST /api/reservations", s.handleSaveReservation)
	mux.HandleFunc("GET /api/reservations", s.handleListReservations)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.Handle("GET /", web.Handler(s.page, s.logger))

	// Outermost first.
	return chain(mux,
		s.recoverer,
		s.requestID,
		s.accessLog,
		s.inFlight,
		s.rateLimit,
		s.cors,
	)
}

func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (s *Server) page() web.Page {
	p := s.persona.Load()
	return web.Page{Title: p.Title, Description: p.Description}
}

// Start serves until Stop is called. After Stop it returns nil at once.
func (s *Server) Start() error {
	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop refuses new requests, waits for in-flight ones until ctx is done,
// then shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down HTTP server")

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-ctx.Done():
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	s.rateLimiter.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
