// Package api provides the HTTP API server and handlers for the feedback service.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/feedbackapp/feedback-server/internal/auth"
	"github.com/feedbackapp/feedback-server/internal/ratelimit"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DocumentCounter reports the size of the search index.
type DocumentCounter interface {
	DocumentCount() (uint64, error)
}

// Options tunes the HTTP surface.
type Options struct {
	Version     string
	CORSOrigins []string
	// PublicRPS and PublicBurst limit each client IP on the survey and
	// login routes. Zero disables limiting.
	PublicRPS   float64
	PublicBurst int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db            Pinger
	search        DocumentCounter
	services      *Services
	identity      auth.Identity
	router        *chi.Mux
	api           huma.API
	logger        *slog.Logger
	publicLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
// search may be nil when full-text search is disabled.
func NewServer(db Pinger, search DocumentCounter, services *Services, identity auth.Identity, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	s := &Server{
		db:       db,
		search:   search,
		services: services,
		identity: identity,
		router:   chi.NewRouter(),
		logger:   logger,
	}
	if opts.PublicRPS > 0 {
		s.publicLimiter = ratelimit.New(opts.PublicRPS, max(opts.PublicBurst, 1))
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Feedback API", opts.Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources.
func (s *Server) Close() {
	if s.publicLimiter != nil {
		s.publicLimiter.Stop()
	}
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestSize(MaxBodySize))

	if len(opts.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	s.router.Use(RateLimitMiddleware(s.publicLimiter, s.logger, publicPrefix, loginPath))
	s.router.Use(authMiddleware(s.identity))
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerSessionRoutes()
	s.registerSurveyRoutes()
	s.registerInvitationRoutes()
	s.registerResponseRoutes()
}
