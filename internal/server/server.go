package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gracebase/content-pipeline/internal/ai"
	"github.com/gracebase/content-pipeline/internal/config"
	"github.com/gracebase/content-pipeline/internal/db"
	"github.com/gracebase/content-pipeline/internal/jobs"
	"github.com/gracebase/content-pipeline/internal/moderation"
	"github.com/gracebase/content-pipeline/internal/server/middleware"
	"github.com/gracebase/content-pipeline/internal/server/ratelimit"
	"github.com/gracebase/content-pipeline/internal/stream"
	"github.com/gracebase/content-pipeline/internal/types"
)

// staleJobCutoff is how long a job may sit in generating before the sweeper
// forces it to failed.
const staleJobCutoff = 5 * time.Minute

// tenantStore is the tenant lookup surface the server itself needs, for API
// key verification and the autonomous gate.
type tenantStore interface {
	GetTenant(ctx context.Context, id uuid.UUID) (*types.Tenant, error)
}

// Server represents the HTTP server.
type Server struct {
	httpServer  *http.Server
	db          *db.DB
	tenants     tenantStore
	jobs        *jobs.Service
	streams     *stream.Manager
	moderation  *moderation.Service
	provider    ai.Provider
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	apiTokens   *config.APITokenConfig
	log         zerolog.Logger

	sweepInterval time.Duration
}

// Config holds server configuration.
type Config struct {
	Port                 int
	DatabaseURL          string
	GeminiAPIKey         string
	SweepIntervalSeconds int
	Logger               zerolog.Logger
}

// New creates a new server instance.
func New(ctx context.Context, cfg Config) (*Server, error) {
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	aiConfig, err := ai.LoadConfig()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to load provider config: %w", err)
	}
	provider, err := ai.NewProvider(ctx, aiConfig, cfg.GeminiAPIKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	apiTokens, err := config.NewAPITokenConfig()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create API token config: %w", err)
	}

	s := &Server{
		db:            database,
		tenants:       database,
		provider:      provider,
		jobs:          jobs.NewService(database, provider, cfg.Logger),
		streams:       stream.NewManager(database, provider, cfg.Logger),
		moderation:    moderation.NewService(database, provider, cfg.Logger),
		rateLimiter:   ratelimit.NewLimiter(ratelimit.LoadConfig()),
		jwtService:    NewJWTService(jwtConfig),
		apiTokens:     apiTokens,
		log:           cfg.Logger,
		sweepInterval: time.Duration(cfg.SweepIntervalSeconds) * time.Second,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // long timeout for SSE sessions
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// routes wires the API surface. Everything but /health sits behind tenant
// authentication.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Queued generation
	mux.HandleFunc("POST /generation/jobs", s.handleSubmitJob)
	mux.HandleFunc("GET /generation/jobs", s.handlePollJobs)
	mux.HandleFunc("POST /generation/jobs/{id}/accept", s.handleAcceptJob)
	mux.HandleFunc("POST /generation/jobs/{id}/reject", s.handleRejectJob)
	mux.HandleFunc("POST /generation/jobs/{id}/regenerate", s.handleRegenerateJob)

	// Streaming generation
	mux.HandleFunc("POST /generation/stream", s.handleOpenStream)
	mux.HandleFunc("POST /generation/stream/{id}/cancel", s.handleCancelStream)
	mux.HandleFunc("POST /generation/stream/{id}/accept", s.handleAcceptStream)
	mux.HandleFunc("POST /generation/stream/{id}/discard", s.handleDiscardStream)

	// Moderation
	mux.HandleFunc("GET /review-queue", s.handleReviewQueue)
	mux.HandleFunc("GET /content/{id}", s.handleGetContent)
	mux.HandleFunc("POST /content/{id}/approve", s.handleApproveContent)
	mux.HandleFunc("POST /content/{id}/reject", s.handleRejectContent)
	mux.HandleFunc("POST /content/bulk-approve", s.handleBulkApprove)
	mux.HandleFunc("POST /content/bulk-reject", s.handleBulkReject)

	// Autonomous generation
	mux.HandleFunc("POST /autonomous/trigger", s.handleAutonomousTrigger)

	authed := middleware.Auth(s.jwtService, s)(mux)

	outer := http.NewServeMux()
	outer.HandleFunc("GET /health", s.handleHealth)
	outer.Handle("/", authed)

	return s.withRateLimit(s.withLogging(s.withCORS(outer)))
}

// Start begins listening for requests and blocks until shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go s.jobs.RunSweeper(sweepCtx, s.sweepInterval, staleJobCutoff)

	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-stop
	s.log.Info().Msg("shutting down server")
	cancelSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.log.Warn().Err(err).Msg("provider close failed")
		}
	}

	s.db.Close()
	s.log.Info().Msg("server stopped")
	return nil
}

// AuthenticateAPIKey verifies a tenant API key against the stored bcrypt
// hash. This implements the middleware.APIKeyAuthenticator interface.
func (s *Server) AuthenticateAPIKey(ctx context.Context, tenantID uuid.UUID, key string) (bool, error) {
	tenant, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return false, err
	}
	if tenant == nil {
		return false, nil
	}
	return s.apiTokens.VerifyToken(key, tenant.APITokenHash), nil
}

// withCORS adds CORS headers.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Tenant-ID, X-API-Key")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds per-tenant rate limiting.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := r.Header.Get("X-Tenant-ID")
		if clientID == "" {
			clientID = r.RemoteAddr
		}

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)

		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("encoding JSON response")
	}
}

// errorResponse writes an error JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// serviceError maps a service-layer error to its HTTP status and writes it.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("internal error")
		s.errorResponse(w, status, "internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
