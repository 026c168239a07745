package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/poolledger/internal/adapter/http/handler"
	"github.com/iho/poolledger/internal/adapter/http/middleware"
	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/infrastructure/auth"
	"github.com/iho/poolledger/internal/infrastructure/metrics"
	"github.com/iho/poolledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler    *handler.AccountHandler
	EntryHandler      *handler.EntryHandler
	InvestmentHandler *handler.InvestmentHandler
	ClaimHandler      *handler.ClaimHandler
	WithdrawalHandler *handler.WithdrawalHandler
	LedgerHandler     *handler.LedgerHandler
	HealthHandler     *handler.HealthHandler
	AuthHandler       *handler.AuthHandler
	AuditHandler      *handler.AuditHandler

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration

	// JWTManager enables bearer auth. When nil, callers are identified by
	// the X-Account-ID and X-Role headers.
	JWTManager *auth.JWTManager

	// HeaderAdmin lets header-identified callers claim the admin role.
	// Local development only.
	HeaderAdmin bool

	RateLimiter    *middleware.RateLimiter
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Logger         zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTManager != nil {
			r.Use(middleware.AuthMiddleware(cfg.JWTManager))
		} else {
			r.Use(middleware.HeaderAuth(cfg.HeaderAdmin))
		}

		// Idempotency keys are scoped to the caller, so this runs after auth.
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
			r.Use(idempotencyMiddleware.Wrap)
		}

		r.Route("/me", func(r chi.Router) {
			r.Get("/", cfg.AccountHandler.Me)
			r.Get("/entries", cfg.EntryHandler.MyEntries)
			r.Get("/positions", cfg.AccountHandler.MyPositions)
			r.Get("/withdrawals", cfg.WithdrawalHandler.ListMine)
		})

		r.Post("/investments", cfg.InvestmentHandler.Invest)
		r.Post("/disinvestments", cfg.InvestmentHandler.Disinvest)
		r.Post("/claims", cfg.ClaimHandler.Claim)

		r.Route("/withdrawals", func(r chi.Router) {
			r.Post("/", cfg.WithdrawalHandler.Create)
			r.Get("/{id}", cfg.WithdrawalHandler.Get)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))

			r.Route("/accounts", func(r chi.Router) {
				r.Post("/", cfg.AccountHandler.Create)
				r.Get("/", cfg.AccountHandler.List)
				r.Get("/{id}", cfg.AccountHandler.Get)
				r.Get("/{id}/entries", cfg.EntryHandler.ListByAccount)
				r.Get("/{id}/reconciliation", cfg.LedgerHandler.ReconcileAccount)
			})

			r.Route("/withdrawals", func(r chi.Router) {
				r.Get("/", cfg.WithdrawalHandler.List)
				r.Get("/{id}", cfg.WithdrawalHandler.Get)
				r.Post("/{id}/approve", cfg.WithdrawalHandler.Approve)
				r.Post("/{id}/reject", cfg.WithdrawalHandler.Reject)
			})

			r.Get("/entries/{reference}", cfg.EntryHandler.GetByReference)
			r.Get("/reconciliation", cfg.LedgerHandler.Report)
			r.Get("/consistency", cfg.LedgerHandler.CheckConsistency)
			if cfg.AuditHandler != nil {
				r.Get("/audit-logs", cfg.AuditHandler.List)
			}
			if cfg.AuthHandler != nil {
				r.Post("/tokens", cfg.AuthHandler.IssueToken)
			}
		})
	})

	return r
}
