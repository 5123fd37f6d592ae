package http

import (
	"net/http"

	"github.com/go-accounts-api/internal/application/account"
	"github.com/go-accounts-api/internal/application/pin"
	"github.com/go-accounts-api/internal/application/token"
	"github.com/go-accounts-api/internal/config"
	"github.com/go-accounts-api/internal/infrastructure/dynamo"
	"github.com/go-accounts-api/internal/notify"
	"github.com/go-accounts-api/internal/pkg/secret"
	"github.com/go-accounts-api/internal/transport/http/handler"
	appmiddleware "github.com/go-accounts-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo *dynamo.UserRepo
	Notifier *notify.Dispatcher
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	secrets := secret.NewProvider()
	pinEngine := pin.NewEngine(deps.UserRepo, secrets, cfg.PINLength, cfg.PINFailureLimit, cfg.PINExpiry)
	tokenEngine := token.NewEngine([]byte(cfg.JWTSecret), cfg.AccessTTL, cfg.RefreshTTL, deps.UserRepo)
	accountSvc := account.NewService(account.ServiceDeps{
		UserRepo:       deps.UserRepo,
		Secrets:        secrets,
		PINEngine:      pinEngine,
		TokenEngine:    tokenEngine,
		Notifier:       deps.Notifier,
		TokenKeyLength: cfg.TokenKeyLength,
		ConfirmByEmail: cfg.ConfirmByEmail,
	})

	authMw := appmiddleware.Auth(accountSvc)

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(accountSvc)
	tokenH := handler.NewTokenHandler(accountSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/accounts", accountH.Register)
		r.With(sensitiveRL.Limit).Post("/accounts/confirm", accountH.Confirm)
		r.With(sensitiveRL.Limit).Post("/accounts/confirm/resend", accountH.ResendPIN)
		r.With(sensitiveRL.Limit).Post("/tokens", tokenH.Create)
		r.Post("/tokens/refresh", tokenH.Refresh)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/accounts/me", accountH.Me)
			r.Post("/accounts/change-password", accountH.ChangePassword)
		})
	})

	return r
}
