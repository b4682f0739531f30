package http_server

import (
	"log/slog"

	"account_service/internal/accounts"
	"account_service/internal/http_server/handlers/create"
	"account_service/internal/http_server/handlers/getself"
	"account_service/internal/http_server/handlers/health"
	"account_service/internal/http_server/handlers/updateself"
	"account_service/internal/http_server/handlers/verify"
	"account_service/internal/middleware/basicauth"
	rateLimit "account_service/internal/middleware/ratelimit"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

// New assembles the route table. Every route is composed from the same
// parts: optional rate limit, optional Basic-auth guard, handler.
func New(log *slog.Logger, service *accounts.Accounts) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.MethodNotAllowed(health.MethodNotAllowed)

	validate := validator.New()

	r.Route("/v1/user", func(r chi.Router) {
		r.With(rateLimit.Create()).Post("/", create.New(log, validate, service))

		r.Route("/self", func(r chi.Router) {
			r.Use(basicauth.New(log, service))
			r.Get("/", getself.New(log))
			r.Put("/", updateself.New(log, validate, service))
		})
	})

	r.With(rateLimit.Verify()).Get("/verify/{token}", verify.New(log, service))

	r.Get("/healthz", health.New(log, service))

	return r
}
