package basicauth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"account_service/internal/accounts"
	resp "account_service/internal/lib/api/response"
	sl "account_service/internal/lib/logger"
	"account_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type contextKey string

const accountKey contextKey = "account"

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (models.Account, error)
}

// New guards a route with HTTP Basic authentication. On success the resolved
// account is attached to the request context; the password hash never leaves
// this package via the response path.
//
// An unknown email yields 404. This leaks account existence and is kept as
// documented behavior of the service contract.
func New(log *slog.Logger, auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.basicauth.New"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			email, password, ok := r.BasicAuth()
			if !ok {
				challenge(w)

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Authorization required"))

				return
			}

			acc, err := auth.Authenticate(r.Context(), email, password)
			if err != nil {
				switch {
				case errors.Is(err, accounts.ErrAccountNotFound):
					render.Status(r, http.StatusNotFound)
					render.JSON(w, r, resp.Error("Account not found"))
				case errors.Is(err, accounts.ErrInvalidCredentials):
					challenge(w)

					render.Status(r, http.StatusUnauthorized)
					render.JSON(w, r, resp.Error("Invalid credentials"))
				default:
					log.Error("failed to authenticate", sl.Err(err))

					render.Status(r, http.StatusInternalServerError)
					render.JSON(w, r, resp.Error("Internal error"))
				}

				return
			}

			ctx := context.WithValue(r.Context(), accountKey, acc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Account extracts the authenticated account from the request context.
func Account(ctx context.Context) (models.Account, bool) {
	acc, ok := ctx.Value(accountKey).(models.Account)
	return acc, ok
}

func challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="restricted"`)
}
