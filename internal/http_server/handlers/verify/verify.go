package verify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"account_service/internal/accounts"
	resp "account_service/internal/lib/api/response"
	sl "account_service/internal/lib/logger"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Message string `json:"message,omitempty"`
}

type Verifier interface {
	Verify(ctx context.Context, token string) error
}

func New(log *slog.Logger, verifier Verifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verify.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := chi.URLParam(r, "token")

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := verifier.Verify(ctx, token); err != nil {
			switch {
			case errors.Is(err, accounts.ErrTokenInvalid):
				log.Warn("invalid verification token")

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Token Invalid"))
			case errors.Is(err, accounts.ErrTokenExpired):
				log.Warn("expired verification token")

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Token expired"))
			default:
				log.Error("failed to verify account", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("email verified successfully")

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "User verified successfully",
		})
	}
}
