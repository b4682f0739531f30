package updateself

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"account_service/internal/accounts"
	"account_service/internal/lib/api/request"
	resp "account_service/internal/lib/api/response"
	sl "account_service/internal/lib/logger"
	"account_service/internal/middleware/basicauth"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Email is deliberately absent: the login identifier is not updatable here.
type Request struct {
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
}

type Updater interface {
	Update(ctx context.Context, id uuid.UUID, password, firstName, lastName string) error
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	updater Updater,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.updateself.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		acc, ok := basicauth.Account(r.Context())
		if !ok {
			log.Error("no account in request context")

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		var req Request

		if err := request.DecodeStrict(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		log.Info("Request body decoded")

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := updater.Update(ctx, acc.ID, req.Password, req.FirstName, req.LastName); err != nil {
			if errors.Is(err, accounts.ErrAccountNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Account not found"))

				return
			}

			log.Error("failed to update account", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Account updated", slog.String("id", acc.ID.String()))

		render.NoContent(w, r)
	}
}
