package create

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
	"account_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
}

type Response struct {
	resp.Response
	Account models.AccountView `json:"account"`
}

type Registerer interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (models.Account, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	registerer Registerer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.create.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

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

		acc, err := registerer.Register(ctx, req.Email, req.Password, req.FirstName, req.LastName)
		if err != nil {
			if errors.Is(err, accounts.ErrAccountExists) {
				log.Warn("account already exists")

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Account already exists"))

				return
			}

			log.Error("failed to register account", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Account created", slog.String("id", acc.ID.String()))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response: resp.OK(),
			Account:  acc.View(),
		})
	}
}
