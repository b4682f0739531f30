package getself

import (
	"log/slog"
	"net/http"

	resp "account_service/internal/lib/api/response"
	"account_service/internal/middleware/basicauth"
	"account_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Account models.AccountView `json:"account"`
}

func New(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.getself.New"

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

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Account:  acc.View(),
		})
	}
}
