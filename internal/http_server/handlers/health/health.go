package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "account_service/internal/lib/api/response"
	sl "account_service/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type StoreChecker interface {
	CheckStore(ctx context.Context) error
}

// New reports liveness with a trivial store read. Responses are never
// cacheable: orchestration probes must always hit the process.
func New(log *slog.Logger, checker StoreChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.health.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := checker.CheckStore(ctx); err != nil {
			log.Error("store unreachable", sl.Err(err))

			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, resp.Error("Service unavailable"))

			return
		}

		render.JSON(w, r, resp.OK())
	}
}

// MethodNotAllowed answers every non-GET method on the probe path.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusMethodNotAllowed)
}
