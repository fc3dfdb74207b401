// Package health exposes the readiness probe.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/mkalvoda/seminar-registration/internal/http-server/response"
	"github.com/mkalvoda/seminar-registration/internal/lib/sl"
)

type Checker interface {
	CheckDatabaseReady(ctx context.Context) error
}

// New reports whether the service can reach its database.
func New(log *slog.Logger, checker Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.health.New"

		if err := checker.CheckDatabaseReady(r.Context()); err != nil {
			log.Error("database not ready", slog.String("op", op), sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("database not ready"))
			return
		}
		render.JSON(w, r, response.OK())
	}
}
