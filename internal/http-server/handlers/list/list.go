// Package list handles listing of the acting user's applications.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/mkalvoda/seminar-registration/internal/http-server/apperr"
	"github.com/mkalvoda/seminar-registration/internal/http-server/mware"
	"github.com/mkalvoda/seminar-registration/internal/http-server/response"
	"github.com/mkalvoda/seminar-registration/internal/lib/sl"
	"github.com/mkalvoda/seminar-registration/internal/models"
)

type Lister interface {
	ListApplications(ctx context.Context, username string) ([]models.Application, error)
}

// New
// @Summary List the acting user's applications
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response "Applications"
// @Router /applications [get]
func New(log *slog.Logger, lister Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.list.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		username, ok := mware.Username(r.Context())
		if !ok {
			log.Error("missing username in context")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("unauthorized"))
			return
		}

		apps, err := lister.ListApplications(r.Context(), username)
		if err != nil {
			status, msg := apperr.Map(err)
			log.Error("failed to list applications", sl.Err(err))
			render.Status(r, status)
			render.JSON(w, r, response.Error(msg))
			return
		}

		log.Info("applications listed", slog.Int("count", len(apps)))
		render.JSON(w, r, response.OKWithData(map[string]any{
			"applications": apps,
		}))
	}
}
