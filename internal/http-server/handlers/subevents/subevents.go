// Package subevents handles listing the explicit sub-event catalog.
package subevents

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

type Provider interface {
	ListSubevents(ctx context.Context, username string) ([]models.Subevent, error)
}

// New
// @Summary List explicit sub-events with occupancy
// @Tags catalog
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response "Sub-events"
// @Router /catalog/subevents [get]
func New(log *slog.Logger, provider Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.subevents.New"

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

		items, err := provider.ListSubevents(r.Context(), username)
		if err != nil {
			status, msg := apperr.Map(err)
			log.Error("failed to list subevents", sl.Err(err))
			render.Status(r, status)
			render.JSON(w, r, response.Error(msg))
			return
		}

		render.JSON(w, r, response.OKWithData(map[string]any{
			"subevents": items,
		}))
	}
}
