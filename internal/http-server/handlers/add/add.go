// Package add handles the creation of an additional application carrying
// extra sub-events.
package add

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/mkalvoda/seminar-registration/internal/http-server/apperr"
	"github.com/mkalvoda/seminar-registration/internal/http-server/mware"
	"github.com/mkalvoda/seminar-registration/internal/http-server/response"
	"github.com/mkalvoda/seminar-registration/internal/lib/sl"
	"github.com/mkalvoda/seminar-registration/internal/models"
)

type Adder interface {
	AddSubevents(ctx context.Context, username string, req models.DummyAddSubevents) (*models.Application, error)
}

// New
// @Summary Add sub-events with a new application
// @Tags applications
// @Security BearerAuth
// @Accept  json
// @Produce json
// @Param   addRequest body models.DummyAddSubevents true "Requested sub-event IDs"
// @Success 200 {object} response.Response "Application created"
// @Failure 400 {object} response.Response "Unknown item or bad request"
// @Failure 409 {object} response.Response "Capacity taken concurrently"
// @Failure 422 {object} response.Response "Selection violates eligibility rules"
// @Router /applications/subevents [post]
func New(log *slog.Logger, adder Adder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.add.New"

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

		var req models.DummyAddSubevents
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to decode request"))
			return
		}

		if err := validator.New().Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)
			log.Error("invalid request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(validateErr))
			return
		}

		app, err := adder.AddSubevents(r.Context(), username, req)
		if err != nil {
			status, msg := apperr.Map(err)
			log.Error("failed to add subevents", sl.Err(err))
			render.Status(r, status)
			render.JSON(w, r, response.Error(msg))
			return
		}

		log.Info("application created",
			slog.Int("application_id", app.ID),
			slog.Int("fee", app.Fee),
			slog.String("state", app.State))
		render.JSON(w, r, response.OKWithData(app))
	}
}
