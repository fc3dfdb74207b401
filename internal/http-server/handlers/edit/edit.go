// Package edit handles the reassignment of roles and sub-events on an
// existing application.
package edit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/mkalvoda/seminar-registration/internal/http-server/apperr"
	"github.com/mkalvoda/seminar-registration/internal/http-server/mware"
	"github.com/mkalvoda/seminar-registration/internal/http-server/response"
	"github.com/mkalvoda/seminar-registration/internal/lib/sl"
	"github.com/mkalvoda/seminar-registration/internal/models"
)

type Editor interface {
	EditRolesSubevents(ctx context.Context, username string, applicationID int, req models.DummyEditApplication) (*models.Application, error)
}

// New
// @Summary Edit the roles and sub-events of an application
// @Tags applications
// @Security BearerAuth
// @Accept  json
// @Produce json
// @Param   id path int true "Application ID"
// @Param   editRequest body models.DummyEditApplication true "Selected role and sub-event IDs"
// @Success 200 {object} response.Response "Application updated"
// @Failure 400 {object} response.Response "Unknown item or bad request"
// @Failure 403 {object} response.Response "Application belongs to another user"
// @Failure 422 {object} response.Response "Selection violates eligibility rules"
// @Router /applications/{id} [put]
func New(log *slog.Logger, editor Editor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.edit.New"

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

		applicationID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			log.Error("invalid application id", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid application id"))
			return
		}

		var req models.DummyEditApplication
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

		app, err := editor.EditRolesSubevents(r.Context(), username, applicationID, req)
		if err != nil {
			status, msg := apperr.Map(err)
			log.Error("failed to edit application", sl.Err(err))
			render.Status(r, status)
			render.JSON(w, r, response.Error(msg))
			return
		}

		log.Info("application updated",
			slog.Int("application_id", app.ID),
			slog.Int("fee", app.Fee),
			slog.String("state", app.State))
		render.JSON(w, r, response.OKWithData(app))
	}
}
