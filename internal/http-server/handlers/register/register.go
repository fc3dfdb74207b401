// Package register handles new user sign-up.
package register

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/mkalvoda/seminar-registration/internal/http-server/response"
	"github.com/mkalvoda/seminar-registration/internal/lib/sl"
	"github.com/mkalvoda/seminar-registration/internal/models"
)

type Registration interface {
	Register(ctx context.Context, email, username, rawPassword string) (string, error)
}

// New
// @Summary Register a new user
// @Tags auth
// @Accept  json
// @Produce json
// @Param   registerRequest body models.DummyRegisterUser true "Registration data (email, username, password)"
// @Success 200 {object} response.Response "User created"
// @Failure 400 {object} response.Response "Validation error"
// @Failure 500 {object} response.Response "Internal error"
// @Router /register [post]
func New(log *slog.Logger, registration Registration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req models.DummyRegisterUser
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to decode request"))
			return
		}
		log.Info("request body decoded")

		if err := validator.New().Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)
			log.Error("invalid request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(validateErr))
			return
		}

		uid, err := registration.Register(r.Context(), req.Email, req.Username, req.Password)
		if err != nil {
			log.Error("failed to register new user", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to register new user"))
			return
		}

		log.Info("created new user", slog.String("username", req.Username))
		render.JSON(w, r, response.OKWithData(map[string]any{
			"username": req.Username,
			"uid":      uid,
		}))
	}
}
