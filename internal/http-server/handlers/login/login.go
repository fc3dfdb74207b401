// Package login handles user authentication and token issuance.
package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/mkalvoda/seminar-registration/internal/http-server/response"
	"github.com/mkalvoda/seminar-registration/internal/lib/sl"
	"github.com/mkalvoda/seminar-registration/internal/models"
	"github.com/mkalvoda/seminar-registration/internal/services/auth"
)

type Authenticator interface {
	Login(ctx context.Context, username, rawPassword string) (string, error)
}

// New
// @Summary Log in and receive a JWT
// @Tags auth
// @Accept  json
// @Produce json
// @Param   loginRequest body models.DummyLoginUser true "Credentials"
// @Success 200 {object} response.Response "Token issued"
// @Failure 401 {object} response.Response "Invalid credentials"
// @Router /login [post]
func New(log *slog.Logger, authenticator Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req models.DummyLoginUser
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

		token, err := authenticator.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				log.Info("invalid credentials", slog.String("username", req.Username))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid credentials"))
				return
			}
			log.Error("failed to log in", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to log in"))
			return
		}

		log.Info("user logged in", slog.String("username", req.Username))
		render.JSON(w, r, response.OKWithData(map[string]any{
			"token": token,
		}))
	}
}
