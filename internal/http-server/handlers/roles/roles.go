// Package roles handles listing the role catalog visible to the acting user.
package roles

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
	ListRoles(ctx context.Context, username string) ([]models.Role, error)
}

// New
// @Summary List roles open for registration or held by the user
// @Tags catalog
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response "Roles"
// @Router /catalog/roles [get]
func New(log *slog.Logger, provider Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.roles.New"

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

		items, err := provider.ListRoles(r.Context(), username)
		if err != nil {
			status, msg := apperr.Map(err)
			log.Error("failed to list roles", sl.Err(err))
			render.Status(r, status)
			render.JSON(w, r, response.Error(msg))
			return
		}

		render.JSON(w, r, response.OKWithData(map[string]any{
			"roles": items,
		}))
	}
}
