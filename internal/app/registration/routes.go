// Package registration wires the HTTP surface of the seminar registration
// service.
package registration

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/mkalvoda/seminar-registration/internal/http-server/handlers/add"
	"github.com/mkalvoda/seminar-registration/internal/http-server/handlers/edit"
	"github.com/mkalvoda/seminar-registration/internal/http-server/handlers/health"
	"github.com/mkalvoda/seminar-registration/internal/http-server/handlers/list"
	"github.com/mkalvoda/seminar-registration/internal/http-server/handlers/login"
	"github.com/mkalvoda/seminar-registration/internal/http-server/handlers/register"
	"github.com/mkalvoda/seminar-registration/internal/http-server/handlers/roles"
	"github.com/mkalvoda/seminar-registration/internal/http-server/handlers/subevents"
	"github.com/mkalvoda/seminar-registration/internal/http-server/mware"
	"github.com/mkalvoda/seminar-registration/internal/lib/jwt"
	authservice "github.com/mkalvoda/seminar-registration/internal/services/auth"
	regservice "github.com/mkalvoda/seminar-registration/internal/services/registration"
	"github.com/mkalvoda/seminar-registration/internal/storage/repository"
)

// RegisterRoutes registers all routes of the service.
func RegisterRoutes(r chi.Router, logger *slog.Logger, jwtMaker jwt.Maker,
	authService *authservice.AuthService, registrationService *regservice.Service,
	storage *repository.Storage) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(mware.JWTMiddleware(jwtMaker, logger))
			r.Use(mware.RateLimitMiddleware(logger))
			r.Get("/applications", list.New(logger, registrationService).ServeHTTP)
			r.Post("/applications/subevents", add.New(logger, registrationService).ServeHTTP)
			r.Put("/applications/{id}", edit.New(logger, registrationService).ServeHTTP)
			r.Get("/catalog/roles", roles.New(logger, registrationService).ServeHTTP)
			r.Get("/catalog/subevents", subevents.New(logger, registrationService).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, storage).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
