// Package mware contains the HTTP middleware of the registration service:
// JWT authentication putting the acting user into the request context, and
// rate limiting.
package mware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/mkalvoda/seminar-registration/internal/http-server/response"
	"github.com/mkalvoda/seminar-registration/internal/lib/jwt"
	"github.com/mkalvoda/seminar-registration/internal/lib/sl"
)

// Key is the type of request context keys set by the middleware.
type Key string

const (
	// UserKey holds the acting user's username.
	UserKey Key = "username"
	// UserUIDKey holds the acting user's UID.
	UserUIDKey Key = "user_uid"
)

// Username extracts the authenticated username from the context.
func Username(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UserKey).(string)
	return username, ok && username != ""
}

// JWTMiddleware verifies the Bearer token in the Authorization header and
// puts the username and user UID into the request context.
func JWTMiddleware(jwtMaker jwt.Maker, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const op = "mware.JWTMiddleware"

			log = log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Error("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := jwtMaker.ParseToken(tokenStr)
			if err != nil {
				log.Error("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			ctx := context.WithValue(r.Context(), UserKey, claims.Username)
			ctx = context.WithValue(ctx, UserUIDKey, claims.UserUID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var limiter = rate.NewLimiter(10, 30)

// RateLimitMiddleware rejects requests above the global rate limit.
func RateLimitMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Error("too many requests")
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
