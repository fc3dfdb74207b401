// Package apperr translates registration engine errors into HTTP statuses
// and user-facing messages.
package apperr

import (
	"errors"
	"net/http"

	"github.com/mkalvoda/seminar-registration/internal/services/eligibility"
	"github.com/mkalvoda/seminar-registration/internal/services/registration"
	"github.com/mkalvoda/seminar-registration/internal/storage/repository"
)

// Map returns the HTTP status and message for a coordinator error: rule
// violations map to 422, a lost capacity race to 409, unknown input to 400.
func Map(err error) (int, string) {
	var capacityErr *eligibility.CapacityError
	var windowErr *eligibility.NotRegisterableError
	var incompatibleErr *eligibility.IncompatibleError
	var requiredErr *eligibility.RequiredError
	switch {
	case errors.As(err, &capacityErr):
		return http.StatusUnprocessableEntity, capacityErr.Error()
	case errors.As(err, &windowErr):
		return http.StatusUnprocessableEntity, windowErr.Error()
	case errors.As(err, &incompatibleErr):
		return http.StatusUnprocessableEntity, incompatibleErr.Error()
	case errors.As(err, &requiredErr):
		return http.StatusUnprocessableEntity, requiredErr.Error()
	case errors.Is(err, repository.ErrCapacityExceeded):
		return http.StatusConflict, "capacity was taken by a concurrent registration"
	case errors.Is(err, registration.ErrUnknownItem):
		return http.StatusBadRequest, "unknown role or subevent"
	case errors.Is(err, registration.ErrNoExplicitSubevents):
		return http.StatusBadRequest, "seminar has no explicit subevents"
	case errors.Is(err, registration.ErrNotOwner):
		return http.StatusForbidden, "application belongs to another user"
	case errors.Is(err, registration.ErrApplicationCancelled):
		return http.StatusConflict, "application is cancelled"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not found"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
