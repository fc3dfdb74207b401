package edit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkalvoda/seminar-registration/internal/http-server/handlers/edit"
	"github.com/mkalvoda/seminar-registration/internal/http-server/mware"
	"github.com/mkalvoda/seminar-registration/internal/http-server/response"
	"github.com/mkalvoda/seminar-registration/internal/models"
	"github.com/mkalvoda/seminar-registration/internal/services/eligibility"
	"github.com/mkalvoda/seminar-registration/internal/services/registration"
)

type mockEditor struct {
	EditFunc func(ctx context.Context, username string, applicationID int, req models.DummyEditApplication) (*models.Application, error)
}

func (m *mockEditor) EditRolesSubevents(ctx context.Context, username string, applicationID int, req models.DummyEditApplication) (*models.Application, error) {
	return m.EditFunc(ctx, username, applicationID, req)
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

func makeLogger() *slog.Logger {
	return slog.New(discardHandler{})
}

func newRequest(t *testing.T, id string, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/applications/"+id, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), mware.UserKey, "testuser")

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, rctx))
}

func TestEditHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		body, _ := json.Marshal(models.DummyEditApplication{
			RoleIDs: []int{1, 2}, SubeventIDs: []int{10},
		})
		editor := &mockEditor{
			EditFunc: func(_ context.Context, username string, applicationID int, req models.DummyEditApplication) (*models.Application, error) {
				require.Equal(t, "testuser", username)
				require.Equal(t, 7, applicationID)
				require.Equal(t, []int{1, 2}, req.RoleIDs)
				return &models.Application{
					ID: 7, Fee: 100, State: models.ApplicationStateWaitingForPayment,
					SubeventIDs: req.SubeventIDs,
				}, nil
			},
		}

		w := httptest.NewRecorder()
		edit.New(makeLogger(), editor).ServeHTTP(w, newRequest(t, "7", body))

		var resp response.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, response.StatusOK, resp.Status)
		assert.Equal(t, float64(7), resp.Data.(map[string]any)["id"])
	})

	t.Run("invalid application id", func(t *testing.T) {
		body, _ := json.Marshal(models.DummyEditApplication{RoleIDs: []int{1}})
		editor := &mockEditor{
			EditFunc: func(context.Context, string, int, models.DummyEditApplication) (*models.Application, error) {
				t.Fatal("service should not be called with an invalid id")
				return nil, nil
			},
		}

		w := httptest.NewRecorder()
		edit.New(makeLogger(), editor).ServeHTTP(w, newRequest(t, "abc", body))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty roles fail validation", func(t *testing.T) {
		body, _ := json.Marshal(models.DummyEditApplication{SubeventIDs: []int{10}})
		editor := &mockEditor{
			EditFunc: func(context.Context, string, int, models.DummyEditApplication) (*models.Application, error) {
				t.Fatal("service should not be called on validation error")
				return nil, nil
			},
		}

		w := httptest.NewRecorder()
		edit.New(makeLogger(), editor).ServeHTTP(w, newRequest(t, "7", body))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("foreign application maps to 403", func(t *testing.T) {
		body, _ := json.Marshal(models.DummyEditApplication{RoleIDs: []int{1}})
		editor := &mockEditor{
			EditFunc: func(context.Context, string, int, models.DummyEditApplication) (*models.Application, error) {
				return nil, registration.ErrNotOwner
			},
		}

		w := httptest.NewRecorder()
		edit.New(makeLogger(), editor).ServeHTTP(w, newRequest(t, "7", body))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("incompatible selection maps to 422", func(t *testing.T) {
		body, _ := json.Marshal(models.DummyEditApplication{RoleIDs: []int{2, 3}})
		editor := &mockEditor{
			EditFunc: func(context.Context, string, int, models.DummyEditApplication) (*models.Application, error) {
				return nil, &eligibility.IncompatibleError{Item: "organizer", Conflicting: []string{"lecturer"}}
			},
		}

		w := httptest.NewRecorder()
		edit.New(makeLogger(), editor).ServeHTTP(w, newRequest(t, "7", body))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "organizer")
	})
}
