package add_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkalvoda/seminar-registration/internal/http-server/handlers/add"
	"github.com/mkalvoda/seminar-registration/internal/http-server/mware"
	"github.com/mkalvoda/seminar-registration/internal/http-server/response"
	"github.com/mkalvoda/seminar-registration/internal/models"
	"github.com/mkalvoda/seminar-registration/internal/services/eligibility"
	"github.com/mkalvoda/seminar-registration/internal/storage/repository"
)

type mockAdder struct {
	AddFunc func(ctx context.Context, username string, req models.DummyAddSubevents) (*models.Application, error)
}

func (m *mockAdder) AddSubevents(ctx context.Context, username string, req models.DummyAddSubevents) (*models.Application, error) {
	return m.AddFunc(ctx, username, req)
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

func makeLogger() *slog.Logger {
	return slog.New(discardHandler{})
}

func TestAddHandler(t *testing.T) {
	ctx := context.WithValue(context.Background(), mware.UserKey, "testuser")

	t.Run("success", func(t *testing.T) {
		body, _ := json.Marshal(models.DummyAddSubevents{SubeventIDs: []int{10, 11}})

		adder := &mockAdder{
			AddFunc: func(_ context.Context, username string, req models.DummyAddSubevents) (*models.Application, error) {
				require.Equal(t, "testuser", username)
				require.Equal(t, []int{10, 11}, req.SubeventIDs)
				return &models.Application{
					ID: 5, Fee: 250, State: models.ApplicationStateWaitingForPayment,
					SubeventIDs: req.SubeventIDs,
				}, nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/applications/subevents", bytes.NewReader(body))
		req = req.WithContext(ctx)
		w := httptest.NewRecorder()

		add.New(makeLogger(), adder).ServeHTTP(w, req)

		var resp response.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, response.StatusOK, resp.Status)
		data := resp.Data.(map[string]any)
		assert.Equal(t, float64(5), data["id"])
		assert.Equal(t, float64(250), data["fee"])
	})

	t.Run("missing auth context", func(t *testing.T) {
		body, _ := json.Marshal(models.DummyAddSubevents{SubeventIDs: []int{10}})
		adder := &mockAdder{
			AddFunc: func(context.Context, string, models.DummyAddSubevents) (*models.Application, error) {
				t.Fatal("service should not be called without a user")
				return nil, nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/applications/subevents", bytes.NewReader(body))
		w := httptest.NewRecorder()

		add.New(makeLogger(), adder).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		adder := &mockAdder{
			AddFunc: func(context.Context, string, models.DummyAddSubevents) (*models.Application, error) {
				t.Fatal("service should not be called on invalid JSON")
				return nil, nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/applications/subevents", bytes.NewReader([]byte("{bad json")))
		req = req.WithContext(ctx)
		w := httptest.NewRecorder()

		add.New(makeLogger(), adder).ServeHTTP(w, req)

		assert.Contains(t, w.Body.String(), "failed to decode request")
	})

	t.Run("empty selection fails validation", func(t *testing.T) {
		body, _ := json.Marshal(models.DummyAddSubevents{})
		adder := &mockAdder{
			AddFunc: func(context.Context, string, models.DummyAddSubevents) (*models.Application, error) {
				t.Fatal("service should not be called on validation error")
				return nil, nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/applications/subevents", bytes.NewReader(body))
		req = req.WithContext(ctx)
		w := httptest.NewRecorder()

		add.New(makeLogger(), adder).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("eligibility violation maps to 422", func(t *testing.T) {
		body, _ := json.Marshal(models.DummyAddSubevents{SubeventIDs: []int{12}})
		adder := &mockAdder{
			AddFunc: func(context.Context, string, models.DummyAddSubevents) (*models.Application, error) {
				return nil, &eligibility.CapacityError{Items: []string{"sunday"}}
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/applications/subevents", bytes.NewReader(body))
		req = req.WithContext(ctx)
		w := httptest.NewRecorder()

		add.New(makeLogger(), adder).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "sunday")
	})

	t.Run("lost capacity race maps to 409", func(t *testing.T) {
		body, _ := json.Marshal(models.DummyAddSubevents{SubeventIDs: []int{12}})
		adder := &mockAdder{
			AddFunc: func(context.Context, string, models.DummyAddSubevents) (*models.Application, error) {
				return nil, repository.ErrCapacityExceeded
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/applications/subevents", bytes.NewReader(body))
		req = req.WithContext(ctx)
		w := httptest.NewRecorder()

		add.New(makeLogger(), adder).ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}
