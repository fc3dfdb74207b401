package registration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mkalvoda/seminar-registration/internal/models"
	"github.com/mkalvoda/seminar-registration/internal/services/eligibility"
	"github.com/mkalvoda/seminar-registration/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *RepoMock) ListRegisterableOrUserRoles(ctx context.Context, userUID string, now time.Time) ([]models.Role, error) {
	args := m.Called(ctx, userUID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Role), args.Error(1)
}
func (m *RepoMock) ListExplicitSubevents(ctx context.Context) ([]models.Subevent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Subevent), args.Error(1)
}
func (m *RepoMock) ListApplicationsByUser(ctx context.Context, userUID string) ([]models.Application, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Application), args.Error(1)
}
func (m *RepoMock) FindApplicationByID(ctx context.Context, id int) (*models.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}
func (m *RepoMock) CreateApplication(ctx context.Context, app *models.Application, newSubeventIDs []int, symbolPrefix string) (*models.Application, error) {
	args := m.Called(ctx, app, newSubeventIDs, symbolPrefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}
func (m *RepoMock) UpdateRegistration(ctx context.Context, params models.RegistrationUpdate) error {
	return m.Called(ctx, params).Error(0)
}

type SyncMock struct{ mock.Mock }

func (m *SyncMock) Resync(ctx context.Context, userUID string) error {
	return m.Called(ctx, userUID).Error(0)
}

type SessionsMock struct{ mock.Mock }

func (m *SessionsMock) RefreshRoles(ctx context.Context, username string, roleIDs []int) error {
	return m.Called(ctx, username, roleIDs).Error(0)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) RegistrationChanged(ctx context.Context, event models.RegistrationEvent) error {
	return m.Called(ctx, event).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func intPtr(v int) *int { return &v }

// Catalog fixture: role 1 (attendee, auto-approved), role 2 (lecturer,
// manual approval, requires attendee), role 3 (organizer, incompatible with
// lecturer), role 4 (vip, one already-taken slot). Sub-events 10 and 11
// priced 100 and 150, 12 free with a single already-taken slot, 13 requires
// 10, 14 free and unconstrained.
func testRoles() []models.Role {
	return []models.Role{
		{ID: 1, Name: "attendee", ApprovedAfterRegistration: true},
		{ID: 2, Name: "lecturer", Fee: intPtr(0), RequiredIDs: []int{1}},
		{ID: 3, Name: "organizer", IncompatibleIDs: []int{2}, ApprovedAfterRegistration: true},
		{ID: 4, Name: "vip", Capacity: intPtr(1), Occupancy: 1, ApprovedAfterRegistration: true},
	}
}

func testSubevents() []models.Subevent {
	return []models.Subevent{
		{ID: 10, Name: "friday", Fee: 100},
		{ID: 11, Name: "saturday", Fee: 150},
		{ID: 12, Name: "sunday", Capacity: intPtr(1), Occupancy: 1},
		{ID: 13, Name: "workshop", Fee: 50, RequiredIDs: []int{10}},
		{ID: 14, Name: "evening walk"},
	}
}

func testUser() *models.User {
	return &models.User{
		UID:      "uid-1",
		Username: "user1",
		RoleIDs:  []int{1},
		Approved: true,
	}
}

func TestService_AddSubevents(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *RepoMock, s *SyncMock, n *NotifierMock)
		req        models.DummyAddSubevents
		wantFee    int
		wantState  string
		wantErr    error
	}{
		{
			name: "two priced subevents wait for payment",
			setupMocks: func(r *RepoMock, s *SyncMock, n *NotifierMock) {
				r.On("CreateApplication", mock.Anything, mock.MatchedBy(func(app *models.Application) bool {
					return app.Fee == 250 && app.State == models.ApplicationStateWaitingForPayment && !app.First
				}), []int{10, 11}, "S").Return(&models.Application{
					ID: 5, UserUID: "uid-1", SubeventIDs: []int{10, 11},
					Fee: 250, State: models.ApplicationStateWaitingForPayment,
				}, nil).Once()
				s.On("Resync", mock.Anything, "uid-1").Return(nil).Once()
				n.On("RegistrationChanged", mock.Anything, mock.Anything).Return(nil).Once()
			},
			req:       models.DummyAddSubevents{SubeventIDs: []int{10, 11}},
			wantFee:   250,
			wantState: models.ApplicationStateWaitingForPayment,
		},
		{
			name: "free subevent is paid immediately",
			setupMocks: func(r *RepoMock, s *SyncMock, n *NotifierMock) {
				r.On("CreateApplication", mock.Anything, mock.MatchedBy(func(app *models.Application) bool {
					return app.Fee == 0 && app.State == models.ApplicationStatePaid
				}), []int{14}, "S").Return(&models.Application{
					ID: 6, UserUID: "uid-1", SubeventIDs: []int{14},
					Fee: 0, State: models.ApplicationStatePaid,
				}, nil).Once()
				s.On("Resync", mock.Anything, "uid-1").Return(nil).Once()
				n.On("RegistrationChanged", mock.Anything, mock.Anything).Return(nil).Once()
			},
			req:       models.DummyAddSubevents{SubeventIDs: []int{14}},
			wantFee:   0,
			wantState: models.ApplicationStatePaid,
		},
		{
			name:       "full subevent rejected",
			setupMocks: func(_ *RepoMock, _ *SyncMock, _ *NotifierMock) {},
			req:        models.DummyAddSubevents{SubeventIDs: []int{12}},
			wantErr:    &eligibility.CapacityError{},
		},
		{
			name:       "missing prerequisite rejected",
			setupMocks: func(_ *RepoMock, _ *SyncMock, _ *NotifierMock) {},
			req:        models.DummyAddSubevents{SubeventIDs: []int{13}},
			wantErr:    &eligibility.RequiredError{},
		},
		{
			name:       "unknown subevent rejected",
			setupMocks: func(_ *RepoMock, _ *SyncMock, _ *NotifierMock) {},
			req:        models.DummyAddSubevents{SubeventIDs: []int{99}},
			wantErr:    ErrUnknownItem,
		},
		{
			name: "concurrent registration takes the last slot",
			setupMocks: func(r *RepoMock, _ *SyncMock, _ *NotifierMock) {
				r.On("CreateApplication", mock.Anything, mock.Anything, []int{10}, "S").
					Return(nil, repository.ErrCapacityExceeded).Once()
			},
			req:     models.DummyAddSubevents{SubeventIDs: []int{10}},
			wantErr: repository.ErrCapacityExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			sync := new(SyncMock)
			sessions := new(SessionsMock)
			notifier := new(NotifierMock)

			repo.On("GetUserByUsername", mock.Anything, "user1").Return(testUser(), nil).Once()
			repo.On("ListRegisterableOrUserRoles", mock.Anything, "uid-1", mock.Anything).
				Return(testRoles(), nil).Maybe()
			repo.On("ListExplicitSubevents", mock.Anything).Return(testSubevents(), nil).Maybe()
			tt.setupMocks(repo, sync, notifier)

			svc := New(repo, sync, sessions, notifier, newNoopLogger(), 14, "S")
			got, err := svc.AddSubevents(context.Background(), "user1", tt.req)

			if tt.wantErr != nil {
				assert.Error(t, err)
				switch want := tt.wantErr.(type) {
				case *eligibility.CapacityError:
					var capErr *eligibility.CapacityError
					assert.ErrorAs(t, err, &capErr)
				case *eligibility.RequiredError:
					var reqErr *eligibility.RequiredError
					assert.ErrorAs(t, err, &reqErr)
				default:
					assert.ErrorIs(t, err, want)
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantFee, got.Fee)
				assert.Equal(t, tt.wantState, got.State)
			}

			repo.AssertExpectations(t)
			sync.AssertExpectations(t)
			notifier.AssertExpectations(t)
		})
	}
}

func TestService_AddSubevents_NoExplicitSubevents(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetUserByUsername", mock.Anything, "user1").Return(testUser(), nil).Once()
	repo.On("ListRegisterableOrUserRoles", mock.Anything, "uid-1", mock.Anything).
		Return(testRoles(), nil).Once()
	repo.On("ListExplicitSubevents", mock.Anything).Return([]models.Subevent{}, nil).Once()

	svc := New(repo, new(SyncMock), new(SessionsMock), new(NotifierMock), newNoopLogger(), 14, "S")
	_, err := svc.AddSubevents(context.Background(), "user1", models.DummyAddSubevents{SubeventIDs: []int{10}})

	assert.ErrorIs(t, err, ErrNoExplicitSubevents)
	repo.AssertExpectations(t)
}

func TestService_EditRolesSubevents(t *testing.T) {
	firstApp := func() *models.Application {
		return &models.Application{
			ID: 1, UserUID: "uid-1", SubeventIDs: []int{10},
			Fee: 100, State: models.ApplicationStateWaitingForPayment, First: true,
		}
	}

	tests := []struct {
		name         string
		setupMocks   func(r *RepoMock, s *SyncMock, sess *SessionsMock, n *NotifierMock)
		req          models.DummyEditApplication
		wantFee      int
		wantState    string
		wantApproved bool
		wantErr      error
	}{
		{
			name: "explicit role fee overrides subevent prices",
			setupMocks: func(r *RepoMock, s *SyncMock, sess *SessionsMock, n *NotifierMock) {
				r.On("UpdateRegistration", mock.Anything, mock.MatchedBy(func(u models.RegistrationUpdate) bool {
					return u.Fee == 0 && u.State == models.ApplicationStatePaid &&
						!u.Approved && assert.ObjectsAreEqual([]int{2}, u.NewRoleIDs)
				})).Return(nil).Once()
				s.On("Resync", mock.Anything, "uid-1").Return(nil).Once()
				sess.On("RefreshRoles", mock.Anything, "user1", []int{1, 2}).Return(nil).Once()
				n.On("RegistrationChanged", mock.Anything, mock.Anything).Return(nil).Once()
			},
			req:       models.DummyEditApplication{RoleIDs: []int{1, 2}, SubeventIDs: []int{10, 11}},
			wantFee:   0,
			wantState: models.ApplicationStatePaid,
		},
		{
			name: "subevent prices sum when no role fee set",
			setupMocks: func(r *RepoMock, s *SyncMock, sess *SessionsMock, n *NotifierMock) {
				r.On("UpdateRegistration", mock.Anything, mock.MatchedBy(func(u models.RegistrationUpdate) bool {
					return u.Fee == 250 && u.State == models.ApplicationStateWaitingForPayment && u.Approved
				})).Return(nil).Once()
				s.On("Resync", mock.Anything, "uid-1").Return(nil).Once()
				sess.On("RefreshRoles", mock.Anything, "user1", []int{1}).Return(nil).Once()
				n.On("RegistrationChanged", mock.Anything, mock.Anything).Return(nil).Once()
			},
			req:       models.DummyEditApplication{RoleIDs: []int{1}, SubeventIDs: []int{10, 11}},
			wantFee:   250,
			wantState: models.ApplicationStateWaitingForPayment,
		},
		{
			name:       "incompatible roles rejected",
			setupMocks: func(*RepoMock, *SyncMock, *SessionsMock, *NotifierMock) {},
			req:        models.DummyEditApplication{RoleIDs: []int{1, 2, 3}, SubeventIDs: []int{10}},
			wantErr:    &eligibility.IncompatibleError{},
		},
		{
			name:       "missing required role rejected",
			setupMocks: func(*RepoMock, *SyncMock, *SessionsMock, *NotifierMock) {},
			req:        models.DummyEditApplication{RoleIDs: []int{2}, SubeventIDs: []int{10}},
			wantErr:    &eligibility.RequiredError{},
		},
		{
			name:       "full role rejected",
			setupMocks: func(*RepoMock, *SyncMock, *SessionsMock, *NotifierMock) {},
			req:        models.DummyEditApplication{RoleIDs: []int{1, 4}, SubeventIDs: []int{10}},
			wantErr:    &eligibility.CapacityError{},
		},
		{
			name:       "unknown role rejected",
			setupMocks: func(*RepoMock, *SyncMock, *SessionsMock, *NotifierMock) {},
			req:        models.DummyEditApplication{RoleIDs: []int{99}, SubeventIDs: []int{10}},
			wantErr:    ErrUnknownItem,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			sync := new(SyncMock)
			sessions := new(SessionsMock)
			notifier := new(NotifierMock)

			repo.On("GetUserByUsername", mock.Anything, "user1").Return(testUser(), nil).Once()
			repo.On("FindApplicationByID", mock.Anything, 1).Return(firstApp(), nil).Once()
			repo.On("ListRegisterableOrUserRoles", mock.Anything, "uid-1", mock.Anything).
				Return(testRoles(), nil).Maybe()
			repo.On("ListExplicitSubevents", mock.Anything).Return(testSubevents(), nil).Maybe()
			tt.setupMocks(repo, sync, sessions, notifier)

			svc := New(repo, sync, sessions, notifier, newNoopLogger(), 14, "S")
			got, err := svc.EditRolesSubevents(context.Background(), "user1", 1, tt.req)

			if tt.wantErr != nil {
				assert.Error(t, err)
				switch want := tt.wantErr.(type) {
				case *eligibility.CapacityError:
					var capErr *eligibility.CapacityError
					assert.ErrorAs(t, err, &capErr)
				case *eligibility.IncompatibleError:
					var incErr *eligibility.IncompatibleError
					assert.ErrorAs(t, err, &incErr)
				case *eligibility.RequiredError:
					var reqErr *eligibility.RequiredError
					assert.ErrorAs(t, err, &reqErr)
				default:
					assert.ErrorIs(t, err, want)
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantFee, got.Fee)
				assert.Equal(t, tt.wantState, got.State)
			}

			repo.AssertExpectations(t)
			sync.AssertExpectations(t)
			sessions.AssertExpectations(t)
			notifier.AssertExpectations(t)
		})
	}
}

func TestService_EditRolesSubevents_ApprovalRecompute(t *testing.T) {
	app := func() *models.Application {
		return &models.Application{
			ID: 1, UserUID: "uid-1", SubeventIDs: []int{10},
			Fee: 100, State: models.ApplicationStateWaitingForPayment, First: true,
		}
	}

	tests := []struct {
		name         string
		user         *models.User
		roleIDs      []int
		wantApproved bool
	}{
		{
			name:         "pending user becomes approved with auto-approved roles",
			user:         &models.User{UID: "uid-1", Username: "user1", RoleIDs: []int{1}, Approved: false},
			roleIDs:      []int{1, 3},
			wantApproved: true,
		},
		{
			name:         "newly gained manual role drops approval",
			user:         &models.User{UID: "uid-1", Username: "user1", RoleIDs: []int{1}, Approved: true},
			roleIDs:      []int{1, 2},
			wantApproved: false,
		},
		{
			name:         "held manual role does not block approval",
			user:         &models.User{UID: "uid-1", Username: "user1", RoleIDs: []int{1, 2}, Approved: false},
			roleIDs:      []int{1, 2},
			wantApproved: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			sync := new(SyncMock)
			sessions := new(SessionsMock)
			notifier := new(NotifierMock)

			repo.On("GetUserByUsername", mock.Anything, "user1").Return(tt.user, nil).Once()
			repo.On("FindApplicationByID", mock.Anything, 1).Return(app(), nil).Once()
			repo.On("ListRegisterableOrUserRoles", mock.Anything, "uid-1", mock.Anything).
				Return(testRoles(), nil).Once()
			repo.On("ListExplicitSubevents", mock.Anything).Return(testSubevents(), nil).Once()
			repo.On("UpdateRegistration", mock.Anything, mock.MatchedBy(func(u models.RegistrationUpdate) bool {
				return u.Approved == tt.wantApproved
			})).Return(nil).Once()
			sync.On("Resync", mock.Anything, "uid-1").Return(nil).Once()
			sessions.On("RefreshRoles", mock.Anything, "user1", tt.roleIDs).Return(nil).Once()
			notifier.On("RegistrationChanged", mock.Anything, mock.Anything).Return(nil).Once()

			svc := New(repo, sync, sessions, notifier, newNoopLogger(), 14, "S")
			_, err := svc.EditRolesSubevents(context.Background(), "user1", 1,
				models.DummyEditApplication{RoleIDs: tt.roleIDs, SubeventIDs: []int{10}})

			assert.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_EditRolesSubevents_Ownership(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetUserByUsername", mock.Anything, "user1").Return(testUser(), nil).Twice()
	repo.On("FindApplicationByID", mock.Anything, 1).Return(&models.Application{
		ID: 1, UserUID: "someone-else", State: models.ApplicationStateWaitingForPayment,
	}, nil).Once()
	repo.On("FindApplicationByID", mock.Anything, 2).Return(&models.Application{
		ID: 2, UserUID: "uid-1", State: models.ApplicationStateCancelled,
	}, nil).Once()

	svc := New(repo, new(SyncMock), new(SessionsMock), new(NotifierMock), newNoopLogger(), 14, "S")

	_, err := svc.EditRolesSubevents(context.Background(), "user1", 1,
		models.DummyEditApplication{RoleIDs: []int{1}})
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.EditRolesSubevents(context.Background(), "user1", 2,
		models.DummyEditApplication{RoleIDs: []int{1}})
	assert.ErrorIs(t, err, ErrApplicationCancelled)

	repo.AssertExpectations(t)
}

func TestService_EditRolesSubevents_SyncFailurePropagates(t *testing.T) {
	repo := new(RepoMock)
	sync := new(SyncMock)
	repo.On("GetUserByUsername", mock.Anything, "user1").Return(testUser(), nil).Once()
	repo.On("FindApplicationByID", mock.Anything, 1).Return(&models.Application{
		ID: 1, UserUID: "uid-1", SubeventIDs: []int{10},
		State: models.ApplicationStateWaitingForPayment, First: true,
	}, nil).Once()
	repo.On("ListRegisterableOrUserRoles", mock.Anything, "uid-1", mock.Anything).
		Return(testRoles(), nil).Once()
	repo.On("ListExplicitSubevents", mock.Anything).Return(testSubevents(), nil).Once()
	repo.On("UpdateRegistration", mock.Anything, mock.Anything).Return(nil).Once()
	sync.On("Resync", mock.Anything, "uid-1").Return(errors.New("db down")).Once()

	svc := New(repo, sync, new(SessionsMock), new(NotifierMock), newNoopLogger(), 14, "S")
	_, err := svc.EditRolesSubevents(context.Background(), "user1", 1,
		models.DummyEditApplication{RoleIDs: []int{1}, SubeventIDs: []int{10}})

	assert.Error(t, err)
	repo.AssertExpectations(t)
	sync.AssertExpectations(t)
}
