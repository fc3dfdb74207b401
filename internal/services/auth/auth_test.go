package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mkalvoda/seminar-registration/internal/lib/jwt"
	"github.com/mkalvoda/seminar-registration/internal/lib/password"
	"github.com/mkalvoda/seminar-registration/internal/models"
	"github.com/mkalvoda/seminar-registration/internal/storage/repository"
)

type UsersMock struct{ mock.Mock }

func (m *UsersMock) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}
func (m *UsersMock) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func TestAuthService_Register(t *testing.T) {
	users := new(UsersMock)
	users.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.Username == "user1" && u.Email == "u@example.com" &&
			u.Approved && u.PasswordHash != "secret123"
	})).Return("uid-1", nil).Once()

	svc := NewAuthService(users, jwt.NewJWTMaker("test-secret", time.Hour))
	uid, err := svc.Register(context.Background(), "u@example.com", "user1", "secret123")

	assert.NoError(t, err)
	assert.Equal(t, "uid-1", uid)
	users.AssertExpectations(t)
}

func TestAuthService_Login(t *testing.T) {
	hash, err := password.GetHash("secret123")
	assert.NoError(t, err)

	maker := jwt.NewJWTMaker("test-secret", time.Hour)

	tests := []struct {
		name       string
		setupMocks func(u *UsersMock)
		password   string
		wantErr    error
	}{
		{
			name: "success",
			setupMocks: func(u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "user1").Return(&models.User{
					UID: "uid-1", Username: "user1", PasswordHash: hash,
				}, nil).Once()
			},
			password: "secret123",
		},
		{
			name: "wrong password",
			setupMocks: func(u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "user1").Return(&models.User{
					UID: "uid-1", Username: "user1", PasswordHash: hash,
				}, nil).Once()
			},
			password: "wrong",
			wantErr:  ErrInvalidCredentials,
		},
		{
			name: "unknown user",
			setupMocks: func(u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "user1").
					Return(nil, repository.ErrNotFound).Once()
			},
			password: "secret123",
			wantErr:  ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UsersMock)
			tt.setupMocks(users)

			svc := NewAuthService(users, maker)
			token, err := svc.Login(context.Background(), "user1", tt.password)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				claims, err := maker.ParseToken(token)
				assert.NoError(t, err)
				assert.Equal(t, "user1", claims.Username)
				assert.Equal(t, "uid-1", claims.UserUID)
			}
			users.AssertExpectations(t)
		})
	}
}
