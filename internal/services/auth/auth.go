// Package auth implements registration and login of seminar attendees.
package auth

import (
	"context"
	"errors"

	"github.com/mkalvoda/seminar-registration/internal/lib/jwt"
	"github.com/mkalvoda/seminar-registration/internal/lib/password"
	"github.com/mkalvoda/seminar-registration/internal/models"
)

// ErrInvalidCredentials is returned on a wrong username or password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository describes the user persistence contract.
type UserRepository interface {
	// RegisterUser saves a new user and returns their UID.
	RegisterUser(ctx context.Context, user models.User) (string, error)

	// GetUserByUsername returns the user or an error when not found.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuthService handles registration, login and JWT validation.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
	}
}

// Register creates a new user with a hashed password. New users start
// approved; selecting a role that needs manual approval later drops the
// flag.
func (s *AuthService) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}
	user := models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Approved:     true,
	}
	return s.users.RegisterUser(ctx, user)
}

// Login verifies the password and issues a JWT.
func (s *AuthService) Login(ctx context.Context, username, rawPassword string) (string, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", ErrInvalidCredentials
	}
	token, err := s.jwtMaker.GenerateToken(user.Username, user.UID)
	if err != nil {
		return "", err
	}
	return token, nil
}

// ValidateToken parses the JWT and returns the identity it carries.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*models.User, bool, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, false, err
	}
	user := &models.User{
		Username: claims.Username,
		UID:      claims.UserUID,
	}
	return user, true, nil
}
