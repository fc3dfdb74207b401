package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mkalvoda/seminar-registration/internal/models"
)

// RegisterUser stores a new user and returns the generated UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (email, username, password_hash, approved, attended)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING uid`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Approved, user.Attended).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUserByUsername returns the user with the current role set and the union
// of sub-events over all non-cancelled applications.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, approved, attended
			  FROM users
			  WHERE username = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, username)
	if err := row.Scan(&u.UID, &u.Email, &u.Username, &u.PasswordHash, &u.Approved, &u.Attended); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	roleIDs, err := s.queryIDs(ctx,
		`SELECT role_id FROM user_roles WHERE user_uid = $1 ORDER BY role_id`, u.UID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	subeventIDs, err := s.queryIDs(ctx,
		`SELECT DISTINCT aps.subevent_id
		 FROM application_subevents aps
		 JOIN applications a ON a.id = aps.application_id
		 WHERE a.user_uid = $1 AND a.state <> 'cancelled'
		 ORDER BY aps.subevent_id`, u.UID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u.RoleIDs = roleIDs
	u.SubeventIDs = subeventIDs
	return u, nil
}
