// Package sessions keeps the role set of each authenticated user in the
// cache so that authorization does not hit the database on every request.
// The registration engine refreshes the entry whenever an edit changes the
// user's roles.
package sessions

import (
	"context"
	"fmt"
	"time"
)

const rolesTTL = 24 * time.Hour

// Cache is the key-value backend of the store.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Store caches role sets per username.
type Store struct {
	cache Cache
}

func New(cache Cache) *Store {
	return &Store{cache: cache}
}

// Roles returns the cached role IDs for the username and whether an entry
// existed.
func (s *Store) Roles(ctx context.Context, username string) ([]int, bool, error) {
	const op = "sessions.Roles"
	var roleIDs []int
	found, err := s.cache.Get(ctx, rolesKey(username), &roleIDs)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return roleIDs, found, nil
}

// RefreshRoles replaces the cached role set for the username.
func (s *Store) RefreshRoles(ctx context.Context, username string, roleIDs []int) error {
	const op = "sessions.RefreshRoles"
	if err := s.cache.Set(ctx, rolesKey(username), roleIDs, rolesTTL); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate drops the cached role set, forcing the next read to the
// database.
func (s *Store) Invalidate(ctx context.Context, username string) error {
	const op = "sessions.Invalidate"
	if err := s.cache.Invalidate(ctx, rolesKey(username)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func rolesKey(username string) string {
	return "session:roles:" + username
}
