// Package programsync re-derives state that depends on a user's roles and
// sub-events after a registration change: program enrollments in the
// database and the cached role set of the user's session.
package programsync

import (
	"context"
	"fmt"
)

// Repository persists the derived program enrollments.
type Repository interface {
	// SyncUserPrograms reconciles user_programs with the user's current
	// sub-events.
	SyncUserPrograms(ctx context.Context, userUID string) error
}

// Synchronizer recomputes derived enrollments.
type Synchronizer struct {
	repo Repository
}

func New(repo Repository) *Synchronizer {
	return &Synchronizer{repo: repo}
}

// Resync recomputes the user's program enrollments from their current
// sub-events. It must run after every successful registration mutation.
func (s *Synchronizer) Resync(ctx context.Context, userUID string) error {
	const op = "programsync.Resync"
	if err := s.repo.SyncUserPrograms(ctx, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
