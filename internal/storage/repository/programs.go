package repository

import (
	"context"
	"fmt"
)

// SyncUserPrograms reconciles the user's derived program attendance with the
// sub-events they currently hold: auto-registration programs of held
// sub-events gain a row, rows for programs of sub-events no longer held are
// removed. Manually registered programs of still-held sub-events stay.
func (s *Storage) SyncUserPrograms(ctx context.Context, userUID string) error {
	const op = "storage.SyncUserPrograms"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM user_programs up
		 USING programs p
		 WHERE up.program_id = p.id
		   AND up.user_uid = $1
		   AND p.subevent_id NOT IN (
		       SELECT aps.subevent_id
		       FROM application_subevents aps
		       JOIN applications a ON a.id = aps.application_id
		       WHERE a.user_uid = $1 AND a.state <> 'cancelled')`,
		userUID)
	if err != nil {
		return fmt.Errorf("%s: remove stale programs: %w", op, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_programs (user_uid, program_id)
		 SELECT $1, p.id
		 FROM programs p
		 WHERE p.auto_register
		   AND p.subevent_id IN (
		       SELECT aps.subevent_id
		       FROM application_subevents aps
		       JOIN applications a ON a.id = aps.application_id
		       WHERE a.user_uid = $1 AND a.state <> 'cancelled')
		 ON CONFLICT (user_uid, program_id) DO NOTHING`,
		userUID)
	if err != nil {
		return fmt.Errorf("%s: add auto-registration programs: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit transaction: %w", op, err)
	}
	return nil
}
