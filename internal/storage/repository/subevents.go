package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mkalvoda/seminar-registration/internal/models"
)

// ListExplicitSubevents returns the explicit sub-events ordered by name, with
// derived occupancy and the incompatibility/requirement adjacency attached.
// Occupancy counts distinct users holding the sub-event through a
// non-cancelled application.
func (s *Storage) ListExplicitSubevents(ctx context.Context) ([]models.Subevent, error) {
	const op = "storage.ListExplicitSubevents"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT se.id, se.name, se.fee, se.capacity, se.implicit,
			      (SELECT COUNT(DISTINCT a.user_uid)
			       FROM application_subevents aps
			       JOIN applications a ON a.id = aps.application_id
			       WHERE aps.subevent_id = se.id AND a.state <> 'cancelled') AS occupancy
			  FROM subevents se
			  WHERE se.implicit = false
			  ORDER BY se.name`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Subevent
	for rows.Next() {
		var se models.Subevent
		var capacity sql.NullInt64
		if err := rows.Scan(&se.ID, &se.Name, &se.Fee, &capacity, &se.Implicit, &se.Occupancy); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if capacity.Valid {
			v := int(capacity.Int64)
			se.Capacity = &v
		}
		result = append(result, se)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range result {
		if err := s.loadSubeventEdges(ctx, &result[i]); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return result, nil
}

// CountExplicitSubevents returns the number of explicit sub-events.
func (s *Storage) CountExplicitSubevents(ctx context.Context) (int, error) {
	const op = "storage.CountExplicitSubevents"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subevents WHERE implicit = false`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

func (s *Storage) loadSubeventEdges(ctx context.Context, subevent *models.Subevent) error {
	incompatible, err := s.queryIDs(ctx,
		`SELECT incompatible_subevent_id FROM subevent_incompatible WHERE subevent_id = $1 ORDER BY incompatible_subevent_id`,
		subevent.ID)
	if err != nil {
		return err
	}
	required, err := s.queryIDs(ctx,
		`SELECT required_subevent_id FROM subevent_required WHERE subevent_id = $1 ORDER BY required_subevent_id`,
		subevent.ID)
	if err != nil {
		return err
	}
	subevent.IncompatibleIDs = incompatible
	subevent.RequiredIDs = required
	return nil
}
