package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mkalvoda/seminar-registration/internal/models"
)

// ListRegisterableOrUserRoles returns the roles that are currently open for
// registration or already held by the user, ordered by name, with derived
// occupancy and the incompatibility/requirement adjacency attached.
func (s *Storage) ListRegisterableOrUserRoles(ctx context.Context, userUID string, now time.Time) ([]models.Role, error) {
	const op = "storage.ListRegisterableOrUserRoles"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT r.id, r.name, r.fee, r.capacity, r.registerable_from, r.registerable_to,
			      r.approved_after_registration, r.system_role,
			      (SELECT COUNT(*) FROM user_roles ur WHERE ur.role_id = r.id) AS occupancy
			  FROM roles r
			  WHERE ((r.registerable_from IS NULL OR r.registerable_from <= $1)
			         AND (r.registerable_to IS NULL OR r.registerable_to > $1))
			     OR r.id IN (SELECT role_id FROM user_roles WHERE user_uid = $2)
			  ORDER BY r.name`
	rows, err := s.DB.QueryContext(ctx, query, now, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Role
	for rows.Next() {
		var r models.Role
		var regFrom, regTo sql.NullTime
		var roleFee, capacity sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Name, &roleFee, &capacity, &regFrom, &regTo,
			&r.ApprovedAfterRegistration, &r.System, &r.Occupancy); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if roleFee.Valid {
			v := int(roleFee.Int64)
			r.Fee = &v
		}
		if capacity.Valid {
			v := int(capacity.Int64)
			r.Capacity = &v
		}
		if regFrom.Valid {
			r.RegisterableFrom = &regFrom.Time
		}
		if regTo.Valid {
			r.RegisterableTo = &regTo.Time
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range result {
		if err := s.loadRoleEdges(ctx, &result[i]); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return result, nil
}

// loadRoleEdges attaches the incompatibility and requirement adjacency of the
// role.
func (s *Storage) loadRoleEdges(ctx context.Context, role *models.Role) error {
	incompatible, err := s.queryIDs(ctx,
		`SELECT incompatible_role_id FROM role_incompatible WHERE role_id = $1 ORDER BY incompatible_role_id`,
		role.ID)
	if err != nil {
		return err
	}
	required, err := s.queryIDs(ctx,
		`SELECT required_role_id FROM role_required WHERE role_id = $1 ORDER BY required_role_id`,
		role.ID)
	if err != nil {
		return err
	}
	role.IncompatibleIDs = incompatible
	role.RequiredIDs = required
	return nil
}

// queryIDs runs a single-column integer query.
func (s *Storage) queryIDs(ctx context.Context, query string, args ...any) ([]int, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
