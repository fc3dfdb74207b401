package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mkalvoda/seminar-registration/internal/lib/symbol"
	"github.com/mkalvoda/seminar-registration/internal/models"
)

// ErrCapacityExceeded is returned when the transactional capacity recheck
// finds an item full. The in-process checks run before the transaction, so
// this only fires when another request took the last slot in between.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations, used to retry the MAX+1 order assignment.
const uniqueViolation = "23505"

// ListApplicationsByUser returns the user's applications ordered by their
// order number, each with its sub-event IDs.
func (s *Storage) ListApplicationsByUser(ctx context.Context, userUID string) ([]models.Application, error) {
	const op = "storage.ListApplicationsByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, fee, variable_symbol, application_order, application_date,
			      maturity_date, payment_method, payment_date, state, first_application
			  FROM applications
			  WHERE user_uid = $1
			  ORDER BY application_order`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range result {
		subeventIDs, err := s.queryIDs(ctx,
			`SELECT subevent_id FROM application_subevents WHERE application_id = $1 ORDER BY subevent_id`,
			result[i].ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result[i].SubeventIDs = subeventIDs
	}
	return result, nil
}

// FindApplicationByID returns one application or ErrNotFound.
func (s *Storage) FindApplicationByID(ctx context.Context, id int) (*models.Application, error) {
	const op = "storage.FindApplicationByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, fee, variable_symbol, application_order, application_date,
			      maturity_date, payment_method, payment_date, state, first_application
			  FROM applications
			  WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	subeventIDs, err := s.queryIDs(ctx,
		`SELECT subevent_id FROM application_subevents WHERE application_id = $1 ORDER BY subevent_id`, app.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app.SubeventIDs = subeventIDs
	return app, nil
}

// CreateApplication persists a new application atomically: it re-locks the
// capacity-limited sub-event rows, rechecks remaining capacity under the
// lock, assigns the next order number and the variable symbol, and inserts
// the application with its sub-events. newSubeventIDs are the requested
// sub-events the user does not already hold; only those consume capacity.
//
// The MAX+1 order assignment is protected by a unique constraint; on a
// concurrent collision the transaction is retried once.
func (s *Storage) CreateApplication(ctx context.Context, app *models.Application, newSubeventIDs []int, symbolPrefix string) (*models.Application, error) {
	const op = "storage.CreateApplication"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	for attempt := 0; ; attempt++ {
		created, err := s.createApplicationTx(ctx, app, newSubeventIDs, symbolPrefix)
		if err == nil {
			return created, nil
		}
		var pgErr *pgconn.PgError
		if attempt == 0 && errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			continue
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
}

func (s *Storage) createApplicationTx(ctx context.Context, app *models.Application, newSubeventIDs []int, symbolPrefix string) (*models.Application, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.lockAndRecheckSubevents(ctx, tx, newSubeventIDs); err != nil {
		return nil, err
	}

	var order int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(application_order), 0) + 1 FROM applications`).Scan(&order)
	if err != nil {
		return nil, fmt.Errorf("next application order: %w", err)
	}

	created := *app
	created.ApplicationOrder = order
	created.VariableSymbol = symbol.Generate(symbolPrefix, order)

	err = tx.QueryRowContext(ctx,
		`INSERT INTO applications (user_uid, fee, variable_symbol, application_order,
		     application_date, maturity_date, payment_method, payment_date, state, first_application)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		created.UserUID, created.Fee, created.VariableSymbol, created.ApplicationOrder,
		created.ApplicationDate, created.MaturityDate, created.PaymentMethod, created.PaymentDate,
		created.State, created.First).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("insert application: %w", err)
	}

	for _, subeventID := range created.SubeventIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO application_subevents (application_id, subevent_id) VALUES ($1, $2)`,
			created.ID, subeventID); err != nil {
			return nil, fmt.Errorf("insert application subevent: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &created, nil
}

// UpdateRegistration applies an edit of roles and sub-events in one
// transaction: capacity recheck under row locks, user role replacement,
// approved flag, and the application's sub-events, fee and state.
func (s *Storage) UpdateRegistration(ctx context.Context, params models.RegistrationUpdate) error {
	const op = "storage.UpdateRegistration"
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

	if err := s.lockAndRecheckRoles(ctx, tx, params.NewRoleIDs); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.lockAndRecheckSubevents(ctx, tx, params.NewSubeventIDs); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_uid = $1`, params.UserUID); err != nil {
		return fmt.Errorf("%s: clear user roles: %w", op, err)
	}
	for _, roleID := range params.RoleIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_roles (user_uid, role_id) VALUES ($1, $2)`,
			params.UserUID, roleID); err != nil {
			return fmt.Errorf("%s: insert user role: %w", op, err)
		}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE users SET approved = $1 WHERE uid = $2`, params.Approved, params.UserUID)
	if err != nil {
		return fmt.Errorf("%s: update user: %w", op, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	if params.SubeventIDs != nil {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM application_subevents WHERE application_id = $1`, params.ApplicationID); err != nil {
			return fmt.Errorf("%s: clear application subevents: %w", op, err)
		}
		for _, subeventID := range params.SubeventIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO application_subevents (application_id, subevent_id) VALUES ($1, $2)`,
				params.ApplicationID, subeventID); err != nil {
				return fmt.Errorf("%s: insert application subevent: %w", op, err)
			}
		}
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE applications SET fee = $1, state = $2 WHERE id = $3`,
		params.Fee, params.State, params.ApplicationID)
	if err != nil {
		return fmt.Errorf("%s: update application: %w", op, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit transaction: %w", op, err)
	}
	return nil
}

// lockAndRecheckRoles takes a row-level lock on every capacity-limited role
// in ids and fails with ErrCapacityExceeded when its occupancy already
// reached the capacity. Concurrent edits of the same role serialize on the
// lock, which closes the check-then-write race of the optimistic in-process
// checks.
func (s *Storage) lockAndRecheckRoles(ctx context.Context, tx *sql.Tx, ids []int) error {
	for _, id := range ids {
		var name string
		var capacity sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT name, capacity FROM roles WHERE id = $1 FOR UPDATE`, id).Scan(&name, &capacity)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock role row: %w", err)
		}
		if !capacity.Valid {
			continue
		}
		var occupancy int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM user_roles WHERE role_id = $1`, id).Scan(&occupancy)
		if err != nil {
			return fmt.Errorf("count role occupancy: %w", err)
		}
		if int64(occupancy) >= capacity.Int64 {
			return fmt.Errorf("role %s: %w", name, ErrCapacityExceeded)
		}
	}
	return nil
}

func (s *Storage) lockAndRecheckSubevents(ctx context.Context, tx *sql.Tx, ids []int) error {
	for _, id := range ids {
		var name string
		var capacity sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT name, capacity FROM subevents WHERE id = $1 FOR UPDATE`, id).Scan(&name, &capacity)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock subevent row: %w", err)
		}
		if !capacity.Valid {
			continue
		}
		var occupancy int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(DISTINCT a.user_uid)
			 FROM application_subevents aps
			 JOIN applications a ON a.id = aps.application_id
			 WHERE aps.subevent_id = $1 AND a.state <> 'cancelled'`, id).Scan(&occupancy)
		if err != nil {
			return fmt.Errorf("count subevent occupancy: %w", err)
		}
		if int64(occupancy) >= capacity.Int64 {
			return fmt.Errorf("subevent %s: %w", name, ErrCapacityExceeded)
		}
	}
	return nil
}

// rowScanner lets scanApplication work for both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var app models.Application
	var maturityDate, paymentDate sql.NullTime
	var paymentMethod sql.NullString
	if err := row.Scan(&app.ID, &app.UserUID, &app.Fee, &app.VariableSymbol, &app.ApplicationOrder,
		&app.ApplicationDate, &maturityDate, &paymentMethod, &paymentDate, &app.State, &app.First); err != nil {
		return nil, err
	}
	if maturityDate.Valid {
		app.MaturityDate = &maturityDate.Time
	}
	if paymentMethod.Valid {
		app.PaymentMethod = &paymentMethod.String
	}
	if paymentDate.Valid {
		app.PaymentDate = &paymentDate.Time
	}
	return &app, nil
}
