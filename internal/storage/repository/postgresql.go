// Package repository implements the PostgreSQL storage of the registration
// system: the role and sub-event catalog, users, applications and derived
// program enrollment. Occupancy is always counted from current assignments
// at query time, never kept in stored counters.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// pgx driver registration for database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Storage encapsulates the PostgreSQL connection and implements the catalog,
// user and application repositories.
type Storage struct {
	DB *sql.DB
}

// New opens a connection to PostgreSQL and verifies it with a ping.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady verifies that the schema has been migrated.
func (s *Storage) CheckDatabaseReady(ctx context.Context) error {
	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'applications'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table applications missing or query error: %w", err)
	}
	return nil
}
