package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Invocation represents one dispatched tool call stored in the database.
type Invocation struct {
	ID         string
	Tool       string
	Arguments  json.RawMessage
	Status     string
	DurationMs int64
	Error      string
	CreatedAt  time.Time
}

// InvocationRepository provides access to invocation records.
type InvocationRepository struct {
	db *sql.DB
}

// Invocations returns the invocation repository for this store.
func (s *Store) Invocations() *InvocationRepository {
	return &InvocationRepository{db: s.db}
}

// Create inserts a new invocation record.
func (r *InvocationRepository) Create(inv *Invocation) error {
	inv.CreatedAt = time.Now()

	arguments := inv.Arguments
	if arguments == nil {
		arguments = json.RawMessage("{}")
	}

	_, err := r.db.Exec(
		`INSERT INTO invocations (id, tool, arguments, status, duration_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Tool, string(arguments), inv.Status, inv.DurationMs, inv.Error, inv.CreatedAt,
	)
	return err
}

// GetByID retrieves an invocation by its ID.
func (r *InvocationRepository) GetByID(id string) (*Invocation, error) {
	inv := &Invocation{}
	var arguments string

	err := r.db.QueryRow(
		`SELECT id, tool, arguments, status, duration_ms, error, created_at
		 FROM invocations WHERE id = ?`,
		id,
	).Scan(&inv.ID, &inv.Tool, &arguments, &inv.Status, &inv.DurationMs, &inv.Error, &inv.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	inv.Arguments = json.RawMessage(arguments)
	return inv, nil
}

// Recent retrieves the most recent invocations, newest first.
func (r *InvocationRepository) Recent(limit int) ([]*Invocation, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, tool, arguments, status, duration_ms, error, created_at
		 FROM invocations ORDER BY created_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invocations []*Invocation
	for rows.Next() {
		inv := &Invocation{}
		var arguments string

		if err := rows.Scan(&inv.ID, &inv.Tool, &arguments, &inv.Status, &inv.DurationMs, &inv.Error, &inv.CreatedAt); err != nil {
			return nil, err
		}

		inv.Arguments = json.RawMessage(arguments)
		invocations = append(invocations, inv)
	}

	return invocations, rows.Err()
}

// CountByStatus returns the number of invocations with the given status.
func (r *InvocationRepository) CountByStatus(status string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM invocations WHERE status = ?`, status).Scan(&count)
	return count, err
}
