// Package children is a read-only directory of enrolled children. The
// entities are owned by the enrollment system; attendance only reads
// identifiers and display fields.
package children

import (
	"context"
	"database/sql"
	"errors"
)

// Child is an enrolled child reference.
type Child struct {
	ID         string `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	GuardianID string `json:"guardianId"`
}

// Name returns the display name.
func (c Child) Name() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Directory reads children from Postgres.
type Directory struct {
	db *sql.DB
}

// NewDirectory creates a directory.
func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

// Get returns a child by id, or nil when unknown.
func (d *Directory) Get(ctx context.Context, id string) (*Child, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, guardian_id
		FROM children WHERE id = $1
	`, id)
	var c Child
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.GuardianID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// List returns all children, ordered by name.
func (d *Directory) List(ctx context.Context) ([]Child, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, guardian_id
		FROM children ORDER BY last_name, first_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Child
	for rows.Next() {
		var c Child
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.GuardianID); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
