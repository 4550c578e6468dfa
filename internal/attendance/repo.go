package attendance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrAlreadyCheckedIn is returned when a child already has an active record.
// The partial unique index on (child_id) WHERE status='checked-in' enforces
// the one-active-record invariant at the store.
var ErrAlreadyCheckedIn = errors.New("attendance: child already checked in")

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, child_id, guardian_id, course_id, check_in_staff_id, check_out_staff_id,
	check_in_at, check_out_at, status, notes, check_in_loc, check_out_loc,
	check_in_photo_url, check_out_photo_url, created_at`

// Create inserts a new record with status forced to checked-in and returns
// its id. A second active record for the same child fails with
// ErrAlreadyCheckedIn.
func (r *Repository) Create(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CheckInAt.IsZero() {
		rec.CheckInAt = time.Now().UTC()
	}
	rec.Status = StatusCheckedIn

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records
			(id, child_id, guardian_id, course_id, check_in_staff_id, check_in_at, status, notes, check_in_loc, check_in_photo_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, rec.ID, rec.ChildID, rec.GuardianID, rec.CourseID, rec.CheckInStaffID,
		rec.CheckInAt, rec.Status, rec.Notes, locJSON(rec.CheckInLoc), rec.CheckInPhotoURL)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrAlreadyCheckedIn
		}
		return "", err
	}
	return rec.ID, nil
}

// Checkout closes a record: sets the check-out timestamp, staff, status and
// optional location/photo. The update only matches records still checked in,
// so it reports false both for unknown ids and for already-completed records
// instead of silently rewriting them.
func (r *Repository) Checkout(ctx context.Context, id string, at time.Time, staffID string, loc *Location, photoURL string) (bool, error) {
	var photo *string
	if photoURL != "" {
		photo = &photoURL
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET check_out_at = $2, check_out_staff_id = $3, status = $4,
			check_out_loc = COALESCE($5, check_out_loc),
			check_out_photo_url = COALESCE($6, check_out_photo_url)
		WHERE id = $1 AND status = $7
	`, id, at, staffID, StatusCompleted, locJSON(loc), photo, StatusCheckedIn)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get returns a single record by id, or nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindActiveByChild returns the child's records still checked in.
func (r *Repository) FindActiveByChild(ctx context.Context, childID string) ([]Record, error) {
	return r.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM attendance_records
		 WHERE child_id = $1 AND status = $2 ORDER BY check_in_at DESC`,
		childID, StatusCheckedIn)
}

// GetActive returns every record currently checked in, site-wide.
func (r *Repository) GetActive(ctx context.Context) ([]Record, error) {
	return r.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM attendance_records
		 WHERE status = $1 ORDER BY check_in_at DESC`,
		StatusCheckedIn)
}

// FindAll returns records matching the filter, newest first.
func (r *Repository) FindAll(ctx context.Context, f Filter) ([]Record, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	query := `SELECT ` + recordColumns + ` FROM attendance_records`
	args := []any{}
	clauses := []string{}
	if f.ChildID != "" {
		args = append(args, f.ChildID)
		clauses = append(clauses, fmt.Sprintf("child_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		clauses = append(clauses, fmt.Sprintf("check_in_at >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		clauses = append(clauses, fmt.Sprintf("check_in_at <= $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY check_in_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// FindByDateRange returns records whose check-in falls inside [from, to].
func (r *Repository) FindByDateRange(ctx context.Context, from, to time.Time) ([]Record, error) {
	return r.FindAll(ctx, Filter{From: from, To: to, Limit: 1000})
}

func (r *Repository) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var inLoc, outLoc []byte
	err := row.Scan(&rec.ID, &rec.ChildID, &rec.GuardianID, &rec.CourseID,
		&rec.CheckInStaffID, &rec.CheckOutStaffID, &rec.CheckInAt, &rec.CheckOutAt,
		&rec.Status, &rec.Notes, &inLoc, &outLoc,
		&rec.CheckInPhotoURL, &rec.CheckOutPhotoURL, &rec.CreatedAt)
	if err != nil {
		return Record{}, err
	}
	rec.CheckInLoc = locFromJSON(inLoc)
	rec.CheckOutLoc = locFromJSON(outLoc)
	return rec, nil
}

func locJSON(loc *Location) any {
	if loc == nil {
		return nil
	}
	data, _ := json.Marshal(loc)
	return data
}

func locFromJSON(data []byte) *Location {
	if len(data) == 0 {
		return nil
	}
	var loc Location
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil
	}
	return &loc
}
