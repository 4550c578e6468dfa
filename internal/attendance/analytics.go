package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// analytics queries operate on the same table as the record store; they are
// read-only roll-ups used by admin reporting.

func (r *Repository) rangeClause(from, to time.Time, childID string, args *[]any) string {
	clauses := []string{}
	if !from.IsZero() {
		*args = append(*args, from)
		clauses = append(clauses, fmt.Sprintf("check_in_at >= $%d", len(*args)))
	}
	if !to.IsZero() {
		*args = append(*args, to)
		clauses = append(clauses, fmt.Sprintf("check_in_at <= $%d", len(*args)))
	}
	if childID != "" {
		*args = append(*args, childID)
		clauses = append(clauses, fmt.Sprintf("child_id = $%d", len(*args)))
	}
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

// Summarize rolls up totals and average session length over a range.
func (r *Repository) Summarize(ctx context.Context, from, to time.Time, childID string) (Summary, error) {
	args := []any{}
	where := r.rangeClause(from, to, childID, &args)
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'checked-in'),
			COALESCE(AVG(EXTRACT(EPOCH FROM (check_out_at - check_in_at)) / 60)
				FILTER (WHERE check_out_at IS NOT NULL), 0)
		FROM attendance_records`+where, args...)
	var s Summary
	if err := row.Scan(&s.Total, &s.Completed, &s.Active, &s.AvgDurationMin); err != nil {
		return Summary{}, err
	}
	return s, nil
}

// DailyCounts returns per-day check-in and check-out totals.
func (r *Repository) DailyCounts(ctx context.Context, from, to time.Time, childID string) ([]DailyCount, error) {
	args := []any{}
	where := r.rangeClause(from, to, childID, &args)
	rows, err := r.db.QueryContext(ctx, `
		SELECT to_char(check_in_at::date, 'YYYY-MM-DD'), COUNT(*), COUNT(check_out_at)
		FROM attendance_records`+where+`
		GROUP BY 1 ORDER BY 1`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []DailyCount
	for rows.Next() {
		var d DailyCount
		if err := rows.Scan(&d.Date, &d.CheckIns, &d.CheckOuts); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// ChildCounts returns per-child session counts and total supervised minutes.
func (r *Repository) ChildCounts(ctx context.Context, from, to time.Time) ([]ChildCount, error) {
	args := []any{}
	where := r.rangeClause(from, to, "", &args)
	rows, err := r.db.QueryContext(ctx, `
		SELECT child_id, COUNT(*),
			COALESCE(SUM(EXTRACT(EPOCH FROM (check_out_at - check_in_at)) / 60)
				FILTER (WHERE check_out_at IS NOT NULL), 0)
		FROM attendance_records`+where+`
		GROUP BY child_id ORDER BY COUNT(*) DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ChildCount
	for rows.Next() {
		var c ChildCount
		if err := rows.Scan(&c.ChildID, &c.Sessions, &c.TotalMinutes); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// MonthlyCounts returns per-month session totals.
func (r *Repository) MonthlyCounts(ctx context.Context, from, to time.Time, childID string) ([]MonthlyCount, error) {
	args := []any{}
	where := r.rangeClause(from, to, childID, &args)
	rows, err := r.db.QueryContext(ctx, `
		SELECT to_char(check_in_at, 'YYYY-MM'), COUNT(*)
		FROM attendance_records`+where+`
		GROUP BY 1 ORDER BY 1`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []MonthlyCount
	for rows.Next() {
		var m MonthlyCount
		if err := rows.Scan(&m.Month, &m.Sessions); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
