package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// CALENDAR DAYS
// =============================================================================

type calendarRepo struct{ c conn }

const dayColumns = `id, date, category, COALESCE(name, ''), created_at`

// Create registers the day and links dates already booked as ordinary days.
func (r calendarRepo) Create(ctx context.Context, d *allowance.CalendarDay) error {
	return r.c.atomic(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `
			INSERT INTO calendar_days (date, category, name, created_at) VALUES (?, ?, ?, ?)
		`, d.Date.String(), string(d.Category), nullString(d.Name), formatTime(d.CreatedAt))
		if err != nil {
			if isUniqueConstraintError(err) {
				return generic.ConflictError("a calendar day already exists for %s", d.Date)
			}
			return fmt.Errorf("failed to insert calendar day: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		d.ID = id

		_, err = q.ExecContext(ctx, `UPDATE line_days SET calendar_day_id = ? WHERE date = ?`, id, d.Date.String())
		return err
	})
}

func (r calendarRepo) Get(ctx context.Context, id int64) (*allowance.CalendarDay, error) {
	defer r.c.read()()

	row := r.c.q.QueryRowContext(ctx, `SELECT `+dayColumns+` FROM calendar_days WHERE id = ?`, id)
	d, err := scanDay(row)
	if err != nil {
		return nil, notFound(err, "calendar day %d not found", id)
	}
	return d, nil
}

func (r calendarRepo) Year(ctx context.Context, year int) ([]allowance.CalendarDay, error) {
	defer r.c.read()()

	query := `SELECT ` + dayColumns + ` FROM calendar_days`
	var args []any
	if year != 0 {
		query += ` WHERE date BETWEEN ? AND ?`
		args = append(args, generic.StartOfYear(year).String(), generic.EndOfYear(year).String())
	}
	return r.query(ctx, query+` ORDER BY date`, args...)
}

func (r calendarRepo) Resolve(ctx context.Context, dates []generic.Date) (map[generic.Date]allowance.CalendarDay, error) {
	out := make(map[generic.Date]allowance.CalendarDay, len(dates))
	if len(dates) == 0 {
		return out, nil
	}
	defer r.c.read()()

	args := make([]any, len(dates))
	placeholders := make([]string, len(dates))
	for i, d := range dates {
		args[i] = d.String()
		placeholders[i] = "?"
	}
	days, err := r.query(ctx, `SELECT `+dayColumns+` FROM calendar_days WHERE date IN (`+strings.Join(placeholders, ", ")+`)`, args...)
	if err != nil {
		return nil, err
	}
	for _, d := range days {
		out[d.Date] = d
	}
	return out, nil
}

func (r calendarRepo) References(ctx context.Context, id int64) (int, error) {
	defer r.c.read()()

	var n int
	err := r.c.q.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT line_id) FROM line_days
		WHERE calendar_day_id = ? OR date = (SELECT date FROM calendar_days WHERE id = ?)
	`, id, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count references: %w", err)
	}
	return n, nil
}

func (r calendarRepo) Delete(ctx context.Context, id int64) error {
	defer r.c.write()()

	res, err := r.c.q.ExecContext(ctx, `DELETE FROM calendar_days WHERE id = ?`, id)
	if err != nil {
		if isRestrictError(err) {
			return generic.ConflictError("calendar day %d is booked and cannot be deleted", id)
		}
		return fmt.Errorf("failed to delete calendar day: %w", err)
	}
	return rowsAffected(res, "calendar day %d not found", id)
}

func (r calendarRepo) query(ctx context.Context, query string, args ...any) ([]allowance.CalendarDay, error) {
	rows, err := r.c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar days: %w", err)
	}
	defer rows.Close()

	out := []allowance.CalendarDay{}
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func scanDay(s scanner) (*allowance.CalendarDay, error) {
	var (
		d                       allowance.CalendarDay
		date, category, created string
	)
	if err := s.Scan(&d.ID, &date, &category, &d.Name, &created); err != nil {
		return nil, err
	}
	parsed, err := generic.ParseDate(date)
	if err != nil {
		return nil, err
	}
	d.Date = parsed
	d.Category = allowance.Category(category)
	d.CreatedAt = parseTime(created)
	return &d, nil
}
