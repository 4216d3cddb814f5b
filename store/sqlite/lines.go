package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// LINES
// =============================================================================

type lineRepo struct{ c conn }

const lineColumns = `l.id, l.request_id, l.job_description, l.employee_id, l.weekend_count,
	l.holiday_count, l.day_count, l.amount, l.currency, l.response, l.response_time,
	l.attendance_status, l.created_at`

// Create inserts the line and books its dates atomically.
func (r lineRepo) Create(ctx context.Context, l *allowance.Line) error {
	return r.c.atomic(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `
			INSERT INTO request_lines (request_id, job_description, employee_id, weekend_count,
				holiday_count, day_count, amount, currency, response, response_time,
				attendance_status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			l.RequestID, l.JobDescription, l.EmployeeID, l.WeekendCount,
			l.HolidayCount, l.DayCount, l.Amount.Value.String(), string(l.Amount.Currency),
			string(l.Response), nullTime(l.ResponseTime), string(l.AttendanceStatus),
			formatTime(l.CreatedAt),
		)
		if err != nil {
			if isForeignKeyError(err) {
				return generic.ValidationError("request %d or employee %d does not exist", l.RequestID, l.EmployeeID)
			}
			return fmt.Errorf("failed to insert line: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		l.ID = id
		return bookDates(ctx, q, l)
	})
}

func bookDates(ctx context.Context, q querier, l *allowance.Line) error {
	for _, d := range generic.UniqueDates(l.Dates) {
		_, err := q.ExecContext(ctx, `
			INSERT INTO line_days (line_id, employee_id, date, calendar_day_id)
			VALUES (?, ?, ?, (SELECT id FROM calendar_days WHERE date = ?))
		`, l.ID, l.EmployeeID, d.String(), d.String())
		if err != nil {
			if isUniqueConstraintError(err) {
				return generic.ConflictError("employee %d is already booked for %s", l.EmployeeID, d)
			}
			return fmt.Errorf("failed to book %s: %w", d, err)
		}
	}
	return nil
}

func (r lineRepo) Get(ctx context.Context, id int64) (*allowance.Line, error) {
	defer r.c.read()()

	row := r.c.q.QueryRowContext(ctx, `SELECT `+lineColumns+` FROM request_lines l WHERE l.id = ?`, id)
	l, err := scanLine(row)
	if err != nil {
		return nil, notFound(err, "line %d not found", id)
	}
	if err := loadDates(ctx, r.c.q, []*allowance.Line{l}); err != nil {
		return nil, err
	}
	return l, nil
}

func (r lineRepo) List(ctx context.Context, f allowance.LineFilter) ([]allowance.Line, error) {
	defer r.c.read()()

	var (
		conds []string
		args  []any
	)
	if f.RequestID != nil {
		conds = append(conds, "l.request_id = ?")
		args = append(args, *f.RequestID)
	} else {
		where, wargs := requestVisibility("r.", f.DepartmentID, f.DraftsOf)
		conds = append(conds, where)
		args = append(args, wargs...)
	}
	if f.EmployeeID != nil {
		conds = append(conds, "l.employee_id = ?")
		args = append(args, *f.EmployeeID)
	}

	query := `SELECT ` + lineColumns + ` FROM request_lines l
		JOIN requests r ON r.id = l.request_id
		WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY l.id`
	return r.query(ctx, query, args...)
}

func (r lineRepo) query(ctx context.Context, query string, args ...any) ([]allowance.Line, error) {
	rows, err := r.c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list lines: %w", err)
	}
	var lines []*allowance.Line
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// rows must be closed first: an in-memory database has one connection.
	if err := loadDates(ctx, r.c.q, lines); err != nil {
		return nil, err
	}
	out := make([]allowance.Line, len(lines))
	for i, l := range lines {
		out[i] = *l
	}
	return out, nil
}

// Update rewrites the line's fields and replaces its booked dates.
func (r lineRepo) Update(ctx context.Context, l *allowance.Line) error {
	return r.c.atomic(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `
			UPDATE request_lines SET employee_id = ?, weekend_count = ?, holiday_count = ?,
				day_count = ?, amount = ?, currency = ?, response = ?, response_time = ?,
				attendance_status = ?
			WHERE id = ?
		`,
			l.EmployeeID, l.WeekendCount, l.HolidayCount, l.DayCount,
			l.Amount.Value.String(), string(l.Amount.Currency), string(l.Response),
			nullTime(l.ResponseTime), string(l.AttendanceStatus), l.ID,
		)
		if err != nil {
			if isForeignKeyError(err) {
				return generic.ValidationError("employee %d does not exist", l.EmployeeID)
			}
			return fmt.Errorf("failed to update line: %w", err)
		}
		if err := rowsAffected(res, "line %d not found", l.ID); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM line_days WHERE line_id = ?`, l.ID); err != nil {
			return fmt.Errorf("failed to clear booked dates: %w", err)
		}
		return bookDates(ctx, q, l)
	})
}

func (r lineRepo) Delete(ctx context.Context, id int64) error {
	defer r.c.write()()

	res, err := r.c.q.ExecContext(ctx, `DELETE FROM request_lines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete line: %w", err)
	}
	return rowsAffected(res, "line %d not found", id)
}

func (r lineRepo) Bookings(ctx context.Context, employeeID int64, dates []generic.Date, excludeLineID int64) ([]allowance.Booking, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	defer r.c.read()()

	args := []any{employeeID, excludeLineID}
	placeholders := make([]string, len(dates))
	for i, d := range dates {
		placeholders[i] = "?"
		args = append(args, d.String())
	}

	rows, err := r.c.q.QueryContext(ctx, `
		SELECT ld.date, ld.line_id, l.request_id
		FROM line_days ld
		JOIN request_lines l ON l.id = ld.line_id
		WHERE ld.employee_id = ? AND ld.line_id <> ? AND ld.date IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY ld.date
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var out []allowance.Booking
	for rows.Next() {
		var (
			b    allowance.Booking
			date string
		)
		if err := rows.Scan(&date, &b.LineID, &b.RequestID); err != nil {
			return nil, err
		}
		b.EmployeeID = employeeID
		b.Date, err = generic.ParseDate(date)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r lineRepo) OnDate(ctx context.Context, date generic.Date) ([]allowance.Line, error) {
	defer r.c.read()()

	return r.query(ctx, `SELECT `+lineColumns+` FROM request_lines l
		WHERE l.id IN (SELECT line_id FROM line_days WHERE date = ?)
		ORDER BY l.id`, date.String())
}

// loadDates fills Dates for each line, ascending.
func loadDates(ctx context.Context, q querier, lines []*allowance.Line) error {
	if len(lines) == 0 {
		return nil
	}
	byID := make(map[int64]*allowance.Line, len(lines))
	args := make([]any, len(lines))
	placeholders := make([]string, len(lines))
	for i, l := range lines {
		byID[l.ID] = l
		l.Dates = []generic.Date{}
		args[i] = l.ID
		placeholders[i] = "?"
	}

	rows, err := q.QueryContext(ctx, `
		SELECT line_id, date FROM line_days
		WHERE line_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY line_id, date
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to load booked dates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			lineID int64
			date   string
		)
		if err := rows.Scan(&lineID, &date); err != nil {
			return err
		}
		d, err := generic.ParseDate(date)
		if err != nil {
			return err
		}
		byID[lineID].Dates = append(byID[lineID].Dates, d)
	}
	return rows.Err()
}

func scanLine(s scanner) (*allowance.Line, error) {
	var (
		l                             allowance.Line
		amount, currency              string
		response, attendance, created string
		responseTime                  sql.NullString
	)
	err := s.Scan(&l.ID, &l.RequestID, &l.JobDescription, &l.EmployeeID, &l.WeekendCount,
		&l.HolidayCount, &l.DayCount, &amount, &currency, &response, &responseTime,
		&attendance, &created)
	if err != nil {
		return nil, err
	}
	l.Amount, err = generic.ParseAmount(amount, generic.Currency(currency))
	if err != nil {
		return nil, fmt.Errorf("line %d: invalid amount %q: %w", l.ID, amount, err)
	}
	l.Response = allowance.Response(response)
	l.AttendanceStatus = allowance.Attendance(attendance)
	l.CreatedAt = parseTime(created)
	if responseTime.Valid {
		t := parseTime(responseTime.String)
		l.ResponseTime = &t
	}
	return &l, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return nullString(formatTime(*t))
}
