package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// REQUESTS
// =============================================================================

type requestRepo struct{ c conn }

const requestColumns = `id, request_id, title, description, department_id, department_rep_id,
	line_manager_id, hr_id, status, created_at, updated_at`

// NextSequence increments the year's counter and returns the new value.
func (r requestRepo) NextSequence(ctx context.Context, year int) (int, error) {
	defer r.c.write()()

	var seq int
	err := r.c.q.QueryRowContext(ctx, `
		INSERT INTO request_sequences (year, last_value) VALUES (?, 1)
		ON CONFLICT(year) DO UPDATE SET last_value = last_value + 1
		RETURNING last_value
	`, year).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence for %d: %w", year, err)
	}
	return seq, nil
}

func (r requestRepo) Create(ctx context.Context, req *allowance.Request) error {
	defer r.c.write()()

	res, err := r.c.q.ExecContext(ctx, `
		INSERT INTO requests (request_id, title, description, department_id, department_rep_id,
			line_manager_id, hr_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		req.RequestID, req.Title, req.Description, req.DepartmentID, req.DepartmentRepID,
		nullInt(req.LineManagerID), nullInt(req.HRID), string(req.Status),
		formatTime(req.CreatedAt), formatTime(req.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ConflictError("request number %s is already in use", req.RequestID)
		}
		if isForeignKeyError(err) {
			return generic.ValidationError("department %d or representative %d does not exist", req.DepartmentID, req.DepartmentRepID)
		}
		return fmt.Errorf("failed to insert request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = id
	return nil
}

func (r requestRepo) Get(ctx context.Context, id int64) (*allowance.Request, error) {
	defer r.c.read()()

	row := r.c.q.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	req, err := scanRequest(row)
	if err != nil {
		return nil, notFound(err, "request %d not found", id)
	}
	return req, nil
}

func (r requestRepo) List(ctx context.Context, f allowance.RequestFilter) ([]allowance.Request, error) {
	defer r.c.read()()

	where, args := requestVisibility("", f.DepartmentID, f.DraftsOf)
	rows, err := r.c.q.QueryContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	out := []allowance.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

// requestVisibility builds the department and draft conditions. prefix
// qualifies the requests columns ("r." in joins).
func requestVisibility(prefix string, departmentID, draftsOf *int64) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if departmentID != nil {
		conds = append(conds, prefix+"department_id = ?")
		args = append(args, *departmentID)
	}
	if draftsOf != nil {
		conds = append(conds, "("+prefix+"status <> 'draft' OR "+prefix+"department_rep_id = ?)")
		args = append(args, *draftsOf)
	} else {
		conds = append(conds, prefix+"status <> 'draft'")
	}
	return strings.Join(conds, " AND "), args
}

func (r requestRepo) Update(ctx context.Context, req *allowance.Request) error {
	defer r.c.write()()

	res, err := r.c.q.ExecContext(ctx, `
		UPDATE requests SET title = ?, description = ?, line_manager_id = ?, hr_id = ?,
			status = ?, updated_at = ?
		WHERE id = ?
	`,
		req.Title, req.Description, nullInt(req.LineManagerID), nullInt(req.HRID),
		string(req.Status), formatTime(req.UpdatedAt), req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	return rowsAffected(res, "request %d not found", req.ID)
}

// Delete removes the request; request_lines and line_days follow by cascade.
func (r requestRepo) Delete(ctx context.Context, id int64) error {
	defer r.c.write()()

	res, err := r.c.q.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	return rowsAffected(res, "request %d not found", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(s scanner) (*allowance.Request, error) {
	var (
		req                  allowance.Request
		status               string
		lineManager, hr      sql.NullInt64
		createdAt, updatedAt string
	)
	err := s.Scan(&req.ID, &req.RequestID, &req.Title, &req.Description, &req.DepartmentID,
		&req.DepartmentRepID, &lineManager, &hr, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	req.Status = allowance.Status(status)
	req.LineManagerID = intPtr(lineManager)
	req.HRID = intPtr(hr)
	req.CreatedAt = parseTime(createdAt)
	req.UpdatedAt = parseTime(updatedAt)
	return &req, nil
}
