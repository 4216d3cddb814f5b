package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// DIRECTORY
// =============================================================================

type directory struct{ c conn }

func (r directory) Department(ctx context.Context, id int64) (*allowance.Department, error) {
	defer r.c.read()()

	var d allowance.Department
	err := r.c.q.QueryRowContext(ctx, `SELECT id, name FROM departments WHERE id = ?`, id).Scan(&d.ID, &d.Name)
	if err != nil {
		return nil, notFound(err, "department %d not found", id)
	}
	return &d, nil
}

func (r directory) Departments(ctx context.Context) ([]allowance.Department, error) {
	defer r.c.read()()

	rows, err := r.c.q.QueryContext(ctx, `SELECT id, name FROM departments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	out := []allowance.Department{}
	for rows.Next() {
		var d allowance.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SaveDepartment inserts d, or replaces the row when d.ID is already set.
func (r directory) SaveDepartment(ctx context.Context, d *allowance.Department) error {
	defer r.c.write()()

	var (
		res sql.Result
		err error
	)
	if d.ID == 0 {
		res, err = r.c.q.ExecContext(ctx, `INSERT INTO departments (name) VALUES (?)`, d.Name)
	} else {
		res, err = r.c.q.ExecContext(ctx, `
			INSERT INTO departments (id, name) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name
		`, d.ID, d.Name)
	}
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ConflictError("department %q already exists", d.Name)
		}
		return fmt.Errorf("failed to save department: %w", err)
	}
	if d.ID == 0 {
		d.ID, err = res.LastInsertId()
	}
	return err
}

const employeeColumns = `id, name, COALESCE(email, ''), department_id, role`

func (r directory) Employee(ctx context.Context, id int64) (*allowance.Employee, error) {
	defer r.c.read()()

	row := r.c.q.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	e, err := scanEmployee(row)
	if err != nil {
		return nil, notFound(err, "employee %d not found", id)
	}
	return e, nil
}

func (r directory) Employees(ctx context.Context, departmentID int64) ([]allowance.Employee, error) {
	defer r.c.read()()

	query := `SELECT ` + employeeColumns + ` FROM employees`
	var args []any
	if departmentID != 0 {
		query += ` WHERE department_id = ?`
		args = append(args, departmentID)
	}
	rows, err := r.c.q.QueryContext(ctx, query+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	out := []allowance.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// SaveEmployee inserts e, or replaces the row when e.ID is already set.
func (r directory) SaveEmployee(ctx context.Context, e *allowance.Employee) error {
	if _, err := allowance.ParseRole(string(e.Role)); err != nil {
		return err
	}
	defer r.c.write()()

	var (
		res sql.Result
		err error
	)
	if e.ID == 0 {
		res, err = r.c.q.ExecContext(ctx, `
			INSERT INTO employees (name, email, department_id, role) VALUES (?, ?, ?, ?)
		`, e.Name, nullString(e.Email), e.DepartmentID, string(e.Role))
	} else {
		res, err = r.c.q.ExecContext(ctx, `
			INSERT INTO employees (id, name, email, department_id, role) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email,
				department_id = excluded.department_id, role = excluded.role
		`, e.ID, e.Name, nullString(e.Email), e.DepartmentID, string(e.Role))
	}
	if err != nil {
		if isForeignKeyError(err) {
			return generic.NotFoundError("department %d not found", e.DepartmentID)
		}
		return fmt.Errorf("failed to save employee: %w", err)
	}
	if e.ID == 0 {
		e.ID, err = res.LastInsertId()
	}
	return err
}

func scanEmployee(s scanner) (*allowance.Employee, error) {
	var (
		e    allowance.Employee
		role string
	)
	if err := s.Scan(&e.ID, &e.Name, &e.Email, &e.DepartmentID, &role); err != nil {
		return nil, err
	}
	e.Role = allowance.Role(role)
	return &e, nil
}
