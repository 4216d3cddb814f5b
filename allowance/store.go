/*
store.go - Persistence interfaces for claims, lines, calendar and directory

PURPOSE:
  Defines the boundary between the claim rules and the database. The core
  never imports a storage library; store/sqlite and store/memory implement
  these interfaces.

KEY INTERFACES:
  Repos:           The repository set visible inside and outside transactions
  Store:           Repos plus WithTx for atomic multi-table writes
  RequestRepo:     Claims and the per-year claim number sequence
  LineRepo:        Lines and their booked dates
  CalendarRepo:    CalendarDay registry
  Directory:       Departments and employees

ATOMICITY:
  WithTx runs fn against repositories bound to one transaction and commits
  only when fn returns nil. Implementations serialize WithTx calls, which is
  what makes "check conflicts, then insert" and "next sequence, then insert"
  safe under concurrent writers.

NOT FOUND:
  Getters return an error wrapping generic.ErrNotFound for missing rows.

SEE ALSO:
  - store/sqlite/sqlite.go: Production implementation
  - store/memory/memory.go: In-memory implementation for tests
*/
package allowance

import (
	"context"

	"github.com/sarahuu/EGBIN-SSP/generic"
)

// RequestFilter narrows ListRequests. Nil fields do not filter.
type RequestFilter struct {
	DepartmentID *int64
	// DraftsOf includes drafts created by this representative. Drafts of
	// anyone else are always excluded.
	DraftsOf *int64
}

// LineFilter narrows line listings. Nil fields do not filter.
type LineFilter struct {
	RequestID    *int64
	DepartmentID *int64
	EmployeeID   *int64
	// DraftsOf has the same meaning as in RequestFilter, applied to the
	// parent claim. With RequestID set, department and draft rules are
	// skipped: the caller has already checked that claim's visibility.
	DraftsOf *int64
}

// Booking is an existing reservation of a date by an employee.
type Booking struct {
	EmployeeID int64
	Date       generic.Date
	LineID     int64
	RequestID  int64
}

type RequestRepo interface {
	// NextSequence returns the next claim number for year, starting at 1.
	NextSequence(ctx context.Context, year int) (int, error)
	Create(ctx context.Context, r *Request) error
	Get(ctx context.Context, id int64) (*Request, error)
	List(ctx context.Context, f RequestFilter) ([]Request, error)
	Update(ctx context.Context, r *Request) error
	// Delete removes the claim and its lines.
	Delete(ctx context.Context, id int64) error
}

type LineRepo interface {
	Create(ctx context.Context, l *Line) error
	Get(ctx context.Context, id int64) (*Line, error)
	List(ctx context.Context, f LineFilter) ([]Line, error)
	// Update rewrites the line including its date set.
	Update(ctx context.Context, l *Line) error
	Delete(ctx context.Context, id int64) error
	// Bookings returns the bookings of employeeID on any of dates, ignoring
	// the line excludeLineID (0 ignores nothing).
	Bookings(ctx context.Context, employeeID int64, dates []generic.Date, excludeLineID int64) ([]Booking, error)
	// OnDate returns every line holding date.
	OnDate(ctx context.Context, date generic.Date) ([]Line, error)
}

type CalendarRepo interface {
	Create(ctx context.Context, d *CalendarDay) error
	Get(ctx context.Context, id int64) (*CalendarDay, error)
	// Year lists the days of year in date order; year 0 lists every day.
	Year(ctx context.Context, year int) ([]CalendarDay, error)
	// Resolve returns the registered days among dates, keyed by date.
	Resolve(ctx context.Context, dates []generic.Date) (map[generic.Date]CalendarDay, error)
	// References counts the lines holding the day's date.
	References(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

type Directory interface {
	Department(ctx context.Context, id int64) (*Department, error)
	Departments(ctx context.Context) ([]Department, error)
	SaveDepartment(ctx context.Context, d *Department) error
	Employee(ctx context.Context, id int64) (*Employee, error)
	// Employees lists a department's employees; departmentID 0 lists all.
	Employees(ctx context.Context, departmentID int64) ([]Employee, error)
	SaveEmployee(ctx context.Context, e *Employee) error
}

// Repos is the repository set.
type Repos interface {
	Requests() RequestRepo
	Lines() LineRepo
	Calendar() CalendarRepo
	Directory() Directory
}

// Store adds transactions to Repos.
type Store interface {
	Repos
	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	WithTx(ctx context.Context, fn func(Repos) error) error
}
