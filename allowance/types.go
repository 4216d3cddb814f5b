/*
Package allowance implements inconvenience allowance claims.

PURPOSE:
  A department representative opens a claim (InconvenienceRequest), attaches
  one line per employee listing the weekend and public-holiday dates worked,
  and the claim moves through line manager and HR approval. Each line's
  amount is derived from the calendar classification of its dates.

KEY CONCEPTS IN THIS FILE (types.go):
  - Role:        Who is acting (department rep, line manager, HR, employee)
  - Status:      Where the claim sits in the approval pipeline
  - CalendarDay: A registry entry classifying a date
  - Request:     The claim
  - Line:        One employee's dates within a claim, with derived amounts
  - Principal:   The authenticated actor

SEE ALSO:
  - lifecycle.go: Status transition table
  - allocator.go: Derived line fields
  - bulk.go:      Batch validation
  - service.go:   Operations
*/
package allowance

import (
	"fmt"
	"time"

	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// ROLES
// =============================================================================

type Role string

const (
	RoleDeptRep     Role = "department_rep"
	RoleLineManager Role = "line_manager"
	RoleHR          Role = "hr"
	RoleEmployee    Role = "employee"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDeptRep, RoleLineManager, RoleHR, RoleEmployee:
		return true
	}
	return false
}

// ParseRole accepts the canonical role names.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", generic.ValidationError("unknown role %q", s)
	}
	return r, nil
}

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusDraft           Status = "draft"
	StatusSubmitted       Status = "submitted"
	StatusManagerApproved Status = "manager_approved"
	StatusWorkDone        Status = "work_done"
	StatusHRApproval      Status = "hr_approval"
	StatusCompleted       Status = "completed"
	StatusRejected        Status = "rejected"
)

// Statuses is the canonical status list in pipeline order.
var Statuses = []Status{
	StatusDraft,
	StatusSubmitted,
	StatusManagerApproved,
	StatusWorkDone,
	StatusHRApproval,
	StatusCompleted,
	StatusRejected,
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// =============================================================================
// LINE RESPONSE / ATTENDANCE
// =============================================================================

type Response string

const (
	ResponsePending  Response = "pending"
	ResponseAccepted Response = "accepted"
	ResponseRejected Response = "rejected"
)

type Attendance string

const (
	AttendancePending Attendance = "pending"
	AttendancePresent Attendance = "present"
	AttendanceAbsent  Attendance = "absent"
)

// =============================================================================
// CALENDAR
// =============================================================================

type Category string

const (
	CategoryWeekend       Category = "weekend"
	CategoryPublicHoliday Category = "public_holiday"
)

func (c Category) Valid() bool {
	return c == CategoryWeekend || c == CategoryPublicHoliday
}

// CalendarDay classifies a date. Dates absent from the registry are
// ordinary days.
type CalendarDay struct {
	ID        int64
	Date      generic.Date
	Category  Category
	Name      string
	CreatedAt time.Time
}

// =============================================================================
// DIRECTORY
// =============================================================================

type Department struct {
	ID   int64
	Name string
}

type Employee struct {
	ID           int64
	Name         string
	Email        string
	DepartmentID int64
	Role         Role
}

// Principal is the authenticated actor of an operation.
type Principal struct {
	UserID       int64
	Name         string
	Role         Role
	DepartmentID int64
}

// PrincipalFor builds the principal of a directory employee.
func PrincipalFor(e Employee) Principal {
	return Principal{UserID: e.ID, Name: e.Name, Role: e.Role, DepartmentID: e.DepartmentID}
}

// =============================================================================
// REQUEST
// =============================================================================

// Request is an inconvenience allowance claim.
type Request struct {
	ID              int64
	RequestID       string // IAR/<year>/<seq>, assigned once on creation
	Title           string
	Description     string
	DepartmentID    int64
	DepartmentRepID int64
	LineManagerID   *int64
	HRID            *int64
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RequestIDPrefix prefixes every human-readable claim number.
const RequestIDPrefix = "IAR"

// FormatRequestID renders the claim number for a year and sequence.
func FormatRequestID(year int, seq int) string {
	return fmt.Sprintf("%s/%d/%04d", RequestIDPrefix, year, seq)
}

// =============================================================================
// LINE
// =============================================================================

// Line is one employee's dates within a claim. The counts and amount are
// derived by the Allocator and never set independently.
type Line struct {
	ID               int64
	RequestID        int64
	JobDescription   string
	EmployeeID       int64
	Dates            []generic.Date
	WeekendCount     int
	HolidayCount     int
	DayCount         int
	Amount           generic.Amount
	Response         Response
	ResponseTime     *time.Time
	AttendanceStatus Attendance
	CreatedAt        time.Time
}

// Apply copies an allocation onto the line's derived fields.
func (l *Line) Apply(a Allocation) {
	l.Dates = a.Dates
	l.WeekendCount = a.WeekendCount
	l.HolidayCount = a.HolidayCount
	l.DayCount = a.DayCount
	l.Amount = a.Amount
}

// LineInput is a submitted line before validation.
type LineInput struct {
	EmployeeID int64
	Dates      []generic.Date
}
