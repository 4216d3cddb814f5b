/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model from the external contract: dates travel as YYYY-MM-DD,
  timestamps as RFC 3339, amounts as fixed two-decimal strings.

NAMING CONVENTION:
  - *DTO:  Response types returned to clients
  - *Body: Request body types from clients (validated with struct tags)

VALIDATION:
  Struct tags catch missing and malformed fields before the service runs.
  Business rules (dates exist in the calendar, no double-booking, who may
  do what) stay in the allowance package.

SEE ALSO:
  - handlers.go: Uses these types
  - errors.go:   Tag validation and message flattening
*/
package api

import (
	"time"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// REQUEST BODIES
// =============================================================================

type CreateRequestBody struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"required"`
}

type UpdateRequestBody struct {
	Title       *string `json:"title" validate:"omitempty,max=100"`
	Description *string `json:"description"`
}

type TransitionBody struct {
	Status string `json:"status" validate:"required"`
}

// LineBody is one line of a create call; the batch form is a JSON array.
type LineBody struct {
	EmployeeID int64    `json:"employee_id" validate:"required,gt=0"`
	Dates      []string `json:"dates" validate:"required,dive,required"`
}

type UpdateLineBody struct {
	EmployeeID *int64   `json:"employee_id" validate:"omitempty,gt=0"`
	Dates      []string `json:"dates" validate:"omitempty,dive,required"`
}

type LineResponseBody struct {
	Response string `json:"response" validate:"required,oneof=accepted rejected"`
}

type AttendanceBody struct {
	AttendanceStatus string `json:"attendance_status" validate:"required,oneof=present absent"`
}

type CreateDayBody struct {
	Date     string `json:"date" validate:"required"`
	Category string `json:"category" validate:"required,oneof=weekend public_holiday"`
	Name     string `json:"name" validate:"max=100"`
}

type LoadScenarioBody struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// parseDates converts YYYY-MM-DD strings, naming the field on failure.
func parseDates(raw []string, prefix string) ([]generic.Date, error) {
	if raw == nil {
		return nil, nil
	}
	var errs generic.Errors
	dates := make([]generic.Date, 0, len(raw))
	for _, s := range raw {
		d, err := generic.ParseDate(s)
		if err != nil {
			errs.Add(generic.ValidationError("%sdates: %v", prefix, err))
			continue
		}
		dates = append(dates, d)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return dates, nil
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RequestDTO represents a claim. NextStatuses lists the statuses the caller
// may move it to.
type RequestDTO struct {
	ID              int64    `json:"id"`
	RequestID       string   `json:"request_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	DepartmentID    int64    `json:"department_id"`
	DepartmentRepID int64    `json:"department_rep_id"`
	LineManagerID   *int64   `json:"line_manager_id"`
	HRID            *int64   `json:"hr_id"`
	Status          string   `json:"status"`
	NextStatuses    []string `json:"next_statuses"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

type LineDTO struct {
	ID               int64          `json:"id"`
	RequestID        int64          `json:"request_id"`
	JobDescription   string         `json:"job_description"`
	EmployeeID       int64          `json:"employee_id"`
	Dates            []string       `json:"dates"`
	WeekendCount     int            `json:"weekend_count"`
	HolidayCount     int            `json:"holiday_count"`
	DayCount         int            `json:"day_count"`
	Amount           generic.Amount `json:"amount"`
	Currency         string         `json:"currency"`
	Response         string         `json:"response"`
	ResponseTime     *string        `json:"response_time"`
	AttendanceStatus string         `json:"attendance_status"`
	CreatedAt        string         `json:"created_at"`
}

type DayDTO struct {
	ID        int64  `json:"id"`
	Date      string `json:"date"`
	Category  string `json:"category"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at"`
}

type DepartmentDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type EmployeeDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	DepartmentID int64  `json:"department_id"`
	Role         string `json:"role"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadedScenarioDTO is returned by a scenario load: the seeded employees
// with a ready-to-use bearer token each.
type LoadedScenarioDTO struct {
	Scenario  string             `json:"scenario"`
	Employees []ScenarioLoginDTO `json:"employees"`
}

type ScenarioLoginDTO struct {
	EmployeeDTO
	Token string `json:"token"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toRequestDTO(r allowance.Request, next []allowance.Status) RequestDTO {
	statuses := make([]string, len(next))
	for i, s := range next {
		statuses[i] = string(s)
	}
	return RequestDTO{
		ID:              r.ID,
		RequestID:       r.RequestID,
		Title:           r.Title,
		Description:     r.Description,
		DepartmentID:    r.DepartmentID,
		DepartmentRepID: r.DepartmentRepID,
		LineManagerID:   r.LineManagerID,
		HRID:            r.HRID,
		Status:          string(r.Status),
		NextStatuses:    statuses,
		CreatedAt:       formatTimestamp(r.CreatedAt),
		UpdatedAt:       formatTimestamp(r.UpdatedAt),
	}
}

func toLineDTO(l allowance.Line) LineDTO {
	dates := make([]string, len(l.Dates))
	for i, d := range l.Dates {
		dates[i] = d.String()
	}
	dto := LineDTO{
		ID:               l.ID,
		RequestID:        l.RequestID,
		JobDescription:   l.JobDescription,
		EmployeeID:       l.EmployeeID,
		Dates:            dates,
		WeekendCount:     l.WeekendCount,
		HolidayCount:     l.HolidayCount,
		DayCount:         l.DayCount,
		Amount:           l.Amount,
		Currency:         string(l.Amount.Currency),
		Response:         string(l.Response),
		AttendanceStatus: string(l.AttendanceStatus),
		CreatedAt:        formatTimestamp(l.CreatedAt),
	}
	if l.ResponseTime != nil {
		ts := formatTimestamp(*l.ResponseTime)
		dto.ResponseTime = &ts
	}
	return dto
}

func toLineDTOs(lines []allowance.Line) []LineDTO {
	out := make([]LineDTO, len(lines))
	for i, l := range lines {
		out[i] = toLineDTO(l)
	}
	return out
}

func toDayDTO(d allowance.CalendarDay) DayDTO {
	return DayDTO{
		ID:        d.ID,
		Date:      d.Date.String(),
		Category:  string(d.Category),
		Name:      d.Name,
		CreatedAt: formatTimestamp(d.CreatedAt),
	}
}

func toEmployeeDTO(e allowance.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:           e.ID,
		Name:         e.Name,
		Email:        e.Email,
		DepartmentID: e.DepartmentID,
		Role:         string(e.Role),
	}
}
