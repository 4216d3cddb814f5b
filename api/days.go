package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// CALENDAR ENDPOINTS
// =============================================================================

// ListDays returns registered days, optionally for one year.
// GET /api/days?year=2025
func (h *Handler) ListDays(w http.ResponseWriter, r *http.Request) {
	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 || y > 9999 {
			h.writeError(w, r, generic.ValidationError("year: must be a valid year"))
			return
		}
		year = y
	}

	days, err := h.Calendar.ListDays(r.Context(), year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]DayDTO, len(days))
	for i, d := range days {
		dtos[i] = toDayDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDay registers a weekend or public holiday.
// POST /api/days
func (h *Handler) CreateDay(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var body CreateDayBody
	if err := h.decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	date, err := generic.ParseDate(body.Date)
	if err != nil {
		h.writeError(w, r, generic.ValidationError("date: %v", err))
		return
	}

	day, err := h.Calendar.CreateDay(r.Context(), p, date, allowance.Category(body.Category), body.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDayDTO(*day))
}

// GetDay returns one registered day.
// GET /api/days/{id}
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	day, err := h.Calendar.GetDay(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDayDTO(*day))
}

// DeleteDay removes a day no line holds.
// DELETE /api/days/{id}
func (h *Handler) DeleteDay(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Calendar.DeleteDay(r.Context(), p, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DIRECTORY ENDPOINTS
// =============================================================================

// ListDepartments returns every department.
// GET /api/departments
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := h.Store.Directory().Departments(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]DepartmentDTO, len(depts))
	for i, d := range depts {
		dtos[i] = DepartmentDTO{ID: d.ID, Name: d.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListEmployees returns the caller's department; HR sees everyone.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	departmentID := p.DepartmentID
	if p.Role == allowance.RoleHR {
		departmentID = 0
	}

	emps, err := h.Store.Directory().Employees(r.Context(), departmentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]EmployeeDTO, len(emps))
	for i, e := range emps {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HEALTH
// =============================================================================

type pinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports liveness and, when the store supports it, database reach.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			h.Log.WithError(err).Error("health check failed")
			writeMessages(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
