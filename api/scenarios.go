/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate an empty database with a
	directory, a calendar for the current year and a few claims, so the
	approval pipeline can be walked through end to end.

AVAILABLE SCENARIOS:

	weekend-roster:    Two departments, one draft claim with two lines
	approval-pipeline: weekend-roster plus a claim awaiting HR and a
	                   completed one

HOW SCENARIOS WORK:
 1. Refuse unless the directory is empty
 2. Seed departments and employees with fixed IDs
 3. Import a calendar (weekends + public holidays) via the factory
 4. Create claims and lines through RequestService, as the seeded users
 5. Return every seeded employee with a bearer token

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "approval-pipeline"}

SEE ALSO:
  - server.go: Scenario routes are mounted only in development
  - factory/calendar.go: Calendar JSON
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/factory"
	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "weekend-roster",
		Name:        "Weekend Roster",
		Description: "Operations prepares a draft claim for two employees",
	},
	{
		ID:          "approval-pipeline",
		Name:        "Approval Pipeline",
		Description: "Claims at every stage: draft, awaiting HR and completed",
	},
}

// Fixed directory IDs so tokens and examples stay stable.
const (
	deptOperations int64 = 1
	deptFinance    int64 = 2
	deptHR         int64 = 3

	empRep      int64 = 1
	empManager  int64 = 2
	empHR       int64 = 3
	empTechA    int64 = 4
	empTechB    int64 = 5
	empFinRep   int64 = 6
	empFinClerk int64 = 7
)

var (
	scenarioDepartments = []allowance.Department{
		{ID: deptOperations, Name: "Operations"},
		{ID: deptFinance, Name: "Finance"},
		{ID: deptHR, Name: "Human Resources"},
	}

	scenarioEmployees = []allowance.Employee{
		{ID: empRep, Name: "Amaka Obi", Email: "amaka.obi@example.com", DepartmentID: deptOperations, Role: allowance.RoleDeptRep},
		{ID: empManager, Name: "Tunde Bakare", Email: "tunde.bakare@example.com", DepartmentID: deptOperations, Role: allowance.RoleLineManager},
		{ID: empHR, Name: "Ngozi Eze", Email: "ngozi.eze@example.com", DepartmentID: deptHR, Role: allowance.RoleHR},
		{ID: empTechA, Name: "Emeka Nwosu", Email: "emeka.nwosu@example.com", DepartmentID: deptOperations, Role: allowance.RoleEmployee},
		{ID: empTechB, Name: "Funmi Adeyemi", Email: "funmi.adeyemi@example.com", DepartmentID: deptOperations, Role: allowance.RoleEmployee},
		{ID: empFinRep, Name: "Bayo Lawal", Email: "bayo.lawal@example.com", DepartmentID: deptFinance, Role: allowance.RoleDeptRep},
		{ID: empFinClerk, Name: "Kemi Okafor", Email: "kemi.okafor@example.com", DepartmentID: deptFinance, Role: allowance.RoleEmployee},
	}
)

// scenarioCalendar is the year's weekends plus fixed public holidays.
func scenarioCalendar(year int) factory.CalendarJSON {
	date := func(m time.Month, d int) string { return generic.NewDate(year, m, d).String() }
	return factory.CalendarJSON{
		Year:     year,
		Weekends: true,
		PublicHolidays: []factory.HolidayJSON{
			{Date: date(time.January, 1), Name: "New Year's Day"},
			{Date: date(time.May, 1), Name: "Workers' Day"},
			{Date: date(time.June, 12), Name: "Democracy Day"},
			{Date: date(time.October, 1), Name: "Independence Day"},
			{Date: date(time.December, 25), Name: "Christmas Day"},
			{Date: date(time.December, 26), Name: "Boxing Day"},
		},
	}
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the loaded scenario, or null.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario seeds an empty database.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var body LoadScenarioBody
	if err := h.decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	loaded, err := h.Seed(r.Context(), body.ScenarioID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loaded)
}

// Seed loads scenario id into an empty database.
func (h *Handler) Seed(ctx context.Context, id string) (*LoadedScenarioDTO, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	loaded, err := h.loadScenario(ctx, id)
	if err != nil {
		return nil, err
	}
	h.currentScenario = id
	h.Log.WithField("scenario", id).Info("scenario loaded")
	return loaded, nil
}

func (h *Handler) loadScenario(ctx context.Context, id string) (*LoadedScenarioDTO, error) {
	var load func(ctx context.Context) error
	switch id {
	case "weekend-roster":
		load = h.loadWeekendRosterScenario
	case "approval-pipeline":
		load = h.loadApprovalPipelineScenario
	default:
		return nil, generic.ValidationError("scenario_id: unknown scenario %q", id)
	}

	depts, err := h.Store.Directory().Departments(ctx)
	if err != nil {
		return nil, err
	}
	if len(depts) > 0 {
		return nil, generic.ConflictError("scenarios load into an empty database; this one already has %d department(s)", len(depts))
	}

	if err := load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load scenario %s: %w", id, err)
	}

	out := &LoadedScenarioDTO{Scenario: id}
	for _, e := range scenarioEmployees {
		token, err := h.Auth.Issue(e.ID)
		if err != nil {
			return nil, err
		}
		out.Employees = append(out.Employees, ScenarioLoginDTO{EmployeeDTO: toEmployeeDTO(e), Token: token})
	}
	return out, nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) seedDirectory(ctx context.Context) error {
	return h.Store.WithTx(ctx, func(repos allowance.Repos) error {
		for _, d := range scenarioDepartments {
			dept := d
			if err := repos.Directory().SaveDepartment(ctx, &dept); err != nil {
				return err
			}
		}
		for _, e := range scenarioEmployees {
			emp := e
			if err := repos.Directory().SaveEmployee(ctx, &emp); err != nil {
				return err
			}
		}
		return nil
	})
}

func (h *Handler) seedCalendar(ctx context.Context, year int) error {
	days, err := h.Calendars.FromJSON(scenarioCalendar(year))
	if err != nil {
		return err
	}
	_, err = h.Calendar.ImportDays(ctx, days)
	return err
}

func (h *Handler) employee(ctx context.Context, id int64) (allowance.Principal, error) {
	e, err := h.Store.Directory().Employee(ctx, id)
	if err != nil {
		return allowance.Principal{}, err
	}
	return allowance.PrincipalFor(*e), nil
}

// newClaim creates a claim as the representative with one line per input.
func (h *Handler) newClaim(ctx context.Context, rep allowance.Principal, title, desc string, lines []allowance.LineInput) (*allowance.Request, error) {
	req, err := h.Requests.CreateRequest(ctx, rep, allowance.RequestInput{Title: title, Description: desc})
	if err != nil {
		return nil, err
	}
	if _, err := h.Requests.CreateLines(ctx, rep, req.ID, lines, true); err != nil {
		return nil, err
	}
	return req, nil
}

// firstWeekend returns the first Saturday of month and the Sunday after.
func firstWeekend(year int, month time.Month) []generic.Date {
	d := generic.NewDate(year, month, 1)
	for d.Weekday() != time.Saturday {
		d = d.AddDays(1)
	}
	return []generic.Date{d, d.AddDays(1)}
}

func (h *Handler) loadWeekendRosterScenario(ctx context.Context) error {
	year := h.Requests.Now().Year()
	if err := h.seedDirectory(ctx); err != nil {
		return err
	}
	if err := h.seedCalendar(ctx, year); err != nil {
		return err
	}

	rep, err := h.employee(ctx, empRep)
	if err != nil {
		return err
	}
	_, err = h.newClaim(ctx, rep, "March plant maintenance",
		"Turbine inspection over the first March weekend",
		[]allowance.LineInput{
			{EmployeeID: empTechA, Dates: firstWeekend(year, time.March)},
			{EmployeeID: empTechB, Dates: append(firstWeekend(year, time.March)[:1], generic.NewDate(year, time.May, 1))},
		})
	return err
}

func (h *Handler) loadApprovalPipelineScenario(ctx context.Context) error {
	if err := h.loadWeekendRosterScenario(ctx); err != nil {
		return err
	}
	year := h.Requests.Now().Year()

	rep, err := h.employee(ctx, empRep)
	if err != nil {
		return err
	}
	manager, err := h.employee(ctx, empManager)
	if err != nil {
		return err
	}
	hr, err := h.employee(ctx, empHR)
	if err != nil {
		return err
	}

	// Awaiting HR: submitted and approved by the line manager.
	awaiting, err := h.newClaim(ctx, rep, "Independence Day standby",
		"Control room cover on the public holiday",
		[]allowance.LineInput{{EmployeeID: empTechA, Dates: []generic.Date{generic.NewDate(year, time.October, 1)}}})
	if err != nil {
		return err
	}
	if err := h.walk(ctx, awaiting.ID, []step{
		{rep, allowance.StatusSubmitted},
		{manager, allowance.StatusManagerApproved},
	}); err != nil {
		return err
	}

	// Completed: the whole pipeline, attendance certified on the way.
	done, err := h.newClaim(ctx, rep, "January outage recovery",
		"Restoring feeder lines after the New Year outage",
		[]allowance.LineInput{{EmployeeID: empTechB, Dates: append(firstWeekend(year, time.January), generic.NewDate(year, time.January, 1))}})
	if err != nil {
		return err
	}
	if err := h.walk(ctx, done.ID, []step{
		{rep, allowance.StatusSubmitted},
		{manager, allowance.StatusManagerApproved},
	}); err != nil {
		return err
	}
	lines, err := h.Requests.ListLines(ctx, rep, &done.ID)
	if err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := h.Requests.CertifyAttendance(ctx, rep, l.ID, string(allowance.AttendancePresent)); err != nil {
			return err
		}
	}
	return h.walk(ctx, done.ID, []step{
		{manager, allowance.StatusWorkDone},
		{hr, allowance.StatusHRApproval},
	})
}

type step struct {
	actor  allowance.Principal
	status allowance.Status
}

func (h *Handler) walk(ctx context.Context, requestID int64, steps []step) error {
	for _, s := range steps {
		if _, err := h.Requests.TransitionStatus(ctx, s.actor, requestID, string(s.status)); err != nil {
			return err
		}
	}
	return nil
}
