// Package memory provides an in-memory allowance.Store for tests and
// development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.Mutex
	st *state
}

type state struct {
	requests    map[int64]allowance.Request
	lines       map[int64]allowance.Line
	days        map[int64]allowance.CalendarDay
	departments map[int64]allowance.Department
	employees   map[int64]allowance.Employee
	sequences   map[int]int
	lastID      int64
}

func newState() *state {
	return &state{
		requests:    make(map[int64]allowance.Request),
		lines:       make(map[int64]allowance.Line),
		days:        make(map[int64]allowance.CalendarDay),
		departments: make(map[int64]allowance.Department),
		employees:   make(map[int64]allowance.Employee),
		sequences:   make(map[int]int),
	}
}

func (s *state) nextID() int64 {
	s.lastID++
	return s.lastID
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = cloneLine(v)
	}
	for k, v := range s.days {
		c.days[k] = v
	}
	for k, v := range s.departments {
		c.departments[k] = v
	}
	for k, v := range s.employees {
		c.employees[k] = v
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	c.lastID = s.lastID
	return c
}

func cloneLine(l allowance.Line) allowance.Line {
	l.Dates = append([]generic.Date(nil), l.Dates...)
	return l
}

func NewMemory() *Memory {
	return &Memory{st: newState()}
}

// view binds repositories to the store. Inside WithTx the lock is already
// held, so the view must not take it again.
type view struct {
	m    *Memory
	inTx bool
}

func (v view) do(fn func(st *state) error) error {
	if !v.inTx {
		v.m.mu.Lock()
		defer v.m.mu.Unlock()
	}
	return fn(v.m.st)
}

func (m *Memory) Requests() allowance.RequestRepo { return requestRepo{view{m: m}} }
func (m *Memory) Lines() allowance.LineRepo { return lineRepo{view{m: m}} }
func (m *Memory) Calendar() allowance.CalendarRepo { return calendarRepo{view{m: m}} }
func (m *Memory) Directory() allowance.Directory { return directory{view{m: m}} }

// WithTx runs fn with the store locked and restores the previous state if
// fn fails.
func (m *Memory) WithTx(ctx context.Context, fn func(allowance.Repos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(txRepos{view{m: m, inTx: true}}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

type txRepos struct{ v view }

func (t txRepos) Requests() allowance.RequestRepo { return requestRepo{t.v} }
func (t txRepos) Lines() allowance.LineRepo { return lineRepo{t.v} }
func (t txRepos) Calendar() allowance.CalendarRepo { return calendarRepo{t.v} }
func (t txRepos) Directory() allowance.Directory { return directory{t.v} }

// =============================================================================
// REQUESTS
// =============================================================================

type requestRepo struct{ v view }

func (r requestRepo) NextSequence(_ context.Context, year int) (int, error) {
	var seq int
	err := r.v.do(func(st *state) error {
		st.sequences[year]++
		seq = st.sequences[year]
		return nil
	})
	return seq, err
}

func (r requestRepo) Create(_ context.Context, req *allowance.Request) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.requests {
			if existing.RequestID == req.RequestID {
				return generic.ConflictError("request number %s is already in use", req.RequestID)
			}
		}
		req.ID = st.nextID()
		st.requests[req.ID] = *req
		return nil
	})
}

func (r requestRepo) Get(_ context.Context, id int64) (*allowance.Request, error) {
	var out *allowance.Request
	err := r.v.do(func(st *state) error {
		req, ok := st.requests[id]
		if !ok {
			return generic.NotFoundError("request %d not found", id)
		}
		out = &req
		return nil
	})
	return out, err
}

func visible(req allowance.Request, departmentID, draftsOf *int64) bool {
	if departmentID != nil && req.DepartmentID != *departmentID {
		return false
	}
	if req.Status == allowance.StatusDraft {
		return draftsOf != nil && req.DepartmentRepID == *draftsOf
	}
	return true
}

func (r requestRepo) List(_ context.Context, f allowance.RequestFilter) ([]allowance.Request, error) {
	out := []allowance.Request{}
	err := r.v.do(func(st *state) error {
		for _, req := range st.requests {
			if visible(req, f.DepartmentID, f.DraftsOf) {
				out = append(out, req)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r requestRepo) Update(_ context.Context, req *allowance.Request) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.requests[req.ID]; !ok {
			return generic.NotFoundError("request %d not found", req.ID)
		}
		st.requests[req.ID] = *req
		return nil
	})
}

func (r requestRepo) Delete(_ context.Context, id int64) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.requests[id]; !ok {
			return generic.NotFoundError("request %d not found", id)
		}
		delete(st.requests, id)
		for lid, l := range st.lines {
			if l.RequestID == id {
				delete(st.lines, lid)
			}
		}
		return nil
	})
}

// =============================================================================
// LINES
// =============================================================================

type lineRepo struct{ v view }

func checkBookings(st *state, l *allowance.Line) error {
	for _, other := range st.lines {
		if other.ID == l.ID || other.EmployeeID != l.EmployeeID {
			continue
		}
		for _, d := range other.Dates {
			if containsDate(l.Dates, d) {
				return generic.ConflictError("employee %d is already booked for %s", l.EmployeeID, d)
			}
		}
	}
	return nil
}

func (r lineRepo) Create(_ context.Context, l *allowance.Line) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.requests[l.RequestID]; !ok {
			return generic.NotFoundError("request %d not found", l.RequestID)
		}
		if err := checkBookings(st, l); err != nil {
			return err
		}
		l.ID = st.nextID()
		st.lines[l.ID] = cloneLine(*l)
		return nil
	})
}

func (r lineRepo) Get(_ context.Context, id int64) (*allowance.Line, error) {
	var out *allowance.Line
	err := r.v.do(func(st *state) error {
		l, ok := st.lines[id]
		if !ok {
			return generic.NotFoundError("line %d not found", id)
		}
		c := cloneLine(l)
		out = &c
		return nil
	})
	return out, err
}

func (r lineRepo) List(_ context.Context, f allowance.LineFilter) ([]allowance.Line, error) {
	out := []allowance.Line{}
	err := r.v.do(func(st *state) error {
		for _, l := range st.lines {
			if f.RequestID != nil && l.RequestID != *f.RequestID {
				continue
			}
			if f.EmployeeID != nil && l.EmployeeID != *f.EmployeeID {
				continue
			}
			if f.RequestID == nil && !visible(st.requests[l.RequestID], f.DepartmentID, f.DraftsOf) {
				continue
			}
			out = append(out, cloneLine(l))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r lineRepo) Update(_ context.Context, l *allowance.Line) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.lines[l.ID]; !ok {
			return generic.NotFoundError("line %d not found", l.ID)
		}
		if err := checkBookings(st, l); err != nil {
			return err
		}
		st.lines[l.ID] = cloneLine(*l)
		return nil
	})
}

func (r lineRepo) Delete(_ context.Context, id int64) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.lines[id]; !ok {
			return generic.NotFoundError("line %d not found", id)
		}
		delete(st.lines, id)
		return nil
	})
}

func (r lineRepo) Bookings(_ context.Context, employeeID int64, dates []generic.Date, excludeLineID int64) ([]allowance.Booking, error) {
	var out []allowance.Booking
	err := r.v.do(func(st *state) error {
		for _, l := range st.lines {
			if l.EmployeeID != employeeID || l.ID == excludeLineID {
				continue
			}
			for _, d := range l.Dates {
				if containsDate(dates, d) {
					out = append(out, allowance.Booking{EmployeeID: employeeID, Date: d, LineID: l.ID, RequestID: l.RequestID})
				}
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, err
}

func (r lineRepo) OnDate(_ context.Context, date generic.Date) ([]allowance.Line, error) {
	var out []allowance.Line
	err := r.v.do(func(st *state) error {
		for _, l := range st.lines {
			if containsDate(l.Dates, date) {
				out = append(out, cloneLine(l))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func containsDate(dates []generic.Date, d generic.Date) bool {
	for _, x := range dates {
		if x.Equal(d) {
			return true
		}
	}
	return false
}

// =============================================================================
// CALENDAR
// =============================================================================

type calendarRepo struct{ v view }

func (r calendarRepo) Create(_ context.Context, d *allowance.CalendarDay) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.days {
			if existing.Date.Equal(d.Date) {
				return generic.ConflictError("a calendar day already exists for %s", d.Date)
			}
		}
		d.ID = st.nextID()
		st.days[d.ID] = *d
		return nil
	})
}

func (r calendarRepo) Get(_ context.Context, id int64) (*allowance.CalendarDay, error) {
	var out *allowance.CalendarDay
	err := r.v.do(func(st *state) error {
		d, ok := st.days[id]
		if !ok {
			return generic.NotFoundError("calendar day %d not found", id)
		}
		out = &d
		return nil
	})
	return out, err
}

func (r calendarRepo) Year(_ context.Context, year int) ([]allowance.CalendarDay, error) {
	out := []allowance.CalendarDay{}
	err := r.v.do(func(st *state) error {
		for _, d := range st.days {
			if year == 0 || d.Date.Year() == year {
				out = append(out, d)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, err
}

func (r calendarRepo) Resolve(_ context.Context, dates []generic.Date) (map[generic.Date]allowance.CalendarDay, error) {
	out := make(map[generic.Date]allowance.CalendarDay)
	err := r.v.do(func(st *state) error {
		for _, d := range st.days {
			if containsDate(dates, d.Date) {
				out[d.Date] = d
			}
		}
		return nil
	})
	return out, err
}

func (r calendarRepo) References(_ context.Context, id int64) (int, error) {
	n := 0
	err := r.v.do(func(st *state) error {
		d, ok := st.days[id]
		if !ok {
			return generic.NotFoundError("calendar day %d not found", id)
		}
		for _, l := range st.lines {
			if containsDate(l.Dates, d.Date) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r calendarRepo) Delete(_ context.Context, id int64) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.days[id]; !ok {
			return generic.NotFoundError("calendar day %d not found", id)
		}
		delete(st.days, id)
		return nil
	})
}

// =============================================================================
// DIRECTORY
// =============================================================================

type directory struct{ v view }

func (r directory) Department(_ context.Context, id int64) (*allowance.Department, error) {
	var out *allowance.Department
	err := r.v.do(func(st *state) error {
		d, ok := st.departments[id]
		if !ok {
			return generic.NotFoundError("department %d not found", id)
		}
		out = &d
		return nil
	})
	return out, err
}

func (r directory) Departments(_ context.Context) ([]allowance.Department, error) {
	out := []allowance.Department{}
	err := r.v.do(func(st *state) error {
		for _, d := range st.departments {
			out = append(out, d)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r directory) SaveDepartment(_ context.Context, d *allowance.Department) error {
	return r.v.do(func(st *state) error {
		if d.ID == 0 {
			d.ID = st.nextID()
		} else if d.ID > st.lastID {
			st.lastID = d.ID
		}
		st.departments[d.ID] = *d
		return nil
	})
}

func (r directory) Employee(_ context.Context, id int64) (*allowance.Employee, error) {
	var out *allowance.Employee
	err := r.v.do(func(st *state) error {
		e, ok := st.employees[id]
		if !ok {
			return generic.NotFoundError("employee %d not found", id)
		}
		out = &e
		return nil
	})
	return out, err
}

func (r directory) Employees(_ context.Context, departmentID int64) ([]allowance.Employee, error) {
	out := []allowance.Employee{}
	err := r.v.do(func(st *state) error {
		for _, e := range st.employees {
			if departmentID == 0 || e.DepartmentID == departmentID {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r directory) SaveEmployee(_ context.Context, e *allowance.Employee) error {
	if _, err := allowance.ParseRole(string(e.Role)); err != nil {
		return err
	}
	return r.v.do(func(st *state) error {
		if _, ok := st.departments[e.DepartmentID]; !ok {
			return generic.NotFoundError("department %d not found", e.DepartmentID)
		}
		if e.ID == 0 {
			e.ID = st.nextID()
		} else if e.ID > st.lastID {
			st.lastID = e.ID
		}
		st.employees[e.ID] = *e
		return nil
	})
}
