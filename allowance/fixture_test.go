package allowance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/generic"
	"github.com/sarahuu/EGBIN-SSP/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var (
	sat    = generic.MustParseDate("2025-03-01")
	sun    = generic.MustParseDate("2025-03-02")
	tue    = generic.MustParseDate("2025-03-04") // not registered
	sat2   = generic.MustParseDate("2025-03-08")
	mayDay = generic.MustParseDate("2025-05-01")
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []allowance.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, e allowance.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *recordingNotifier) kinds() []allowance.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]allowance.EventKind, len(n.events))
	for i, e := range n.events {
		out[i] = e.Kind
	}
	return out
}

type fixture struct {
	ctx      context.Context
	store    allowance.Store
	requests *allowance.RequestService
	calendar *allowance.CalendarService
	notifier *recordingNotifier

	rep, manager, hr, tech, techB, finRep allowance.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, memory.NewMemory())
}

// newFixtureOn seeds the Operations/Finance directory and the March 2025
// calendar into store.
func newFixtureOn(t *testing.T, store allowance.Store) *fixture {
	t.Helper()
	ctx := context.Background()
	logger, _ := logtest.NewNullLogger()
	now := func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }

	allocator := allowance.NewAllocator(generic.DefaultRates())
	notifier := &recordingNotifier{}
	requests := allowance.NewRequestService(store, allowance.NewBulkValidator(allocator, allowance.RejectUnknownDates), notifier, logger)
	requests.Now = now
	calendar := allowance.NewCalendarService(store, allocator, logger)
	calendar.Now = now

	dir := store.Directory()
	ops := &allowance.Department{Name: "Operations"}
	fin := &allowance.Department{Name: "Finance"}
	require.NoError(t, dir.SaveDepartment(ctx, ops))
	require.NoError(t, dir.SaveDepartment(ctx, fin))

	employee := func(name string, dept int64, role allowance.Role) allowance.Principal {
		e := &allowance.Employee{Name: name, DepartmentID: dept, Role: role}
		require.NoError(t, dir.SaveEmployee(ctx, e))
		return allowance.PrincipalFor(*e)
	}

	f := &fixture{
		ctx:      ctx,
		store:    store,
		requests: requests,
		calendar: calendar,
		notifier: notifier,
		rep:      employee("Amaka Obi", ops.ID, allowance.RoleDeptRep),
		manager:  employee("Tunde Bakare", ops.ID, allowance.RoleLineManager),
		hr:       employee("Ngozi Eze", fin.ID, allowance.RoleHR),
		tech:     employee("Emeka Nwosu", ops.ID, allowance.RoleEmployee),
		techB:    employee("Funmi Adeyemi", ops.ID, allowance.RoleEmployee),
		finRep:   employee("Bayo Lawal", fin.ID, allowance.RoleDeptRep),
	}

	_, err := calendar.ImportDays(ctx, []allowance.CalendarDay{
		{Date: sat, Category: allowance.CategoryWeekend},
		{Date: sun, Category: allowance.CategoryWeekend},
		{Date: sat2, Category: allowance.CategoryWeekend},
		{Date: mayDay, Category: allowance.CategoryPublicHoliday, Name: "Workers' Day"},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) draft(t *testing.T) *allowance.Request {
	t.Helper()
	req, err := f.requests.CreateRequest(f.ctx, f.rep, allowance.RequestInput{
		Title:       "Plant maintenance",
		Description: "Turbine inspection",
	})
	require.NoError(t, err)
	return req
}

func (f *fixture) line(t *testing.T, requestID int64, p allowance.Principal, dates ...generic.Date) allowance.Line {
	t.Helper()
	lines, err := f.requests.CreateLines(f.ctx, f.rep, requestID,
		[]allowance.LineInput{{EmployeeID: p.UserID, Dates: dates}}, false)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	return lines[0]
}

func (f *fixture) move(t *testing.T, requestID int64, p allowance.Principal, target allowance.Status) *allowance.Request {
	t.Helper()
	req, err := f.requests.TransitionStatus(f.ctx, p, requestID, string(target))
	require.NoError(t, err)
	return req
}
