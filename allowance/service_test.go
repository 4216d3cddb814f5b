package allowance_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// REQUEST TESTS
// =============================================================================

func TestCreateRequest_AssignsYearlyNumbers(t *testing.T) {
	f := newFixture(t)

	first := f.draft(t)
	second := f.draft(t)

	assert.Equal(t, "IAR/2025/0001", first.RequestID)
	assert.Equal(t, "IAR/2025/0002", second.RequestID)
	assert.Equal(t, allowance.StatusDraft, first.Status)
	assert.Equal(t, f.rep.DepartmentID, first.DepartmentID)
	assert.Equal(t, f.rep.UserID, first.DepartmentRepID)
	assert.Nil(t, first.LineManagerID)
	assert.Nil(t, first.HRID)
}

func TestCreateRequest_OnlyRepresentatives(t *testing.T) {
	f := newFixture(t)

	for _, p := range []allowance.Principal{f.manager, f.hr, f.tech} {
		_, err := f.requests.CreateRequest(f.ctx, p, allowance.RequestInput{Title: "x", Description: "y"})
		assert.True(t, errors.Is(err, generic.ErrPermission), p.Role)
	}
}

func TestCreateRequest_ReportsEveryFieldProblem(t *testing.T) {
	f := newFixture(t)

	_, err := f.requests.CreateRequest(f.ctx, f.rep, allowance.RequestInput{Title: "  ", Description: ""})

	assert.True(t, errors.Is(err, generic.ErrValidation))
	assert.Equal(t, []string{"title: is required", "description: is required"}, generic.Messages(err))

	_, err = f.requests.CreateRequest(f.ctx, f.rep, allowance.RequestInput{Title: strings.Repeat("a", 101), Description: "y"})
	assert.Equal(t, []string{"title: must be at most 100 characters"}, generic.Messages(err))
}

func TestUpdateRequest_KeepsNumberAndStatus(t *testing.T) {
	f := newFixture(t)
	req := f.draft(t)
	title := "Renamed"

	updated, err := f.requests.UpdateRequest(f.ctx, f.rep, req.ID, allowance.RequestPatch{Title: &title})

	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "Turbine inspection", updated.Description)
	assert.Equal(t, req.RequestID, updated.RequestID)
	assert.Equal(t, allowance.StatusDraft, updated.Status)
}

func TestUpdateRequest_DraftBelongsToCreator(t *testing.T) {
	f := newFixture(t)
	req := f.draft(t)
	title := "Hijacked"

	_, err := f.requests.UpdateRequest(f.ctx, f.manager, req.ID, allowance.RequestPatch{Title: &title})

	assert.True(t, errors.Is(err, generic.ErrPermission))
}

func TestDraftVisibility(t *testing.T) {
	// GIVEN: A draft created by the Operations representative
	f := newFixture(t)
	req := f.draft(t)

	// THEN: Only the creator sees it
	_, err := f.requests.GetRequest(f.ctx, f.rep, req.ID)
	assert.NoError(t, err)
	for _, p := range []allowance.Principal{f.manager, f.hr, f.tech, f.finRep} {
		_, err := f.requests.GetRequest(f.ctx, p, req.ID)
		assert.True(t, errors.Is(err, generic.ErrPermission), p.Name)

		list, err := f.requests.ListRequests(f.ctx, p)
		require.NoError(t, err)
		assert.Empty(t, list, p.Name)
	}

	// WHEN: It is submitted
	f.move(t, req.ID, f.rep, allowance.StatusSubmitted)

	// THEN: The department and HR see it, other departments do not
	for _, p := range []allowance.Principal{f.manager, f.hr, f.tech} {
		list, err := f.requests.ListRequests(f.ctx, p)
		require.NoError(t, err)
		assert.Len(t, list, 1, p.Name)
	}
	_, err = f.requests.GetRequest(f.ctx, f.finRep, req.ID)
	assert.True(t, errors.Is(err, generic.ErrPermission))
}

func TestDeleteRequest_RemovesLines(t *testing.T) {
	// GIVEN: A draft with two lines
	f := newFixture(t)
	req := f.draft(t)
	first := f.line(t, req.ID, f.tech, sat, sun)
	second := f.line(t, req.ID, f.techB, sat)

	// WHEN
	require.NoError(t, f.requests.DeleteRequest(f.ctx, f.rep, req.ID))

	// THEN: Both lines go with the claim
	for _, id := range []int64{first.ID, second.ID} {
		_, err := f.store.Lines().Get(f.ctx, id)
		assert.True(t, generic.IsNotFound(err), "line %d", id)
	}
	_, err := f.store.Requests().Get(f.ctx, req.ID)
	assert.True(t, generic.IsNotFound(err))
	remaining, err := f.requests.ListLines(f.ctx, f.rep, nil)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// The freed dates can be booked again.
	other := f.draft(t)
	f.line(t, other.ID, f.tech, sat, sun)
	f.line(t, other.ID, f.techB, sat)
}

// =============================================================================
// TRANSITION TESTS
// =============================================================================

func TestTransition_FullPipeline(t *testing.T) {
	f := newFixture(t)
	req := f.draft(t)
	f.line(t, req.ID, f.tech, sat, sun)

	submitted := f.move(t, req.ID, f.rep, allowance.StatusSubmitted)
	assert.Equal(t, allowance.StatusSubmitted, submitted.Status)

	approved := f.move(t, req.ID, f.manager, allowance.StatusManagerApproved)
	require.NotNil(t, approved.LineManagerID)
	assert.Equal(t, f.manager.UserID, *approved.LineManagerID)

	f.move(t, req.ID, f.manager, allowance.StatusWorkDone)

	done := f.move(t, req.ID, f.hr, allowance.StatusHRApproval)
	assert.Equal(t, allowance.StatusCompleted, done.Status)
	require.NotNil(t, done.HRID)
	assert.Equal(t, f.hr.UserID, *done.HRID)

	stored, err := f.store.Requests().Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, allowance.StatusCompleted, stored.Status)
	assert.Equal(t, req.RequestID, stored.RequestID)

	assert.Equal(t, []allowance.EventKind{
		allowance.NotifyLineManager,
		allowance.NotifyHR,
		allowance.NotifyCompletion,
	}, f.notifier.kinds())
}

func TestTransition_Rejections(t *testing.T) {
	f := newFixture(t)
	req := f.draft(t)

	tests := []struct {
		name   string
		actor  allowance.Principal
		target string
		want   error
	}{
		{"unknown status", f.rep, "archived", generic.ErrValidation},
		{"skipping ahead", f.rep, "completed", generic.ErrInvalidTransition},
		{"rejected has no trigger", f.rep, "rejected", generic.ErrInvalidTransition},
		{"draft hidden from manager", f.manager, "submitted", generic.ErrPermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.requests.TransitionStatus(f.ctx, tt.actor, req.ID, tt.target)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	stored, err := f.store.Requests().Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, allowance.StatusDraft, stored.Status)
	assert.Empty(t, f.notifier.kinds())
}

func TestTransition_WrongRoleAfterSubmit(t *testing.T) {
	f := newFixture(t)
	req := f.draft(t)
	f.move(t, req.ID, f.rep, allowance.StatusSubmitted)

	_, err := f.requests.TransitionStatus(f.ctx, f.hr, req.ID, "manager_approved")

	assert.True(t, errors.Is(err, generic.ErrInvalidTransition))
	assert.Equal(t, []string{"HR cannot move a request from submitted to manager_approved"}, generic.Messages(err))
}

func TestTransition_NotifierFailureKeepsStatus(t *testing.T) {
	// GIVEN: A notifier that always fails
	f := newFixture(t)
	f.notifier.err = errors.New("mail relay unavailable")
	req := f.draft(t)

	// WHEN
	moved, err := f.requests.TransitionStatus(f.ctx, f.rep, req.ID, "submitted")

	// THEN: The transition stands
	require.NoError(t, err)
	assert.Equal(t, allowance.StatusSubmitted, moved.Status)
	stored, err := f.store.Requests().Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, allowance.StatusSubmitted, stored.Status)
	assert.Equal(t, []allowance.EventKind{allowance.NotifyLineManager}, f.notifier.kinds())
}

// =============================================================================
// LINE TESTS
// =============================================================================

func TestCreateLines_DerivesFields(t *testing.T) {
	f := newFixture(t)
	req := f.draft(t)

	line := f.line(t, req.ID, f.tech, mayDay, sat, sun, sat)

	assert.Equal(t, []generic.Date{sat, sun, mayDay}, line.Dates)
	assert.Equal(t, 2, line.WeekendCount)
	assert.Equal(t, 1, line.HolidayCount)
	assert.Equal(t, 3, line.DayCount)
	assert.Equal(t, "22000.00", line.Amount.String())
	assert.Equal(t, "Turbine inspection", line.JobDescription)
	assert.Equal(t, allowance.ResponsePending, line.Response)
	assert.Equal(t, allowance.AttendancePending, line.AttendanceStatus)
}

func TestCreateLines_JobDescriptionIsACopy(t *testing.T) {
	f := newFixture(t)
	req := f.draft(t)
	line := f.line(t, req.ID, f.tech, sat)
	desc := "Changed later"

	_, err := f.requests.UpdateRequest(f.ctx, f.rep, req.ID, allowance.RequestPatch{Description: &desc})
	require.NoError(t, err)

	stored, err := f.requests.GetLine(f.ctx, f.rep, line.ID)
	require.NoError(t, err)
	assert.Equal(t, "Turbine inspection", stored.JobDescription)
}

func TestCreateLines_BatchReportsEveryProblem(t *testing.T) {
	// GIVEN: Emeka already booked on the first Saturday
	f := newFixture(t)
	req := f.draft(t)
	f.line(t, req.ID, f.tech, sat)

	// WHEN: A batch of three lines with a conflict and an unknown date
	_, err := f.requests.CreateLines(f.ctx, f.rep, req.ID, []allowance.LineInput{
		{EmployeeID: f.tech.UserID, Dates: []generic.Date{sat}},
		{EmployeeID: f.techB.UserID, Dates: []generic.Date{tue}},
		{EmployeeID: f.techB.UserID, Dates: []generic.Date{sat2}},
	}, true)

	// THEN: Both problems are reported and nothing is stored
	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrValidation))
	assert.True(t, errors.Is(err, generic.ErrConflict))
	assert.Equal(t, []string{
		"Some of the provided dates do not correspond to existing days: 2025-03-04",
		"You cannot book Emeka Nwosu for 2025-03-01 as they have already been booked for that day",
	}, generic.Messages(err))

	lines, err := f.requests.ListLines(f.ctx, f.rep, &req.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestCreateLines_DuplicateWithinBatch(t *testing.T) {
	f := newFixture(t)
	req := f.draft(t)

	_, err := f.requests.CreateLines(f.ctx, f.rep, req.ID, []allowance.LineInput{
		{EmployeeID: f.tech.UserID, Dates: []generic.Date{sat}},
		{EmployeeID: f.tech.UserID, Dates: []generic.Date{sat, sun}},
	}, true)

	assert.True(t, errors.Is(err, generic.ErrConflict))
	assert.Equal(t, []string{"Emeka Nwosu is booked more than once for 2025-03-01 in this submission"}, generic.Messages(err))
}

func TestCreateLines_ConflictAcrossRequests(t *testing.T) {
	f := newFixture(t)
	first := f.draft(t)
	f.line(t, first.ID, f.tech, sat)
	second := f.draft(t)

	_, err := f.requests.CreateLines(f.ctx, f.rep, second.ID,
		[]allowance.LineInput{{EmployeeID: f.tech.UserID, Dates: []generic.Date{sun, sat}}}, false)

	assert.True(t, errors.Is(err, generic.ErrConflict))
}

func TestCreateLines_EmployeeChecks(t *testing.T) {
	f := newFixture(t)
	req := f.draft(t)

	tests := []struct {
		name  string
		input allowance.LineInput
		want  string
	}{
		{"unknown employee", allowance.LineInput{EmployeeID: 999, Dates: []generic.Date{sat}},
			"line 1: employee 999 does not exist in this department"},
		{"other department", allowance.LineInput{EmployeeID: f.finRep.UserID, Dates: []generic.Date{sat}},
			fmt.Sprintf("line 1: employee %d does not exist in this department", f.finRep.UserID)},
		{"no dates", allowance.LineInput{EmployeeID: f.tech.UserID},
			"line 1: at least one date is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.requests.CreateLines(f.ctx, f.rep, req.ID, []allowance.LineInput{tt.input}, false)
			assert.True(t, errors.Is(err, generic.ErrValidation))
			assert.Equal(t, []string{tt.want}, generic.Messages(err))
		})
	}
}

func TestCreateLines_OrdinaryUnknownDates(t *testing.T) {
	f := newFixture(t)
	f.requests.Validator = allowance.NewBulkValidator(allowance.NewAllocator(generic.DefaultRates()), allowance.OrdinaryUnknownDates)
	req := f.draft(t)

	line := f.line(t, req.ID, f.tech, tue, sat)

	assert.Equal(t, 1, line.WeekendCount)
	assert.Equal(t, 2, line.DayCount)
	assert.Equal(t, "3500.00", line.Amount.String())
}

func TestCreateLines_FrozenOnceCompleted(t *testing.T) {
	f := newFixture(t)
	req := f.draft(t)
	f.move(t, req.ID, f.rep, allowance.StatusSubmitted)
	f.move(t, req.ID, f.manager, allowance.StatusManagerApproved)
	f.move(t, req.ID, f.manager, allowance.StatusWorkDone)
	f.move(t, req.ID, f.hr, allowance.StatusHRApproval)

	_, err := f.requests.CreateLines(f.ctx, f.rep, req.ID,
		[]allowance.LineInput{{EmployeeID: f.tech.UserID, Dates: []generic.Date{sat}}}, false)

	assert.True(t, errors.Is(err, generic.ErrPermission))
}

func TestUpdateLine_RederivesAndResets(t *testing.T) {
	// GIVEN: A submitted claim whose line Emeka has accepted
	f := newFixture(t)
	req := f.draft(t)
	line := f.line(t, req.ID, f.tech, sat)
	f.move(t, req.ID, f.rep, allowance.StatusSubmitted)
	_, err := f.requests.RespondToLine(f.ctx, f.tech, line.ID, "accepted")
	require.NoError(t, err)

	// WHEN: Dates grow, keeping the line's own date
	updated, err := f.requests.UpdateLine(f.ctx, f.rep, line.ID, allowance.LinePatch{Dates: []generic.Date{sat, mayDay}})

	// THEN: Amount re-derived, response kept
	require.NoError(t, err)
	assert.Equal(t, "18500.00", updated.Amount.String())
	assert.Equal(t, allowance.ResponseAccepted, updated.Response)

	// WHEN: The line moves to another employee
	other := f.techB.UserID
	moved, err := f.requests.UpdateLine(f.ctx, f.rep, line.ID, allowance.LinePatch{EmployeeID: &other})

	// THEN: Response starts over
	require.NoError(t, err)
	assert.Equal(t, other, moved.EmployeeID)
	assert.Equal(t, allowance.ResponsePending, moved.Response)
	assert.Nil(t, moved.ResponseTime)
}

func TestDeleteLine(t *testing.T) {
	f := newFixture(t)
	req := f.draft(t)
	line := f.line(t, req.ID, f.tech, sat)

	err := f.requests.DeleteLine(f.ctx, f.tech, line.ID)
	assert.True(t, errors.Is(err, generic.ErrPermission))

	require.NoError(t, f.requests.DeleteLine(f.ctx, f.rep, line.ID))
	_, err = f.requests.GetLine(f.ctx, f.rep, line.ID)
	assert.True(t, generic.IsNotFound(err))
}

func TestRespondToLine(t *testing.T) {
	f := newFixture(t)
	req := f.draft(t)
	line := f.line(t, req.ID, f.tech, sat)

	// Closed while the claim is a draft.
	_, err := f.requests.RespondToLine(f.ctx, f.tech, line.ID, "accepted")
	assert.True(t, errors.Is(err, generic.ErrPermission))

	f.move(t, req.ID, f.rep, allowance.StatusSubmitted)

	_, err = f.requests.RespondToLine(f.ctx, f.techB, line.ID, "accepted")
	assert.True(t, errors.Is(err, generic.ErrPermission))

	_, err = f.requests.RespondToLine(f.ctx, f.tech, line.ID, "maybe")
	assert.True(t, errors.Is(err, generic.ErrValidation))

	resp, err := f.requests.RespondToLine(f.ctx, f.tech, line.ID, "rejected")
	require.NoError(t, err)
	assert.Equal(t, allowance.ResponseRejected, resp.Response)
	require.NotNil(t, resp.ResponseTime)
	assert.Equal(t, 2025, resp.ResponseTime.Year())
}

func TestCertifyAttendance(t *testing.T) {
	f := newFixture(t)
	req := f.draft(t)
	line := f.line(t, req.ID, f.tech, sat)
	f.move(t, req.ID, f.rep, allowance.StatusSubmitted)

	_, err := f.requests.CertifyAttendance(f.ctx, f.rep, line.ID, "present")
	assert.True(t, errors.Is(err, generic.ErrPermission), "not yet approved")

	f.move(t, req.ID, f.manager, allowance.StatusManagerApproved)

	_, err = f.requests.CertifyAttendance(f.ctx, f.manager, line.ID, "present")
	assert.True(t, errors.Is(err, generic.ErrPermission), "representatives only")

	_, err = f.requests.CertifyAttendance(f.ctx, f.rep, line.ID, "late")
	assert.True(t, errors.Is(err, generic.ErrValidation))

	certified, err := f.requests.CertifyAttendance(f.ctx, f.rep, line.ID, "absent")
	require.NoError(t, err)
	assert.Equal(t, allowance.AttendanceAbsent, certified.AttendanceStatus)
}

func TestListLines_Scope(t *testing.T) {
	f := newFixture(t)
	req := f.draft(t)
	f.line(t, req.ID, f.tech, sat)

	mine, err := f.requests.ListLines(f.ctx, f.rep, nil)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	hidden, err := f.requests.ListLines(f.ctx, f.hr, nil)
	require.NoError(t, err)
	assert.Empty(t, hidden, "drafts stay with their creator")

	f.move(t, req.ID, f.rep, allowance.StatusSubmitted)

	visible, err := f.requests.ListLines(f.ctx, f.hr, nil)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	_, err = f.requests.ListLines(f.ctx, f.finRep, &req.ID)
	assert.True(t, errors.Is(err, generic.ErrPermission))
}
