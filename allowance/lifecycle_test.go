package allowance_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// TRANSITION TABLE TESTS
// =============================================================================

func TestLifecycle_TableIsExhaustive(t *testing.T) {
	// GIVEN: The only moves the pipeline allows
	type move struct {
		role     allowance.Role
		from, to allowance.Status
	}
	allowed := map[move]bool{
		{allowance.RoleDeptRep, allowance.StatusDraft, allowance.StatusSubmitted}:               true,
		{allowance.RoleLineManager, allowance.StatusSubmitted, allowance.StatusManagerApproved}: true,
		{allowance.RoleLineManager, allowance.StatusManagerApproved, allowance.StatusWorkDone}:  true,
		{allowance.RoleHR, allowance.StatusWorkDone, allowance.StatusHRApproval}:                true,
	}
	roles := []allowance.Role{allowance.RoleDeptRep, allowance.RoleLineManager, allowance.RoleHR, allowance.RoleEmployee}
	lc := allowance.NewLifecycle()

	// WHEN/THEN: Every role x from x to combination matches the table
	for _, role := range roles {
		for _, from := range allowance.Statuses {
			for _, to := range allowance.Statuses {
				want := allowed[move{role, from, to}]
				assert.Equal(t, want, lc.Allowed(role, from, to), "%s: %s -> %s", role, from, to)

				_, err := lc.Transition(role, from, to)
				if want {
					assert.NoError(t, err, "%s: %s -> %s", role, from, to)
				} else {
					assert.True(t, errors.Is(err, generic.ErrInvalidTransition), "%s: %s -> %s", role, from, to)
				}
			}
		}
	}
}

func TestLifecycle_HRApprovalCompletes(t *testing.T) {
	path, err := allowance.NewLifecycle().Transition(allowance.RoleHR, allowance.StatusWorkDone, allowance.StatusHRApproval)

	require.NoError(t, err)
	assert.Equal(t, []allowance.Status{allowance.StatusHRApproval, allowance.StatusCompleted}, path)
}

func TestLifecycle_UnknownTarget(t *testing.T) {
	_, err := allowance.NewLifecycle().Transition(allowance.RoleDeptRep, allowance.StatusDraft, allowance.Status("archived"))

	assert.True(t, errors.Is(err, generic.ErrValidation))
	assert.Equal(t, []string{`"archived" is not a valid status`}, generic.Messages(err))
}

func TestLifecycle_RejectedHasNoTrigger(t *testing.T) {
	lc := allowance.NewLifecycle()
	for _, role := range []allowance.Role{allowance.RoleDeptRep, allowance.RoleLineManager, allowance.RoleHR} {
		for _, from := range allowance.Statuses {
			assert.False(t, lc.Allowed(role, from, allowance.StatusRejected))
		}
	}
}

func TestLifecycle_Targets(t *testing.T) {
	lc := allowance.NewLifecycle()

	assert.Equal(t, []allowance.Status{allowance.StatusSubmitted}, lc.Targets(allowance.RoleDeptRep, allowance.StatusDraft))
	assert.Equal(t, []allowance.Status{allowance.StatusWorkDone}, lc.Targets(allowance.RoleLineManager, allowance.StatusManagerApproved))
	assert.Empty(t, lc.Targets(allowance.RoleEmployee, allowance.StatusSubmitted))
	assert.Empty(t, lc.Targets(allowance.RoleHR, allowance.StatusCompleted))
}
