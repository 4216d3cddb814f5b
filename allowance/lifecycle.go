/*
lifecycle.go - Claim status state machine

PURPOSE:
  The single authority on whether a claim may move from one status to
  another. Every rule about who may move a claim, and when, lives in the
  transition table below. Handlers and services never compare roles or
  statuses themselves.

TRANSITION TABLE:
  department_rep: draft -> submitted
  line_manager:   submitted -> manager_approved
                  manager_approved -> work_done
  hr:             work_done -> hr_approval (then hr_approval -> completed)

  rejected is a canonical status with no entry in the table.

FAILURES:
  - Target outside the canonical list: validation error (400)
  - Pair not in the table for the role: InvalidTransition (403)

SEE ALSO:
  - service.go: TransitionStatus persists the path and fires hooks
  - notify.go:  Hooks keyed to the resulting statuses
*/
package allowance

import (
	"github.com/sarahuu/EGBIN-SSP/generic"
)

type edge struct {
	from Status
	to   Status
}

// Lifecycle evaluates status transitions against a role table.
type Lifecycle struct {
	table map[Role]map[edge]bool
	// follow lists statuses entered automatically after another one.
	follow map[Status]Status
}

// NewLifecycle returns the claim approval pipeline.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		table: map[Role]map[edge]bool{
			RoleDeptRep: {
				{StatusDraft, StatusSubmitted}: true,
			},
			RoleLineManager: {
				{StatusSubmitted, StatusManagerApproved}: true,
				{StatusManagerApproved, StatusWorkDone}:  true,
			},
			RoleHR: {
				{StatusWorkDone, StatusHRApproval}: true,
			},
		},
		follow: map[Status]Status{
			StatusHRApproval: StatusCompleted,
		},
	}
}

// Allowed reports whether role may move a claim from current to target.
func (lc *Lifecycle) Allowed(role Role, current, target Status) bool {
	return lc.table[role][edge{current, target}]
}

// Transition validates the move and returns every status entered, in order.
// The last element is the claim's new status.
func (lc *Lifecycle) Transition(role Role, current, target Status) ([]Status, error) {
	if !target.Valid() {
		return nil, generic.ValidationError("%q is not a valid status", target)
	}
	if !lc.Allowed(role, current, target) {
		return nil, generic.InvalidTransitionError(
			"%s cannot move a request from %s to %s", roleLabel(role), current, target)
	}

	path := []Status{target}
	for next, ok := lc.follow[target]; ok; next, ok = lc.follow[next] {
		path = append(path, next)
	}
	return path, nil
}

// Targets lists the statuses role may move a claim to from current.
func (lc *Lifecycle) Targets(role Role, current Status) []Status {
	var out []Status
	for _, s := range Statuses {
		if lc.Allowed(role, current, s) {
			out = append(out, s)
		}
	}
	return out
}

func roleLabel(r Role) string {
	switch r {
	case RoleDeptRep:
		return "a department representative"
	case RoleLineManager:
		return "a line manager"
	case RoleHR:
		return "HR"
	case RoleEmployee:
		return "an employee"
	}
	return "an unknown role"
}
