package allowance

import (
	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// AUTHORIZATION MATRIX
// =============================================================================

// Operation names an action checked against the role table.
type Operation string

const (
	OpCreateRequest     Operation = "create_request"
	OpModifyRequest     Operation = "modify_request"
	OpModifyLines       Operation = "modify_lines"
	OpRespondToLine     Operation = "respond_to_line"
	OpCertifyAttendance Operation = "certify_attendance"
	OpManageCalendar    Operation = "manage_calendar"
)

var operationRoles = map[Operation][]Role{
	OpCreateRequest:     {RoleDeptRep},
	OpModifyRequest:     {RoleDeptRep, RoleLineManager, RoleHR},
	OpModifyLines:       {RoleDeptRep, RoleLineManager, RoleHR},
	OpRespondToLine:     {RoleDeptRep, RoleLineManager, RoleHR, RoleEmployee},
	OpCertifyAttendance: {RoleDeptRep},
	OpManageCalendar:    {RoleHR},
}

// Permitted reports whether role appears in the table for op.
func Permitted(op Operation, role Role) bool {
	for _, r := range operationRoles[op] {
		if r == role {
			return true
		}
	}
	return false
}

func requireRole(op Operation, p Principal) error {
	if !p.Role.Valid() {
		return generic.PermissionError("unknown role %q", p.Role)
	}
	if !Permitted(op, p.Role) {
		return generic.PermissionError("You do not have permission to perform this action.")
	}
	return nil
}

// =============================================================================
// VISIBILITY
// =============================================================================

// ownsDraft reports whether p is the representative who created the draft.
func ownsDraft(p Principal, r *Request) bool {
	return p.Role == RoleDeptRep && p.UserID == r.DepartmentRepID
}

func inDepartment(p Principal, departmentID int64) bool {
	return p.Role == RoleHR || p.DepartmentID == departmentID
}

// CanView decides whether p may read r and its lines. Drafts are visible
// only to their creator; HR reads every department.
func CanView(p Principal, r *Request) error {
	if !p.Role.Valid() {
		return generic.PermissionError("unknown role %q", p.Role)
	}
	if r.Status == StatusDraft {
		if !ownsDraft(p, r) {
			return generic.PermissionError("You do not have permission to view this request.")
		}
		return nil
	}
	if !inDepartment(p, r.DepartmentID) {
		return generic.PermissionError("You do not have permission to view requests of another department.")
	}
	return nil
}

// ListScope returns the filter matching what p may list.
func ListScope(p Principal) (RequestFilter, error) {
	switch p.Role {
	case RoleHR:
		return RequestFilter{}, nil
	case RoleDeptRep:
		dept, self := p.DepartmentID, p.UserID
		return RequestFilter{DepartmentID: &dept, DraftsOf: &self}, nil
	case RoleLineManager, RoleEmployee:
		dept := p.DepartmentID
		return RequestFilter{DepartmentID: &dept}, nil
	}
	return RequestFilter{}, generic.PermissionError("unknown role %q", p.Role)
}

// LineScope is ListScope applied to lines.
func LineScope(p Principal) (LineFilter, error) {
	rf, err := ListScope(p)
	if err != nil {
		return LineFilter{}, err
	}
	return LineFilter{DepartmentID: rf.DepartmentID, DraftsOf: rf.DraftsOf}, nil
}

// =============================================================================
// MUTATION
// =============================================================================

// CanCreateRequest allows department representatives only.
func CanCreateRequest(p Principal) error {
	return requireRole(OpCreateRequest, p)
}

// CanModify decides whether p may update or delete r. A draft belongs to
// its creator; once submitted, department ownership plus a non-employee
// role is required, and HR acts on any department.
func CanModify(p Principal, r *Request) error {
	if err := requireRole(OpModifyRequest, p); err != nil {
		return err
	}
	if r.Status == StatusDraft {
		if !ownsDraft(p, r) {
			return generic.PermissionError("Only the department representative may change a draft request.")
		}
		return nil
	}
	if !inDepartment(p, r.DepartmentID) {
		return generic.PermissionError("You do not have permission to change requests of another department.")
	}
	return nil
}

// CanModifyLines applies CanModify to the lines of r. Lines of a closed
// claim are frozen.
func CanModifyLines(p Principal, r *Request) error {
	if err := requireRole(OpModifyLines, p); err != nil {
		return err
	}
	if err := CanModify(p, r); err != nil {
		return err
	}
	if r.Status.IsTerminal() {
		return generic.PermissionError("Lines of a %s request cannot change.", r.Status)
	}
	return nil
}

// CanRespond allows the employee named on l to accept or decline it while
// the claim awaits or has manager approval.
func CanRespond(p Principal, r *Request, l *Line) error {
	if err := requireRole(OpRespondToLine, p); err != nil {
		return err
	}
	if p.UserID != l.EmployeeID {
		return generic.PermissionError("Only the employee on this line may respond to it.")
	}
	if r.Status != StatusSubmitted && r.Status != StatusManagerApproved {
		return generic.PermissionError("Responses are closed while the request is %s.", r.Status)
	}
	return nil
}

// CanCertify allows the department's representative to record attendance
// once the claim is approved by the line manager.
func CanCertify(p Principal, r *Request) error {
	if err := requireRole(OpCertifyAttendance, p); err != nil {
		return err
	}
	if p.DepartmentID != r.DepartmentID {
		return generic.PermissionError("You can only certify attendance for your own department.")
	}
	if r.Status != StatusManagerApproved && r.Status != StatusWorkDone {
		return generic.PermissionError("Attendance cannot be certified while the request is %s.", r.Status)
	}
	return nil
}

// CanManageCalendar allows HR to add and remove calendar days.
func CanManageCalendar(p Principal) error {
	return requireRole(OpManageCalendar, p)
}
