/*
bulk.go - Batch validation of claim lines

PURPOSE:
  Validates a list of submitted lines against one parent claim and reports
  every problem of the batch at once. A single line is a batch of one
  validated in fail-fast mode.

CHECKS (per line, in order):
  1. Employee exists and belongs to the claim's department
  2. Every date is a registered CalendarDay (unless unknown dates are
     accepted as ordinary days); offending dates of the whole batch are
     reported in one error
  3. No date is already booked for the employee, by a persisted line or by
     an earlier line of the same batch; all collisions are reported in one
     error naming employee and date

ALL OR NOTHING:
  Any error rejects the whole batch. The caller persists nothing unless
  Validate returns no error, and runs Validate and the inserts inside one
  transaction.

SEE ALSO:
  - conflict.go:  Double-booking detection
  - allocator.go: Derived fields of the validated lines
  - service.go:   CreateLines / UpdateLine
*/
package allowance

import (
	"context"
	"errors"
	"fmt"

	"github.com/sarahuu/EGBIN-SSP/generic"
)

// UnknownDatePolicy decides what happens to dates missing from the calendar.
type UnknownDatePolicy string

const (
	// RejectUnknownDates reports unregistered dates as invalid.
	RejectUnknownDates UnknownDatePolicy = "reject"
	// OrdinaryUnknownDates accepts unregistered dates as ordinary days.
	OrdinaryUnknownDates UnknownDatePolicy = "ordinary"
)

func ParseUnknownDatePolicy(s string) (UnknownDatePolicy, error) {
	switch p := UnknownDatePolicy(s); p {
	case RejectUnknownDates, OrdinaryUnknownDates:
		return p, nil
	}
	return "", fmt.Errorf("unknown date policy %q (use reject or ordinary)", s)
}

// ValidatedLine is a line that passed every check, with its allocation.
type ValidatedLine struct {
	Input      LineInput
	Employee   Employee
	Allocation Allocation
}

// ValidateOptions tune a validation run.
type ValidateOptions struct {
	// FailFast returns the first violation instead of the aggregate.
	FailFast bool
	// ExcludeLineID ignores an existing line's bookings (line updates).
	ExcludeLineID int64
}

// BulkValidator checks batches of lines.
type BulkValidator struct {
	Allocator *Allocator
	Policy    UnknownDatePolicy
}

func NewBulkValidator(allocator *Allocator, policy UnknownDatePolicy) *BulkValidator {
	if policy == "" {
		policy = RejectUnknownDates
	}
	return &BulkValidator{Allocator: allocator, Policy: policy}
}

// Validate checks inputs for parent on behalf of p. repos must be bound to
// the transaction the caller will insert with.
func (v *BulkValidator) Validate(ctx context.Context, repos Repos, p Principal, parent *Request, inputs []LineInput, opts ValidateOptions) ([]ValidatedLine, error) {
	if err := CanModifyLines(p, parent); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, generic.ValidationError("at least one line is required")
	}

	var errs generic.Errors
	fail := func(err *generic.Error) bool {
		errs.Add(err)
		return opts.FailFast
	}

	// 1. Employees
	employees := make([]*Employee, len(inputs))
	for i, in := range inputs {
		if len(in.Dates) == 0 {
			if fail(generic.ValidationError("line %d: at least one date is required", i+1)) {
				return nil, errs.Err()
			}
		}
		emp, err := repos.Directory().Employee(ctx, in.EmployeeID)
		if err != nil && !errors.Is(err, generic.ErrNotFound) {
			return nil, fmt.Errorf("failed to load employee %d: %w", in.EmployeeID, err)
		}
		if emp == nil || emp.DepartmentID != parent.DepartmentID {
			if fail(generic.ValidationError("line %d: employee %d does not exist in this department", i+1, in.EmployeeID)) {
				return nil, errs.Err()
			}
			continue
		}
		employees[i] = emp
	}

	// 2. Calendar
	var all []generic.Date
	for _, in := range inputs {
		all = append(all, in.Dates...)
	}
	days, err := repos.Calendar().Resolve(ctx, generic.UniqueDates(all))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve calendar days: %w", err)
	}
	if v.Policy == RejectUnknownDates {
		var unknown []generic.Date
		for _, d := range generic.UniqueDates(all) {
			if _, ok := days[d]; !ok {
				unknown = append(unknown, d)
			}
		}
		if len(unknown) > 0 {
			if fail(generic.ValidationError(
				"Some of the provided dates do not correspond to existing days: %s", generic.JoinDates(unknown))) {
				return nil, errs.Err()
			}
		}
	}

	// 3. Bookings
	detector := NewConflictDetector(repos.Lines()).Excluding(opts.ExcludeLineID)
	dupes := batchDuplicates(inputs)
	conflicts := &generic.Error{Kind: generic.KindConflict}
	for i, in := range inputs {
		emp := employees[i]
		if emp == nil {
			continue
		}
		booked, err := detector.FindConflicts(ctx, emp.ID, in.Dates)
		if err != nil {
			return nil, err
		}
		for _, d := range booked {
			conflicts.Messages = append(conflicts.Messages, conflictMessage(emp.Name, d))
		}
		for _, d := range dupes[i] {
			conflicts.Messages = append(conflicts.Messages, batchConflictMessage(emp.Name, d))
		}
		if opts.FailFast && len(conflicts.Messages) > 0 {
			break
		}
	}
	if len(conflicts.Messages) > 0 {
		errs.Add(conflicts)
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}

	out := make([]ValidatedLine, len(inputs))
	for i, in := range inputs {
		out[i] = ValidatedLine{
			Input:      in,
			Employee:   *employees[i],
			Allocation: v.Allocator.Allocate(in.Dates, days),
		}
	}
	return out, nil
}
