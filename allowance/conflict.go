/*
conflict.go - Double-booking detection

PURPOSE:
  The critical invariant of claim lines: an employee cannot be booked twice
  for the same day, whichever claim the bookings belong to and whatever
  status that claim has.

INVARIANT:
  No two lines share (EmployeeID, Date).

  Dates are discrete days, so detection is set intersection against every
  persisted booking of the employee. There is no range arithmetic.

WHAT IT CHECKS:
  1. Persisted bookings: Is any candidate date already held by a line?
  2. Batch: Does a submission book the same employee twice for one date?

  Both checks run inside the caller's transaction so the read and the
  following insert are not interleaved by another writer. The storage layer
  backs this with a unique index on (employee_id, date).

SEE ALSO:
  - bulk.go:  Runs the detector for every line of a batch
  - store.go: LineRepo.Bookings
*/
package allowance

import (
	"context"
	"fmt"

	"github.com/sarahuu/EGBIN-SSP/generic"
)

// ConflictDetector finds dates an employee is already booked for.
type ConflictDetector struct {
	lines   LineRepo
	exclude int64
}

func NewConflictDetector(lines LineRepo) *ConflictDetector {
	return &ConflictDetector{lines: lines}
}

// Excluding returns a detector that ignores the bookings of lineID, for a
// line whose own dates are being replaced. Zero excludes nothing.
func (cd *ConflictDetector) Excluding(lineID int64) *ConflictDetector {
	return &ConflictDetector{lines: cd.lines, exclude: lineID}
}

// FindConflicts returns the subset of dates already booked for employeeID,
// ascending and without repeats.
func (cd *ConflictDetector) FindConflicts(ctx context.Context, employeeID int64, dates []generic.Date) ([]generic.Date, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	bookings, err := cd.lines.Bookings(ctx, employeeID, generic.UniqueDates(dates), cd.exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to check bookings: %w", err)
	}
	return bookedDates(bookings), nil
}

func bookedDates(bookings []Booking) []generic.Date {
	dates := make([]generic.Date, 0, len(bookings))
	for _, b := range bookings {
		dates = append(dates, b.Date)
	}
	return generic.UniqueDates(dates)
}

// batchDuplicates returns, per input index, the dates that an earlier input
// of the same batch already books for the same employee.
func batchDuplicates(inputs []LineInput) map[int][]generic.Date {
	type slot struct {
		employeeID int64
		date       generic.Date
	}
	seen := make(map[slot]bool)
	out := make(map[int][]generic.Date)
	for i, in := range inputs {
		for _, d := range generic.UniqueDates(in.Dates) {
			k := slot{in.EmployeeID, d}
			if seen[k] {
				out[i] = append(out[i], d)
				continue
			}
			seen[k] = true
		}
	}
	return out
}

func conflictMessage(employeeName string, date generic.Date) string {
	return fmt.Sprintf("You cannot book %s for %s as they have already been booked for that day", employeeName, date)
}

func batchConflictMessage(employeeName string, date generic.Date) string {
	return fmt.Sprintf("%s is booked more than once for %s in this submission", employeeName, date)
}
