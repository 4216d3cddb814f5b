package allowance

import (
	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// LINE ALLOCATOR - Derived counts and amount of a line
// =============================================================================

// Allocation is the derived part of a line.
type Allocation struct {
	Dates        []generic.Date // distinct, ascending
	WeekendCount int
	HolidayCount int
	DayCount     int
	Amount       generic.Amount
}

// Allocator computes line allocations from calendar classifications.
type Allocator struct {
	Rates generic.Rates
}

func NewAllocator(rates generic.Rates) *Allocator {
	return &Allocator{Rates: rates}
}

// Allocate classifies dates with days and prices them. Dates missing from
// days are ordinary: counted in DayCount only. Duplicates count once.
//
// amount = weekend_count * weekend rate + holiday_count * holiday rate
func (a *Allocator) Allocate(dates []generic.Date, days map[generic.Date]CalendarDay) Allocation {
	unique := generic.UniqueDates(dates)

	out := Allocation{Dates: unique, DayCount: len(unique)}
	for _, d := range unique {
		day, ok := days[d]
		if !ok {
			continue
		}
		switch day.Category {
		case CategoryWeekend:
			out.WeekendCount++
		case CategoryPublicHoliday:
			out.HolidayCount++
		}
	}

	out.Amount = a.Rates.Weekend.MulInt(out.WeekendCount).
		Add(a.Rates.Holiday.MulInt(out.HolidayCount))
	return out
}
