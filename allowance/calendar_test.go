package allowance_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/generic"
)

func TestCalendar_CreateDayRequiresHR(t *testing.T) {
	f := newFixture(t)

	_, err := f.calendar.CreateDay(f.ctx, f.rep, tue, allowance.CategoryPublicHoliday, "Strike day")
	assert.True(t, errors.Is(err, generic.ErrPermission))

	day, err := f.calendar.CreateDay(f.ctx, f.hr, tue, allowance.CategoryPublicHoliday, "  Strike day ")
	require.NoError(t, err)
	assert.NotZero(t, day.ID)
	assert.Equal(t, "Strike day", day.Name)
}

func TestCalendar_CreateDayValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.calendar.CreateDay(f.ctx, f.hr, tue, allowance.Category("festival"), "")
	assert.Equal(t, []string{"category: must be weekend or public_holiday"}, generic.Messages(err))

	_, err = f.calendar.CreateDay(f.ctx, f.hr, generic.Date{}, allowance.CategoryWeekend, "")
	assert.Equal(t, []string{"date: is required"}, generic.Messages(err))

	_, err = f.calendar.CreateDay(f.ctx, f.hr, sat, allowance.CategoryWeekend, "")
	assert.True(t, errors.Is(err, generic.ErrConflict), "date already registered")
}

func TestCalendar_CreateDayRederivesLines(t *testing.T) {
	// GIVEN: A line holding an unregistered date as an ordinary day
	f := newFixture(t)
	f.requests.Validator = allowance.NewBulkValidator(allowance.NewAllocator(generic.DefaultRates()), allowance.OrdinaryUnknownDates)
	req := f.draft(t)
	line := f.line(t, req.ID, f.tech, tue)
	require.True(t, line.Amount.IsZero())

	// WHEN: HR declares the date a public holiday
	_, err := f.calendar.CreateDay(f.ctx, f.hr, tue, allowance.CategoryPublicHoliday, "Emergency holiday")
	require.NoError(t, err)

	// THEN: The line is priced as a holiday
	stored, err := f.store.Lines().Get(f.ctx, line.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.HolidayCount)
	assert.Equal(t, 1, stored.DayCount)
	assert.Equal(t, "15000.00", stored.Amount.String())
}

func TestCalendar_DeleteDayInUse(t *testing.T) {
	// GIVEN: A line booked on the first Saturday
	f := newFixture(t)
	req := f.draft(t)
	f.line(t, req.ID, f.tech, sat)
	days, err := f.calendar.ListDays(f.ctx, 2025)
	require.NoError(t, err)
	require.Equal(t, sat, days[0].Date)

	// WHEN/THEN: The held day is refused, a free one is removed
	err = f.calendar.DeleteDay(f.ctx, f.hr, days[0].ID)
	assert.True(t, errors.Is(err, generic.ErrConflict))
	assert.Equal(t, []string{"2025-03-01 is booked on 1 line(s) and cannot be deleted"}, generic.Messages(err))

	err = f.calendar.DeleteDay(f.ctx, f.rep, days[1].ID)
	assert.True(t, errors.Is(err, generic.ErrPermission))

	require.NoError(t, f.calendar.DeleteDay(f.ctx, f.hr, days[1].ID))
	_, err = f.calendar.GetDay(f.ctx, days[1].ID)
	assert.True(t, generic.IsNotFound(err))
}

func TestCalendar_ImportSkipsExisting(t *testing.T) {
	f := newFixture(t)

	added, err := f.calendar.ImportDays(f.ctx, []allowance.CalendarDay{
		{Date: sat, Category: allowance.CategoryWeekend},
		{Date: generic.MustParseDate("2025-03-09"), Category: allowance.CategoryWeekend},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, added)

	days, err := f.calendar.ListDays(f.ctx, 2025)
	require.NoError(t, err)
	assert.Len(t, days, 5)

	none, err := f.calendar.ListDays(f.ctx, 2024)
	require.NoError(t, err)
	assert.Empty(t, none)
}
