package generic_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// DATES
// =============================================================================

func TestParseDate(t *testing.T) {
	d, err := generic.ParseDate(" 2025-03-01 ")
	require.NoError(t, err)
	assert.Equal(t, generic.NewDate(2025, time.March, 1), d)
	assert.Equal(t, "2025-03-01", d.String())
	assert.True(t, d.IsWeekend())

	for _, bad := range []string{"2025-02-30", "01/03/2025", "2025-3-1", ""} {
		_, err := generic.ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestDateOf_DropsTimeOfDay(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)
	d := generic.DateOf(time.Date(2025, 3, 1, 23, 30, 0, 0, lagos))

	assert.Equal(t, generic.NewDate(2025, time.March, 1), d)
	assert.Equal(t, generic.MustParseDate("2025-03-02"), d.AddDays(1))
}

func TestUniqueDates(t *testing.T) {
	sat := generic.MustParseDate("2025-03-01")
	sun := generic.MustParseDate("2025-03-02")
	input := []generic.Date{sun, sat, sun, sat}

	out := generic.UniqueDates(input)

	assert.Equal(t, []generic.Date{sat, sun}, out)
	assert.Equal(t, []generic.Date{sun, sat, sun, sat}, input, "input untouched")
	assert.Equal(t, "2025-03-01, 2025-03-02", generic.JoinDates(out))
}

func TestDate_JSON(t *testing.T) {
	var v struct {
		Day generic.Date `json:"day"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"day": "2025-10-01"}`), &v))
	assert.Equal(t, generic.NewDate(2025, time.October, 1), v.Day)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"day": "2025-10-01"}`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`{"day": "2025-13-01"}`), &v))
}

// =============================================================================
// AMOUNTS
// =============================================================================

func TestAmount_Arithmetic(t *testing.T) {
	rates := generic.DefaultRates()

	total := rates.Weekend.MulInt(2).Add(rates.Holiday)

	assert.Equal(t, "22000.00", total.String())
	assert.Equal(t, generic.CurrencyNGN, total.Currency)
	assert.True(t, total.Zero().IsZero())
	assert.True(t, total.Equal(generic.NewAmountFromInt(22000, generic.CurrencyNGN)))
}

func TestAmount_JSONIsFixedPoint(t *testing.T) {
	a, err := generic.ParseAmount("3500.5", generic.CurrencyNGN)
	require.NoError(t, err)

	data, err := json.Marshal(a)

	require.NoError(t, err)
	assert.Equal(t, `"3500.50"`, string(data))

	_, err = generic.ParseAmount("lots", generic.CurrencyNGN)
	assert.Error(t, err)
}

// =============================================================================
// ERRORS
// =============================================================================

func TestError_KindAndSentinel(t *testing.T) {
	err := fmt.Errorf("saving line: %w", generic.ConflictError("employee %d is already booked", 4))

	assert.True(t, errors.Is(err, generic.ErrConflict))
	assert.False(t, errors.Is(err, generic.ErrValidation))
	assert.Equal(t, generic.KindConflict, generic.KindOf(err))
	assert.Equal(t, []string{"employee 4 is already booked"}, generic.Messages(err))
	assert.True(t, generic.IsClientError(err))
}

func TestErrors_Aggregate(t *testing.T) {
	// GIVEN: Two problems of different kinds
	var errs generic.Errors
	errs.Add(nil)
	errs.Add(generic.ValidationError("line 2: unknown date"))
	errs.Add(&generic.Error{Kind: generic.KindConflict, Messages: []string{"a", "b"}})

	// WHEN
	err := errs.Err()

	// THEN: Both kinds match and messages flatten in order
	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrValidation))
	assert.True(t, errors.Is(err, generic.ErrConflict))
	assert.Equal(t, generic.KindValidation, generic.KindOf(err))
	assert.Equal(t, []string{"line 2: unknown date", "a", "b"}, generic.Messages(err))
	assert.Equal(t, "line 2: unknown date; a; b", err.Error())
}

func TestErrors_Err(t *testing.T) {
	var errs generic.Errors
	assert.NoError(t, errs.Err())

	single := generic.NotFoundError("request %d not found", 9)
	errs.Add(single)
	assert.Same(t, single, errs.Err())
	assert.True(t, generic.IsNotFound(errs.Err()))
}

func TestMessages_InfrastructureErrorsHaveNone(t *testing.T) {
	err := errors.New("disk full")

	assert.Nil(t, generic.Messages(err))
	assert.Equal(t, generic.Kind(""), generic.KindOf(err))
	assert.False(t, generic.IsClientError(err))
}
