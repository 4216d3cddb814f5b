/*
Package factory provides JSON to Go calendar conversion.

PURPOSE:
  Converts yearly JSON calendar definitions into allowance.CalendarDay
  records. HR can publish the year's public holidays as a file and the
  server imports it on start, instead of entering each day through the API.

JSON SCHEMA:
  {
    "year": 2025,
    "weekends": true,
    "public_holidays": [
      {"date": "2025-01-01", "name": "New Year's Day"},
      {"date": "2025-10-01", "name": "Independence Day"}
    ]
  }

KEY FEATURES:
  - "weekends": true generates every Saturday and Sunday of the year
  - A public holiday falling on a weekend is classified as a public holiday
  - Holidays outside "year" are rejected
  - Output is sorted by date with one record per date

USAGE:
  f := factory.NewCalendarFactory()
  days, err := f.ParseCalendar(data)
  added, err := calendarService.ImportDays(ctx, days)

SEE ALSO:
  - allowance/calendar.go: CalendarService.ImportDays
  - api/scenarios.go: Demo calendars built with FromJSON
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CalendarJSON is the JSON representation of one year's calendar.
type CalendarJSON struct {
	Year           int           `json:"year"`
	Weekends       bool          `json:"weekends"`
	PublicHolidays []HolidayJSON `json:"public_holidays,omitempty"`
}

// HolidayJSON is one public holiday.
type HolidayJSON struct {
	Date string `json:"date"` // YYYY-MM-DD
	Name string `json:"name,omitempty"`
}

// =============================================================================
// CALENDAR FACTORY
// =============================================================================

// CalendarFactory converts JSON calendars to CalendarDay records.
type CalendarFactory struct{}

func NewCalendarFactory() *CalendarFactory {
	return &CalendarFactory{}
}

// ParseCalendar parses a JSON document into calendar days.
func (f *CalendarFactory) ParseCalendar(data []byte) ([]allowance.CalendarDay, error) {
	var cj CalendarJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return nil, fmt.Errorf("failed to parse calendar JSON: %w", err)
	}
	return f.FromJSON(cj)
}

// LoadFile reads and parses a calendar file.
func (f *CalendarFactory) LoadFile(path string) ([]allowance.CalendarDay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar %s: %w", path, err)
	}
	return f.ParseCalendar(data)
}

// FromJSON converts CalendarJSON to calendar days.
func (f *CalendarFactory) FromJSON(cj CalendarJSON) ([]allowance.CalendarDay, error) {
	if cj.Year < 1 || cj.Year > 9999 {
		return nil, fmt.Errorf("invalid calendar year %d", cj.Year)
	}

	byDate := make(map[generic.Date]allowance.CalendarDay)
	if cj.Weekends {
		for _, d := range Weekends(cj.Year) {
			byDate[d] = allowance.CalendarDay{Date: d, Category: allowance.CategoryWeekend}
		}
	}

	for _, h := range cj.PublicHolidays {
		d, err := generic.ParseDate(h.Date)
		if err != nil {
			return nil, err
		}
		if d.Year() != cj.Year {
			return nil, fmt.Errorf("holiday %s is outside %d", d, cj.Year)
		}
		// Holidays override the generated weekend entry.
		byDate[d] = allowance.CalendarDay{
			Date:     d,
			Category: allowance.CategoryPublicHoliday,
			Name:     strings.TrimSpace(h.Name),
		}
	}

	days := make([]allowance.CalendarDay, 0, len(byDate))
	for _, d := range byDate {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

// Weekends returns every Saturday and Sunday of year in order.
func Weekends(year int) []generic.Date {
	var out []generic.Date
	end := generic.EndOfYear(year)
	for d := generic.StartOfYear(year); !d.After(end); d = d.AddDays(1) {
		if d.IsWeekend() {
			out = append(out, d)
		}
	}
	return out
}
