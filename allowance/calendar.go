package allowance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarahuu/EGBIN-SSP/generic"
)

// =============================================================================
// CALENDAR SERVICE - CalendarDay registry
// =============================================================================

// CalendarService manages the weekend and public holiday registry.
type CalendarService struct {
	Store     Store
	Allocator *Allocator
	Log       logrus.FieldLogger
	Now       func() time.Time
}

func NewCalendarService(store Store, allocator *Allocator, log logrus.FieldLogger) *CalendarService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CalendarService{Store: store, Allocator: allocator, Log: log, Now: time.Now}
}

// CreateDay registers a date. Lines already holding the date as an ordinary
// day are re-derived in the same transaction.
func (c *CalendarService) CreateDay(ctx context.Context, p Principal, date generic.Date, category Category, name string) (*CalendarDay, error) {
	if err := CanManageCalendar(p); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, generic.ValidationError("date: is required")
	}
	if !category.Valid() {
		return nil, generic.ValidationError("category: must be weekend or public_holiday")
	}

	day := &CalendarDay{Date: date, Category: category, Name: strings.TrimSpace(name), CreatedAt: c.Now().UTC()}
	var rederived int
	err := c.Store.WithTx(ctx, func(repos Repos) error {
		if err := repos.Calendar().Create(ctx, day); err != nil {
			return err
		}
		n, err := c.rederive(ctx, repos, date)
		rederived = n
		return err
	})
	if err != nil {
		return nil, err
	}

	c.Log.WithFields(logrus.Fields{
		"date":      date.String(),
		"category":  category,
		"rederived": rederived,
	}).Info("calendar day created")
	return day, nil
}

func (c *CalendarService) rederive(ctx context.Context, repos Repos, date generic.Date) (int, error) {
	lines, err := repos.Lines().OnDate(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("failed to load lines on %s: %w", date, err)
	}
	for i := range lines {
		line := &lines[i]
		days, err := repos.Calendar().Resolve(ctx, line.Dates)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve calendar days: %w", err)
		}
		line.Apply(c.Allocator.Allocate(line.Dates, days))
		if err := repos.Lines().Update(ctx, line); err != nil {
			return 0, err
		}
	}
	return len(lines), nil
}

// ImportDays registers days whose dates are not yet present and returns how
// many were added. Used for seeding, so it carries no principal.
func (c *CalendarService) ImportDays(ctx context.Context, days []CalendarDay) (int, error) {
	added := 0
	err := c.Store.WithTx(ctx, func(repos Repos) error {
		dates := make([]generic.Date, len(days))
		for i, d := range days {
			dates[i] = d.Date
		}
		existing, err := repos.Calendar().Resolve(ctx, dates)
		if err != nil {
			return err
		}
		for _, d := range days {
			if _, ok := existing[d.Date]; ok {
				continue
			}
			day := d
			if day.CreatedAt.IsZero() {
				day.CreatedAt = c.Now().UTC()
			}
			if err := repos.Calendar().Create(ctx, &day); err != nil {
				if errors.Is(err, generic.ErrConflict) {
					continue
				}
				return err
			}
			existing[day.Date] = day
			if _, err := c.rederive(ctx, repos, day.Date); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	c.Log.WithField("added", added).Info("calendar imported")
	return added, nil
}

// ListDays returns the days of year; 0 lists all.
func (c *CalendarService) ListDays(ctx context.Context, year int) ([]CalendarDay, error) {
	return c.Store.Calendar().Year(ctx, year)
}

func (c *CalendarService) GetDay(ctx context.Context, id int64) (*CalendarDay, error) {
	return c.Store.Calendar().Get(ctx, id)
}

// DeleteDay removes a day unless a line holds its date.
func (c *CalendarService) DeleteDay(ctx context.Context, p Principal, id int64) error {
	if err := CanManageCalendar(p); err != nil {
		return err
	}
	return c.Store.WithTx(ctx, func(repos Repos) error {
		day, err := repos.Calendar().Get(ctx, id)
		if err != nil {
			return err
		}
		refs, err := repos.Calendar().References(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return generic.ConflictError("%s is booked on %d line(s) and cannot be deleted", day.Date, refs)
		}
		return repos.Calendar().Delete(ctx, id)
	})
}
