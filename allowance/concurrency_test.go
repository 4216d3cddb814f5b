package allowance_test

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/generic"
	"github.com/sarahuu/EGBIN-SSP/store/sqlite"
)

const writers = 8

// newFileFixture runs the services against a WAL database on disk, where
// readers and writers use separate pooled connections.
func newFileFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "claims.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return newFixtureOn(t, store)
}

func TestConcurrentCreateLines_SameEmployeeAndDate(t *testing.T) {
	// GIVEN: One draft per writer, all booking Emeka for the same Saturday
	f := newFileFixture(t)
	requestIDs := make([]int64, writers)
	for i := range requestIDs {
		requestIDs[i] = f.draft(t).ID
	}

	// WHEN
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i, id := range requestIDs {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, errs[i] = f.requests.CreateLines(f.ctx, f.rep, id,
				[]allowance.LineInput{{EmployeeID: f.tech.UserID, Dates: []generic.Date{sat}}}, false)
		}(i, id)
	}
	wg.Wait()

	// THEN: Exactly one booking wins, the rest conflict
	succeeded, conflicted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, generic.ErrConflict):
			conflicted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, writers-1, conflicted)

	booked, err := allowance.NewConflictDetector(f.store.Lines()).FindConflicts(f.ctx, f.tech.UserID, []generic.Date{sat})
	require.NoError(t, err)
	assert.Equal(t, []generic.Date{sat}, booked)
}

func TestConcurrentCreateRequest_DistinctNumbers(t *testing.T) {
	// GIVEN
	f := newFileFixture(t)

	// WHEN: Every writer opens a claim at once
	numbers := make([]string, writers)
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, err := f.requests.CreateRequest(f.ctx, f.rep, allowance.RequestInput{
				Title:       "Outage cover",
				Description: "Boiler feed pump",
			})
			errs[i] = err
			if err == nil {
				numbers[i] = req.RequestID
			}
		}(i)
	}
	wg.Wait()

	// THEN: Every claim gets its own number
	seen := make(map[string]bool, writers)
	for i, err := range errs {
		require.NoError(t, err)
		assert.Regexp(t, `^IAR/2025/\d{4}$`, numbers[i])
		seen[numbers[i]] = true
	}
	assert.Len(t, seen, writers)
}
