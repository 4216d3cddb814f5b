/*
Package sqlite provides a SQLite-backed implementation of allowance.Store.

PURPOSE:
  Persists claims, lines, the calendar registry and the directory. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  requests:          Claims, unique request_id
  request_sequences: Per-year claim number counters
  request_lines:     Lines with derived counts and amount
  line_days:         Booked dates, one row per (line, date)
  calendar_days:     Weekend / public holiday registry, unique date
  departments, employees: Directory

INDEXES:
  - idx_unique_employee_day: Enforces no double-booking, whatever the
    application checked before inserting
  - idx_line_days_date: Calendar re-derivation and reference counts

CASCADES:
  Deleting a request deletes its lines and their booked dates. Deleting a
  calendar day still referenced by a booked date is refused (RESTRICT).

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for
  the whole transaction, so a conflict check and the insert that follows it
  cannot interleave with another writer. In production with PostgreSQL,
  SERIALIZABLE transactions handle this instead.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/allowance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Versioned SQL files under sql/ are applied on New() with darwin, which
  records applied versions and checksums in darwin_migrations.

SEE ALSO:
  - allowance/store.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/sarahuu/EGBIN-SSP/allowance"
	"github.com/sarahuu/EGBIN-SSP/generic"
)

// Store implements allowance.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens the database at dbPath and applies pending migrations.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	if dbPath == ":memory:" {
		dsn = ":memory:?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) conn() conn { return conn{q: s.db, db: s.db, mu: &s.mu} }

func (s *Store) Requests() allowance.RequestRepo  { return requestRepo{s.conn()} }
func (s *Store) Lines() allowance.LineRepo        { return lineRepo{s.conn()} }
func (s *Store) Calendar() allowance.CalendarRepo { return calendarRepo{s.conn()} }
func (s *Store) Directory() allowance.Directory   { return directory{s.conn()} }

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(allowance.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(txRepos{conn{q: sqlTx}}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txRepos struct{ c conn }

func (t txRepos) Requests() allowance.RequestRepo  { return requestRepo{t.c} }
func (t txRepos) Lines() allowance.LineRepo        { return lineRepo{t.c} }
func (t txRepos) Calendar() allowance.CalendarRepo { return calendarRepo{t.c} }
func (t txRepos) Directory() allowance.Directory   { return directory{t.c} }

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn is what repositories run against. Outside a transaction mu guards
// access; inside WithTx the lock is already held and mu is nil.
type conn struct {
	q  querier
	db *sql.DB
	mu *sync.RWMutex
}

func (c conn) read() func() {
	if c.mu == nil {
		return func() {}
	}
	c.mu.RLock()
	return c.mu.RUnlock
}

func (c conn) write() func() {
	if c.mu == nil {
		return func() {}
	}
	c.mu.Lock()
	return c.mu.Unlock
}

// atomic runs a multi-statement write in one transaction, reusing the
// enclosing one when there is one.
func (c conn) atomic(ctx context.Context, fn func(q querier) error) error {
	if c.db == nil {
		return fn(c.q)
	}
	defer c.write()()

	sqlTx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// HELPERS
// =============================================================================

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// isRestrictError reports a delete refused by ON DELETE RESTRICT, which SQLite
// raises as a trigger constraint rather than a foreign key one.
func isRestrictError(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintTrigger || se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return generic.NotFoundError(format, args...)
	}
	return err
}

// rowsAffected turns "0 rows" into a not-found error.
func rowsAffected(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return generic.NotFoundError(format, args...)
	}
	return nil
}
