package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS expenses (
    id           TEXT PRIMARY KEY,
    item         TEXT NOT NULL UNIQUE,
    cost         TEXT NOT NULL,
    contributors TEXT NOT NULL,
    version      BIGINT NOT NULL,
    created_at   {{timestamp}} NOT NULL,
    updated_at   {{timestamp}} NOT NULL
);

CREATE TABLE IF NOT EXISTS polls (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    creator    TEXT NOT NULL,
    users      TEXT NOT NULL,
    options    TEXT NOT NULL,
    votes      TEXT NOT NULL,
    closed     BOOLEAN NOT NULL,
    version    BIGINT NOT NULL,
    created_at {{timestamp}} NOT NULL,
    updated_at {{timestamp}} NOT NULL,
    UNIQUE (creator, name)
);

CREATE TABLE IF NOT EXISTS poll_users (
    poll_id TEXT NOT NULL REFERENCES polls(id),
    user_id TEXT NOT NULL,
    PRIMARY KEY (poll_id, user_id)
);

CREATE TABLE IF NOT EXISTS itineraries (
    id         TEXT PRIMARY KEY,
    trip       TEXT NOT NULL UNIQUE,
    finalized  BOOLEAN NOT NULL,
    version    BIGINT NOT NULL,
    created_at {{timestamp}} NOT NULL,
    updated_at {{timestamp}} NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    id           TEXT PRIMARY KEY,
    itinerary_id TEXT NOT NULL REFERENCES itineraries(id),
    name         TEXT NOT NULL,
    cost         TEXT NOT NULL,
    pending      BOOLEAN NOT NULL,
    approved     BOOLEAN NOT NULL,
    version      BIGINT NOT NULL,
    created_at   {{timestamp}} NOT NULL,
    updated_at   {{timestamp}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_itinerary ON events(itinerary_id);

CREATE TABLE IF NOT EXISTS trips (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    owner        TEXT NOT NULL,
    destination  TEXT NOT NULL,
    start_date   {{timestamp}} NOT NULL,
    end_date     {{timestamp}} NOT NULL,
    participants TEXT NOT NULL,
    finalized    BOOLEAN NOT NULL,
    version      BIGINT NOT NULL,
    created_at   {{timestamp}} NOT NULL,
    updated_at   {{timestamp}} NOT NULL,
    UNIQUE (owner, destination, start_date, end_date)
);

CREATE TABLE IF NOT EXISTS activity (
    id         TEXT PRIMARY KEY,
    type       TEXT NOT NULL,
    entity_id  TEXT NOT NULL,
    actor      TEXT NOT NULL,
    data       TEXT,
    created_at {{timestamp}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_entity ON activity(entity_id, created_at);
`

// Compile-time interface satisfaction check.
var _ Store = (*SQLStore)(nil)

// SQLStore implements Store on SQLite or PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open connects to the database named by driver and dsn and creates any
// missing tables.
func Open(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLStore{db: db, driver: driver}
	if driver == DriverSQLite {
		err = s.initSQLite()
	} else {
		err = db.Ping()
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// NewSQLiteStore opens the SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	return Open(DriverSQLite, dbPath)
}

func (s *SQLStore) initSQLite() error {
	// A single connection keeps ":memory:" databases shared and serializes
	// writers the way SQLite would anyway.
	s.db.SetMaxOpenConns(1)

	if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	return nil
}

func (s *SQLStore) migrate() error {
	timestamp := "DATETIME"
	if s.driver == DriverPostgres {
		timestamp = "TIMESTAMPTZ"
	}
	ddl := strings.ReplaceAll(schema, "{{timestamp}}", timestamp)

	for stmt := range strings.SplitSeq(ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Ping verifies the database connection is alive.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Driver returns the database driver name.
func (s *SQLStore) Driver() string {
	return s.driver
}

// q rewrites ? placeholders into the driver's bind syntax.
func (s *SQLStore) q(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction, committing if fn returns nil.
func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// casResult turns the outcome of a versioned UPDATE into ErrNotFound or
// ErrStale when no row matched.
func (s *SQLStore) casResult(ctx context.Context, q querier, res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var one int
	err = q.QueryRowContext(ctx, s.q("SELECT 1 FROM "+table+" WHERE id = ?"), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("probe %s: %w", table, err)
	}
	return ErrStale
}

// deleteResult maps a DELETE that matched nothing to ErrNotFound.
func deleteResult(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a uniqueness constraint failure
// from either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func now() time.Time {
	return time.Now().UTC()
}
