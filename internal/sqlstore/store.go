// Package sqlstore persists fingerprints in a SQL database. SQLite (pure Go
// driver) is the default for single-machine builds; PostgreSQL lets several
// machines share one store.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/specialistvlad/buildgridgo/internal/fingerprint"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

const table = "fingerprints"

// Store implements fingerprint.Store on database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	table   string
	// mu serializes writers. SQLite allows a single writer anyway; for
	// PostgreSQL the upsert is atomic per row.
	mu sync.Mutex
}

var _ fingerprint.Store = (*Store)(nil)

const maxSQLiteConns = 8

// sqlitePragmas are applied by the driver to every new connection.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
}

func sqliteDSN(path string) string {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// OpenSQLite opens or creates a SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Readers proceed concurrently under WAL; Store.mu keeps a single writer.
	db.SetMaxOpenConns(maxSQLiteConns)
	db.SetMaxIdleConns(maxSQLiteConns)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newStore(ctx, db, SQLite)
}

// OpenPostgres connects to a PostgreSQL database using a lib/pq DSN or URL.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return newStore(ctx, db, Postgres)
}

func newStore(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect, table: table}
	if dialect == Postgres {
		s.table = pq.QuoteIdentifier(table)
	}
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	task       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	build_id   TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`, s.table)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// bind rewrites '?' placeholders for the dialect.
func (s *Store) bind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Load implements fingerprint.Store.
func (s *Store) Load(ctx context.Context, task string) (*fingerprint.Fingerprint, error) {
	var data string
	err := s.db.QueryRowContext(ctx, s.bind("SELECT data FROM "+s.table+" WHERE task = ?"), task).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fingerprint.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query fingerprint of %s: %w", task, err)
	}
	var fp fingerprint.Fingerprint
	if err := json.Unmarshal([]byte(data), &fp); err != nil {
		return nil, fmt.Errorf("decode fingerprint of %s: %w", task, err)
	}
	return &fp, nil
}

// Save implements fingerprint.Store.
func (s *Store) Save(ctx context.Context, fp *fingerprint.Fingerprint) error {
	data, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("marshal fingerprint of %s: %w", fp.Task, err)
	}
	ts := fp.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, s.bind(`INSERT INTO `+s.table+` (task, data, build_id, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (task) DO UPDATE SET data = excluded.data, build_id = excluded.build_id, updated_at = excluded.updated_at`),
		fp.Task, string(data), fp.BuildID, ts.UTC())
	if err != nil {
		return fmt.Errorf("save fingerprint of %s: %w", fp.Task, err)
	}
	return nil
}

// Delete implements fingerprint.Store.
func (s *Store) Delete(ctx context.Context, task string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, s.bind("DELETE FROM "+s.table+" WHERE task = ?"), task); err != nil {
		return fmt.Errorf("delete fingerprint of %s: %w", task, err)
	}
	return nil
}

// Count returns the number of stored fingerprints.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table).Scan(&n)
	return n, err
}

// Close implements fingerprint.Store.
func (s *Store) Close() error {
	return s.db.Close()
}
