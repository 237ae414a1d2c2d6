package cache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/refractsec/refract/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS vulnerability_records (
	cve_id TEXT PRIMARY KEY,
	published_date TEXT NOT NULL,
	in_known_exploited INTEGER NOT NULL,
	fetched_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vuln_fetched_at ON vulnerability_records(fetched_at);
`

// SQLiteCache is a Cache backed by a local SQLite database, so vulnerability
// records survive across runs.
type SQLiteCache struct {
	conn *sql.DB
	path string
}

// SQLiteOption configures the cache database.
type SQLiteOption func(*sqliteSettings)

type sqliteSettings struct {
	busyTimeout time.Duration
	maxConns    int
}

// WithBusyTimeout sets the busy timeout for SQLite.
func WithBusyTimeout(timeout time.Duration) SQLiteOption {
	return func(s *sqliteSettings) {
		s.busyTimeout = timeout
	}
}

// WithMaxConnections sets the maximum number of open connections.
func WithMaxConnections(n int) SQLiteOption {
	return func(s *sqliteSettings) {
		s.maxConns = n
	}
}

// NewSQLiteCache opens (creating if necessary) a cache database at path.
func NewSQLiteCache(path string, opts ...SQLiteOption) (*SQLiteCache, error) {
	settings := &sqliteSettings{
		busyTimeout: 5 * time.Second,
		maxConns:    4,
	}
	for _, opt := range opts {
		opt(settings)
	}

	var connStr string
	if strings.Contains(path, "?") {
		connStr = fmt.Sprintf("%s&_busy_timeout=%d", path, settings.busyTimeout.Milliseconds())
	} else {
		connStr = fmt.Sprintf("%s?_busy_timeout=%d", path, settings.busyTimeout.Milliseconds())
	}

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	conn.SetMaxOpenConns(settings.maxConns)
	conn.SetMaxIdleConns(settings.maxConns / 2)
	conn.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("setting %s: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &SQLiteCache{conn: conn, path: path}, nil
}

// Get returns the record for a CVE if it is fresher than maxAge, nil on a
// miss or stale hit.
func (c *SQLiteCache) Get(ctx context.Context, cveID string, maxAge time.Duration) (*models.VulnerabilityRecord, error) {
	query := `
		SELECT cve_id, published_date, in_known_exploited, fetched_at
		FROM vulnerability_records
		WHERE cve_id = ?`

	var (
		record    models.VulnerabilityRecord
		published string
		fetched   string
		exploited int
	)

	err := c.conn.QueryRowContext(ctx, query, cveID).Scan(&record.CVEID, &published, &exploited, &fetched)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Op: "get", Key: cveID, Err: err}
	}

	record.PublishedDate, err = parseStoredTime(published)
	if err != nil {
		return nil, &Error{Op: "get", Key: cveID, Err: err}
	}
	record.FetchedAt, err = parseStoredTime(fetched)
	if err != nil {
		return nil, &Error{Op: "get", Key: cveID, Err: err}
	}
	record.InKnownExploitedCatalog = exploited != 0

	if maxAge > 0 && time.Since(record.FetchedAt) > maxAge {
		return nil, nil
	}

	return &record, nil
}

// Put upserts a record for a CVE.
func (c *SQLiteCache) Put(ctx context.Context, record *models.VulnerabilityRecord) error {
	query := `
		INSERT INTO vulnerability_records (cve_id, published_date, in_known_exploited, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cve_id) DO UPDATE SET
			published_date = excluded.published_date,
			in_known_exploited = excluded.in_known_exploited,
			fetched_at = excluded.fetched_at`

	exploited := 0
	if record.InKnownExploitedCatalog {
		exploited = 1
	}

	_, err := c.conn.ExecContext(ctx, query,
		record.CVEID,
		record.PublishedDate.UTC().Format(time.RFC3339),
		exploited,
		record.FetchedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return &Error{Op: "put", Key: record.CVEID, Err: err}
	}
	return nil
}

// Purge removes entries fetched longer ago than olderThan and returns the
// number removed.
func (c *SQLiteCache) Purge(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format(time.RFC3339)

	result, err := c.conn.ExecContext(ctx,
		`DELETE FROM vulnerability_records WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, &Error{Op: "purge", Key: "*", Err: err}
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, &Error{Op: "purge", Key: "*", Err: err}
	}
	return int(removed), nil
}

// Count returns the number of cached records.
func (c *SQLiteCache) Count(ctx context.Context) (int, error) {
	var count int
	err := c.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM vulnerability_records`).Scan(&count)
	if err != nil {
		return 0, &Error{Op: "count", Key: "*", Err: err}
	}
	return count, nil
}

// Close closes the cache database.
func (c *SQLiteCache) Close() error {
	return c.conn.Close()
}

func parseStoredTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
