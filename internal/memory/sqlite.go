package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS memories (
    id TEXT PRIMARY KEY,
    key TEXT NOT NULL UNIQUE,
    value TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_key ON memories(key);
`

// sqliteBackend holds the persistent tier. WAL mode plus a busy timeout lets
// concurrent interpreters share the same file.
type sqliteBackend struct {
	db *sql.DB
}

func openSQLite(dbPath string) (*sqliteBackend, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening memory database: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating memory schema: %w", err)
	}
	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) close() error { return b.db.Close() }

func (b *sqliteBackend) upsert(ctx context.Context, e Entry) error {
	return b.execWithRetry(ctx, `
		INSERT INTO memories (id, key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		e.ID, e.Key, e.Value, e.CreatedAt, e.UpdatedAt)
}

func (b *sqliteBackend) delete(ctx context.Context, key string) error {
	return b.execWithRetry(ctx, `DELETE FROM memories WHERE key = ?`, key)
}

func (b *sqliteBackend) get(ctx context.Context, key string) (Entry, bool, error) {
	row := b.db.QueryRowContext(ctx,
		`SELECT id, key, value, created_at, updated_at FROM memories WHERE key = ?`, key)
	e, err := scanEntry(row.Scan)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading memory entry: %w", err)
	}
	return e, true, nil
}

func (b *sqliteBackend) all(ctx context.Context) ([]Entry, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, key, value, created_at, updated_at FROM memories ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing memory entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning memory entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// execWithRetry retries on SQLite busy/locked with quadratic backoff.
func (b *sqliteBackend) execWithRetry(ctx context.Context, query string, args ...interface{}) error {
	const maxRetries = 15
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepRetry(ctx, attempt); err != nil {
				return err
			}
		}
		_, lastErr = b.db.ExecContext(ctx, query, args...)
		if lastErr == nil || !isSQLiteLocked(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func sleepRetry(ctx context.Context, attempt int) error {
	backoff := time.Duration(attempt*attempt) * 20 * time.Millisecond
	if backoff > 250*time.Millisecond {
		backoff = 250 * time.Millisecond
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-time.After(backoff):
		return nil
	}
}

func isSQLiteLocked(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "locked")
}

func scanEntry(scan func(dest ...interface{}) error) (Entry, error) {
	var e Entry
	var createdAt, updatedAt interface{}
	if err := scan(&e.ID, &e.Key, &e.Value, &createdAt, &updatedAt); err != nil {
		return Entry{}, err
	}
	e.Tier = TierPersistent
	if t, ok := scanTime(createdAt); ok {
		e.CreatedAt = t
	}
	if t, ok := scanTime(updatedAt); ok {
		e.UpdatedAt = t
	}
	return e, nil
}

// scanTime handles the datetime representations SQLite hands back depending
// on how the column was written.
func scanTime(v interface{}) (t time.Time, ok bool) {
	if v == nil {
		return time.Time{}, false
	}
	switch val := v.(type) {
	case time.Time:
		return val, true
	case []byte:
		return parseSQLiteTime(string(val))
	case string:
		return parseSQLiteTime(val)
	}
	return time.Time{}, false
}

func parseSQLiteTime(s string) (time.Time, bool) {
	parsed, err := time.Parse("2006-01-02 15:04:05.999999999-07:00", s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
