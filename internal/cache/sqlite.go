package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewSQLiteCache(connectionString string, ttl time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// every connection to ":memory:" opens its own database
	db.SetMaxOpenConns(1)

	c := &SQLiteCache{db: db, ttl: ttl, now: time.Now}
	if err := c.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}
	return c, nil
}

func (c *SQLiteCache) createSchema() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS responses (
		key TEXT PRIMARY KEY,
		data BLOB,
		extension TEXT,
		expires_at INTEGER
	)`)
	return err
}

func (c *SQLiteCache) Get(ctx context.Context, key string) (*Entry, error) {
	row := c.db.QueryRowContext(ctx, "SELECT data, extension, expires_at FROM responses WHERE key = ?", key)

	var entry Entry
	var expiresAt int64
	if err := row.Scan(&entry.Data, &entry.Extension, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if expiresAt > 0 && c.now().UnixNano() >= expiresAt {
		if _, err := c.db.ExecContext(ctx, "DELETE FROM responses WHERE key = ?", key); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &entry, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key string, entry *Entry) error {
	var expiresAt int64
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl).UnixNano()
	}
	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO responses (key, data, extension, expires_at) VALUES (?, ?, ?, ?)",
		key, entry.Data, entry.Extension, expiresAt)
	return err
}

// Purge deletes every expired entry and returns how many were removed.
func (c *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx, "DELETE FROM responses WHERE expires_at > 0 AND expires_at <= ?", c.now().UnixNano())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (c *SQLiteCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
