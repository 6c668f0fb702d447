package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/karlla1220/meetgrid/gateway"
)

const schema = `
CREATE TABLE IF NOT EXISTS responses (
	content_hash TEXT    NOT NULL,
	day          INTEGER NOT NULL,
	block        INTEGER NOT NULL,
	response     TEXT    NOT NULL,
	created_at   INTEGER NOT NULL,
	PRIMARY KEY (content_hash, day, block)
)`

// SQLite is a Store backed by one SQLite file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens or creates the cache at path. The special path
// ":memory:" keeps the cache in memory.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create cache directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	// One connection serialises writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		schema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initialise cache: %w", err)
		}
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Get implements gateway.Store.
func (s *SQLite) Get(ctx context.Context, key gateway.Key) (gateway.Response, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT response FROM responses
		WHERE content_hash = ? AND day = ? AND block = ?
	`, key.Hash, int(key.Day), key.Block).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return gateway.Response{}, false, nil
	}
	if err != nil {
		return gateway.Response{}, false, fmt.Errorf("read %s: %w", key, err)
	}

	var resp gateway.Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return gateway.Response{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return resp, true, nil
}

// Put implements gateway.Store.
func (s *SQLite) Put(ctx context.Context, key gateway.Key, resp gateway.Response) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO responses (content_hash, day, block, response, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (content_hash, day, block) DO UPDATE SET
			response = excluded.response,
			created_at = excluded.created_at
	`, key.Hash, int(key.Day), key.Block, string(raw), s.now().Unix())
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Len returns the number of cached responses.
func (s *SQLite) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM responses").Scan(&n); err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return n, nil
}

// Prune deletes responses stored before cutoff and reports how many went.
func (s *SQLite) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM responses WHERE created_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune responses: %w", err)
	}
	return res.RowsAffected()
}
