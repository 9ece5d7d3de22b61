// Package sqlitestore provides a SQLite-backed lottery store for single-host
// deployments that want transactional writes without a database server.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/susu3304/lotterybot/internal/lottery"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS lottery_activities (
	group_id TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Store persists lottery state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (or creates) the database file and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	sqlDB, err := sql.Open("sqlite", dsn(cleanPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// dsn builds a file: URI for path. The path is percent-escaped so that ? and #
// in directory or file names are not read as the query or fragment.
func dsn(path string) string {
	return "file:" + (&url.URL{Path: filepath.ToSlash(path)}).EscapedPath() +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save replaces every stored activity inside one transaction.
func (s *Store) Save(ctx context.Context, snap *lottery.Snapshot) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM lottery_activities`); err != nil {
		return fmt.Errorf("clear activities: %w", err)
	}
	now := time.Now().UTC().UnixMilli()
	for gid, act := range snap.Activities {
		payload, err := json.Marshal(act)
		if err != nil {
			return fmt.Errorf("encode activity %s: %w", gid, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO lottery_activities (group_id, payload, updated_at) VALUES (?, ?, ?)`,
			gid, string(payload), now,
		); err != nil {
			return fmt.Errorf("insert activity %s: %w", gid, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load reads every activity. An empty table yields lottery.ErrNoSnapshot.
func (s *Store) Load(ctx context.Context) (*lottery.Snapshot, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT group_id, payload FROM lottery_activities`)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	snap := &lottery.Snapshot{Activities: make(map[string]lottery.ActivitySnapshot)}
	for rows.Next() {
		var gid, payload string
		if err := rows.Scan(&gid, &payload); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		var act lottery.ActivitySnapshot
		if err := json.Unmarshal([]byte(payload), &act); err != nil {
			return nil, fmt.Errorf("decode activity %s: %w", gid, err)
		}
		snap.Activities[gid] = act
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	if len(snap.Activities) == 0 {
		return nil, lottery.ErrNoSnapshot
	}
	return snap, nil
}
