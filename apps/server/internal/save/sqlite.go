package save

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the snapshot database at dbPath.
func NewSQLiteStore(dbPath string) (Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes writers; a single connection avoids
	// SQLITE_BUSY churn under concurrent autosaves.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS match_snapshots (
    match_id TEXT PRIMARY KEY,
    state BLOB NOT NULL,
    state_hash INTEGER NOT NULL,
    updated_at_ms INTEGER NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Save(ctx context.Context, matchID string, state []byte, stateHash uint64) error {
	if strings.TrimSpace(matchID) == "" {
		return errors.New("empty match id")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO match_snapshots (match_id, state, state_hash, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(match_id) DO UPDATE SET
    state = excluded.state,
    state_hash = excluded.state_hash,
    updated_at_ms = excluded.updated_at_ms
`, matchID, state, int64(stateHash), time.Now().UTC().UnixMilli())
	return err
}

func (s *sqliteStore) Load(ctx context.Context, matchID string) (*Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
SELECT state, state_hash, updated_at_ms
FROM match_snapshots
WHERE match_id = ?
`, matchID)
	return scanSnapshot(row, matchID)
}

func (s *sqliteStore) LoadAll(ctx context.Context) ([]*Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
SELECT match_id, state, state_hash, updated_at_ms
FROM match_snapshots
ORDER BY updated_at_ms
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		var hash int64
		var updatedAtMs int64
		if err := rows.Scan(&snap.MatchID, &snap.State, &hash, &updatedAtMs); err != nil {
			return nil, err
		}
		snap.StateHash = uint64(hash)
		snap.UpdatedAt = time.UnixMilli(updatedAtMs).UTC()
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Delete(ctx context.Context, matchID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `DELETE FROM match_snapshots WHERE match_id = ?`, matchID)
	return err
}

func scanSnapshot(row *sql.Row, matchID string) (*Snapshot, error) {
	snap := &Snapshot{MatchID: matchID}
	var hash int64
	var updatedAtMs int64
	err := row.Scan(&snap.State, &hash, &updatedAtMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	snap.StateHash = uint64(hash)
	snap.UpdatedAt = time.UnixMilli(updatedAtMs).UTC()
	return snap, nil
}
