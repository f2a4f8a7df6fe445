package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/tileworld/engine/internal/data"
)

// SQLiteStore stores world snapshots in a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string, log *zap.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	if err := runSQLiteMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, lvl *data.Level) (SnapshotMeta, error) {
	payload, meta, err := encodeMeta(lvl)
	if err != nil {
		return SnapshotMeta{}, err
	}
	meta.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO world_snapshots (level, digest, sprite_count, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		meta.Level, meta.Digest, meta.Sprites, payload, meta.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return SnapshotMeta{}, fmt.Errorf("save snapshot %s: %w", lvl.Name, err)
	}
	if meta.ID, err = res.LastInsertId(); err != nil {
		return SnapshotMeta{}, fmt.Errorf("save snapshot %s: %w", lvl.Name, err)
	}
	return meta, nil
}

func (s *SQLiteStore) Latest(ctx context.Context, level string) (*data.Level, SnapshotMeta, error) {
	var meta SnapshotMeta
	var payload []byte
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, level, digest, sprite_count, created_at, payload
		 FROM world_snapshots WHERE level = ?
		 ORDER BY id DESC LIMIT 1`, level,
	).Scan(&meta.ID, &meta.Level, &meta.Digest, &meta.Sprites, &created, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, SnapshotMeta{}, fmt.Errorf("level %s: %w", level, ErrNotFound)
	}
	if err != nil {
		return nil, SnapshotMeta{}, fmt.Errorf("load snapshot %s: %w", level, err)
	}
	meta.CreatedAt = time.UnixMilli(created).UTC()
	lvl, err := Decode(payload)
	if err != nil {
		return nil, SnapshotMeta{}, err
	}
	return lvl, meta, nil
}

func (s *SQLiteStore) List(ctx context.Context, level string) ([]SnapshotMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, level, digest, sprite_count, created_at
		 FROM world_snapshots WHERE level = ?
		 ORDER BY id DESC`, level)
	if err != nil {
		return nil, fmt.Errorf("list snapshots %s: %w", level, err)
	}
	defer rows.Close()

	var out []SnapshotMeta
	for rows.Next() {
		var m SnapshotMeta
		var created int64
		if err := rows.Scan(&m.ID, &m.Level, &m.Digest, &m.Sprites, &created); err != nil {
			return nil, fmt.Errorf("list snapshots %s: %w", level, err)
		}
		m.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Prune(ctx context.Context, level string, keep int) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("prune begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM world_snapshots
		 WHERE level = ? AND id NOT IN (
		     SELECT id FROM world_snapshots WHERE level = ? ORDER BY id DESC LIMIT ?)`,
		level, level, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots %s: %w", level, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("prune commit: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
