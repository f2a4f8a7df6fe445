package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tileworld/engine/internal/data"
)

// SnapshotRepo stores world snapshots in PostgreSQL.
type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

func (r *SnapshotRepo) Save(ctx context.Context, lvl *data.Level) (SnapshotMeta, error) {
	payload, meta, err := encodeMeta(lvl)
	if err != nil {
		return SnapshotMeta{}, err
	}
	err = r.db.Pool.QueryRow(ctx,
		`INSERT INTO world_snapshots (level, digest, sprite_count, payload)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		meta.Level, meta.Digest, meta.Sprites, payload,
	).Scan(&meta.ID, &meta.CreatedAt)
	if err != nil {
		return SnapshotMeta{}, fmt.Errorf("save snapshot %s: %w", lvl.Name, err)
	}
	return meta, nil
}

func (r *SnapshotRepo) Latest(ctx context.Context, level string) (*data.Level, SnapshotMeta, error) {
	var meta SnapshotMeta
	var payload []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, level, digest, sprite_count, created_at, payload
		 FROM world_snapshots WHERE level = $1
		 ORDER BY id DESC LIMIT 1`, level,
	).Scan(&meta.ID, &meta.Level, &meta.Digest, &meta.Sprites, &meta.CreatedAt, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, SnapshotMeta{}, fmt.Errorf("level %s: %w", level, ErrNotFound)
	}
	if err != nil {
		return nil, SnapshotMeta{}, fmt.Errorf("load snapshot %s: %w", level, err)
	}
	lvl, err := Decode(payload)
	if err != nil {
		return nil, SnapshotMeta{}, err
	}
	return lvl, meta, nil
}

func (r *SnapshotRepo) List(ctx context.Context, level string) ([]SnapshotMeta, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, level, digest, sprite_count, created_at
		 FROM world_snapshots WHERE level = $1
		 ORDER BY id DESC`, level)
	if err != nil {
		return nil, fmt.Errorf("list snapshots %s: %w", level, err)
	}
	defer rows.Close()

	var out []SnapshotMeta
	for rows.Next() {
		var m SnapshotMeta
		if err := rows.Scan(&m.ID, &m.Level, &m.Digest, &m.Sprites, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("list snapshots %s: %w", level, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep snapshots of a level in one transaction.
func (r *SnapshotRepo) Prune(ctx context.Context, level string, keep int) (int64, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("prune begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM world_snapshots
		 WHERE level = $1 AND id NOT IN (
		     SELECT id FROM world_snapshots WHERE level = $1 ORDER BY id DESC LIMIT $2)`,
		level, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots %s: %w", level, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("prune commit: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SnapshotRepo) Close() error {
	r.db.Close()
	return nil
}
