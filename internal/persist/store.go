package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tileworld/engine/internal/config"
	"github.com/tileworld/engine/internal/data"
)

// ErrNotFound is returned when a level has no stored snapshot.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotMeta describes one stored snapshot.
type SnapshotMeta struct {
	ID        int64
	Level     string
	Digest    string
	Sprites   int
	CreatedAt time.Time
}

// Store saves and loads world snapshots.
type Store interface {
	Save(ctx context.Context, lvl *data.Level) (SnapshotMeta, error)
	// Latest returns the newest snapshot of a level, or ErrNotFound.
	Latest(ctx context.Context, level string) (*data.Level, SnapshotMeta, error)
	List(ctx context.Context, level string) ([]SnapshotMeta, error)
	// Prune keeps the newest keep snapshots of a level and returns how many were deleted.
	Prune(ctx context.Context, level string, keep int) (int64, error)
	Close() error
}

// Open connects the configured backend and applies its migrations. The
// "none" driver returns a nil store.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "postgres":
		db, err := NewDB(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		if err := RunMigrations(ctx, db.Pool); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("database connected", zap.String("driver", cfg.Driver))
		return NewSnapshotRepo(db), nil
	case "sqlite":
		s, err := OpenSQLite(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		log.Info("database connected", zap.String("driver", cfg.Driver), zap.String("path", cfg.DSN))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// encodeMeta encodes a snapshot and fills in the metadata computed from it.
func encodeMeta(lvl *data.Level) ([]byte, SnapshotMeta, error) {
	payload, err := Encode(lvl)
	if err != nil {
		return nil, SnapshotMeta{}, err
	}
	return payload, SnapshotMeta{
		Level:   lvl.Name,
		Digest:  Digest(payload),
		Sprites: len(lvl.Sprites),
	}, nil
}
