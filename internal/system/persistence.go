package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	coresys "github.com/tileworld/engine/internal/core/system"
	"github.com/tileworld/engine/internal/persist"
	"github.com/tileworld/engine/internal/world"
)

// PersistenceSystem periodically snapshots the world into the store. A world
// whose snapshot digest did not change since the last save is skipped.
// Phase 5 (Persist).
type PersistenceSystem struct {
	world      *world.World
	store      persist.Store
	log        *zap.Logger
	interval   time.Duration
	keep       int
	elapsed    time.Duration
	lastDigest string
	saves      int
}

func NewPersistenceSystem(w *world.World, store persist.Store, log *zap.Logger, interval time.Duration, keep int) *PersistenceSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &PersistenceSystem{
		world:    w,
		store:    store,
		log:      log,
		interval: interval,
		keep:     keep,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(dt time.Duration) {
	if s.store == nil || s.interval <= 0 {
		return
	}
	s.elapsed += dt
	if s.elapsed < s.interval {
		return
	}
	s.elapsed = 0

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.Save(ctx); err != nil {
		s.log.Error("autosave failed", zap.String("level", s.world.Level()), zap.Error(err))
	}
}

// Remember records the digest of a snapshot already in the store, so an
// unchanged world is not saved again.
func (s *PersistenceSystem) Remember(digest string) { s.lastDigest = digest }

// Save stores a snapshot now unless it matches the last one saved. Called
// on shutdown as well.
func (s *PersistenceSystem) Save(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	lvl := s.world.Snapshot()
	payload, err := persist.Encode(lvl)
	if err != nil {
		return false, err
	}
	if persist.Digest(payload) == s.lastDigest {
		return false, nil
	}
	meta, err := s.store.Save(ctx, lvl)
	if err != nil {
		return false, err
	}
	s.lastDigest = meta.Digest
	s.saves++
	s.log.Info("world saved",
		zap.String("level", meta.Level),
		zap.Int64("id", meta.ID),
		zap.Int("sprites", meta.Sprites),
		zap.String("digest", meta.Digest[:12]),
	)
	if s.keep > 0 {
		n, err := s.store.Prune(ctx, meta.Level, s.keep)
		if err != nil {
			return true, err
		}
		if n > 0 {
			s.log.Debug("snapshots pruned", zap.String("level", meta.Level), zap.Int64("count", n))
		}
	}
	return true, nil
}

// Saves returns the number of snapshots written.
func (s *PersistenceSystem) Saves() int { return s.saves }
