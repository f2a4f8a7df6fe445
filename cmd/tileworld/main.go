package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tileworld/engine/internal/catalog"
	"github.com/tileworld/engine/internal/character"
	"github.com/tileworld/engine/internal/config"
	"github.com/tileworld/engine/internal/core/event"
	coresys "github.com/tileworld/engine/internal/core/system"
	"github.com/tileworld/engine/internal/data"
	"github.com/tileworld/engine/internal/input"
	"github.com/tileworld/engine/internal/persist"
	"github.com/tileworld/engine/internal/scripting"
	"github.com/tileworld/engine/internal/sprite"
	"github.com/tileworld/engine/internal/system"
	"github.com/tileworld/engine/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

// ── Simulation ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/tileworld.toml"
	if p := os.Getenv("TILEWORLD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Sprite types and hit policy scripts
	printSection("Data")
	table := data.DefaultTypes()
	if cfg.Data.Types != "" {
		if table, err = data.LoadTypeTable(cfg.Data.Types); err != nil {
			return fmt.Errorf("sprite types: %w", err)
		}
	}
	scripts, err := scripting.NewEngine(cfg.Data.Scripts, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer scripts.Close()
	registry, err := catalog.NewRegistry(table, scripts, log)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	printStat("sprite types", len(registry.Names()))

	// 4. Snapshot store
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	store, err := persist.Open(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if store != nil {
		defer store.Close()
		printOK(fmt.Sprintf("%s snapshot store ready", cfg.Database.Driver))
	}

	// 5. Level, optionally replaced by the latest stored snapshot
	lvl, err := loadLevel(cfg.World)
	if err != nil {
		return err
	}
	var digest string
	if cfg.Simulation.RestoreOnStart && store != nil {
		saved, meta, err := store.Latest(ctx, lvl.Name)
		switch {
		case errors.Is(err, persist.ErrNotFound):
		case err != nil:
			return fmt.Errorf("restore: %w", err)
		default:
			lvl, digest = saved, meta.Digest
			printOK(fmt.Sprintf("restored snapshot #%d of %s", meta.ID, meta.Level))
		}
	}

	bus := event.NewBus()
	w, err := world.FromLevel(lvl, registry, bus, log)
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}
	subscribe(bus, log)
	printStat("tiles", len(w.Tiles()))
	printStat("characters", len(w.Characters()))
	fmt.Println()

	// 6. Controller and input
	var script *input.Scripted
	var src input.Source
	if cfg.Simulation.Input != "" {
		if script, err = input.LoadScript(cfg.Simulation.Input); err != nil {
			return fmt.Errorf("input: %w", err)
		}
		src = script
	}
	ctrl := character.New(w, src, log)
	ctrl.Strict = cfg.Simulation.Strict
	if n := ctrl.Resume(); n > 0 {
		log.Debug("shell timers re-armed", zap.Int("count", n))
	}

	// 7. Systems
	persistSys := system.NewPersistenceSystem(w, store, log, cfg.Simulation.AutosaveInterval, cfg.Database.KeepSnapshots)
	persistSys.Remember(digest)
	vis := system.NewVisibilitySystem(w, logRenderer{log: log},
		float64(cfg.World.ViewWidth)*w.TileWidth(), float64(cfg.World.ViewHeight)*w.TileHeight())

	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(script))
	runner.Register(system.NewEventSystem(bus))
	runner.Register(system.NewTimerSystem(w))
	runner.Register(system.NewMotionSystem(ctrl))
	runner.Register(system.NewBoundarySystem(w, log))
	runner.Register(vis)
	runner.Register(persistSys)
	runner.Register(system.NewCleanupSystem(w))

	// 8. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	dt := time.Duration(float64(cfg.Simulation.TickRate) * cfg.Simulation.Speed)
	log.Info("simulation started",
		zap.String("level", w.Level()),
		zap.Duration("tick", cfg.Simulation.TickRate),
		zap.Duration("dt", dt),
	)

	for {
		select {
		case <-ticker.C:
			runner.Tick(dt)
			if cfg.Simulation.MaxTicks > 0 && runner.Ticks() >= uint64(cfg.Simulation.MaxTicks) {
				log.Info("tick limit reached", zap.Uint64("ticks", runner.Ticks()))
				return shutdown(persistSys, log)
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			return shutdown(persistSys, log)
		}
	}
}

func shutdown(p *system.PersistenceSystem, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := p.Save(ctx); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	log.Info("simulation stopped", zap.Int("saves", p.Saves()))
	return nil
}

// loadLevel reads the configured level or starts an empty one, applying the
// configured dimensions over the stored ones.
func loadLevel(cfg config.WorldConfig) (*data.Level, error) {
	lvl := &data.Level{Name: "untitled"}
	if cfg.Level != "" {
		var err error
		if lvl, err = data.LoadLevel(cfg.Level); err != nil {
			return nil, fmt.Errorf("level: %w", err)
		}
	}
	if lvl.TileWidth <= 0 {
		lvl.TileWidth = cfg.TileWidth
	}
	if lvl.TileHeight <= 0 {
		lvl.TileHeight = cfg.TileHeight
	}
	if cfg.Width > 0 {
		lvl.Width = cfg.Width
	}
	if cfg.Height > 0 {
		lvl.Height = cfg.Height
	}
	return lvl, nil
}

func subscribe(bus *event.Bus, log *zap.Logger) {
	event.Subscribe(bus, func(e event.SpriteRemoved) {
		log.Debug("sprite removed", zap.String("id", e.ID), zap.String("reason", string(e.Reason)))
	})
	event.Subscribe(bus, func(e event.KnockedOut) {
		log.Info("knocked out", zap.String("id", e.ID), zap.String("by", e.By))
	})
	event.Subscribe(bus, func(e event.TileBumped) {
		log.Debug("tile bumped", zap.String("tile", e.TileID), zap.String("by", e.ByID))
	})
}

// logRenderer stands in for a real renderer in the headless driver.
type logRenderer struct {
	log *zap.Logger
}

func (r logRenderer) Draw(f system.Frame) {
	if !f.Background {
		return
	}
	r.log.Debug("background redraw",
		zap.Float64("x", f.X),
		zap.Int("sprites", len(f.Sprites)),
		zap.Int("characters", countKind(f.Sprites, sprite.KindCharacter)),
	)
}

func countKind(list []*sprite.Sprite, k sprite.Kind) int {
	n := 0
	for _, s := range list {
		if s.Kind() == k {
			n++
		}
	}
	return n
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
