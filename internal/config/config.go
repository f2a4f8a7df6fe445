package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	World      WorldConfig      `toml:"world"`
	Simulation SimulationConfig `toml:"simulation"`
	Data       DataConfig       `toml:"data"`
	Database   DatabaseConfig   `toml:"database"`
	Logging    LoggingConfig    `toml:"logging"`
}

type WorldConfig struct {
	Level      string  `toml:"level"` // level YAML; empty starts an empty world
	TileWidth  float64 `toml:"tile_width"`
	TileHeight float64 `toml:"tile_height"`
	Width      int     `toml:"width"`  // in tiles, overrides the level when > 0
	Height     int     `toml:"height"` // in tiles, overrides the level when > 0
	ViewWidth  int     `toml:"view_width"`  // viewport, in tiles
	ViewHeight int     `toml:"view_height"` // viewport, in tiles
}

type SimulationConfig struct {
	TickRate         time.Duration `toml:"tick_rate"`
	AutosaveInterval time.Duration `toml:"autosave_interval"` // 0 disables autosave
	Strict           bool          `toml:"strict"`            // panic on invariant violations
	Speed            float64       `toml:"speed"`             // simulated seconds per real second
	Input            string        `toml:"input"`             // scripted input YAML, optional
	MaxTicks         int           `toml:"max_ticks"`         // stop after this many ticks, 0 runs forever
	RestoreOnStart   bool          `toml:"restore_on_start"`
}

type DataConfig struct {
	Types   string `toml:"types"`   // sprite type table; empty uses the built-in table
	Scripts string `toml:"scripts"` // directory of *.lua hit policies
}

type DatabaseConfig struct {
	Driver          string        `toml:"driver"` // "none", "postgres" or "sqlite"
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	KeepSnapshots   int           `toml:"keep_snapshots"` // older snapshots are pruned, 0 keeps all
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaults()
}

func (c *Config) validate() error {
	if c.Simulation.TickRate <= 0 {
		return fmt.Errorf("simulation.tick_rate must be positive, got %s", c.Simulation.TickRate)
	}
	if c.Simulation.Speed <= 0 {
		return fmt.Errorf("simulation.speed must be positive, got %g", c.Simulation.Speed)
	}
	switch c.Database.Driver {
	case "", "none", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		World: WorldConfig{
			TileWidth:  32,
			TileHeight: 32,
			ViewWidth:  20,
			ViewHeight: 15,
		},
		Simulation: SimulationConfig{
			TickRate:         16 * time.Millisecond,
			AutosaveInterval: 30 * time.Second,
			Speed:            1.0,
		},
		Database: DatabaseConfig{
			Driver:          "none",
			DSN:             "tileworld.db",
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			KeepSnapshots:   20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
