package main

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the full server configuration, loadable from a config file with
// environment variable overrides.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Game   GameConfig   `mapstructure:"game"`
}

// ServerConfig covers the HTTP/WebSocket surface.
type ServerConfig struct {
	Addr          string `mapstructure:"addr"`
	ClientDir     string `mapstructure:"client_dir"`
	DBPath        string `mapstructure:"db_path"`
	PublicURL     string `mapstructure:"public_url"` // join-link base for QR codes
	Debug         bool   `mapstructure:"debug"`
	MaxSessions   int    `mapstructure:"max_sessions"`
	MaxConnsPerIP int    `mapstructure:"max_conns_per_ip"`
	MaxTotalConns int    `mapstructure:"max_total_conns"`
}

// GameConfig covers the simulation. Tick rate is fixed-step: every session
// advances by exactly 1/TickRate seconds per tick.
type GameConfig struct {
	TickRate        int     `mapstructure:"tick_rate"`
	MaxPlayers      int     `mapstructure:"max_players"`
	MinPlayers      int     `mapstructure:"min_players"`
	GrabRadius      float64 `mapstructure:"grab_radius"`
	FlingWindow     int     `mapstructure:"fling_window"`      // ticks averaged into release velocity
	LethalSpeed     float64 `mapstructure:"lethal_speed"`      // body speed that kills on cursor contact
	ZoneRadius      float64 `mapstructure:"zone_radius"`       // control point radius
	ZoneHoldSeconds float64 `mapstructure:"zone_hold_seconds"` // solo hold time to win
	MaxCursorDelta  float64 `mapstructure:"max_cursor_delta"`  // per-message displacement clamp
}

// DefaultConfig returns the built-in defaults, also registered with viper so
// a partial config file only overrides what it names.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:          ":8080",
			ClientDir:     "client",
			DBPath:        "cursorarena.db",
			PublicURL:     "http://localhost:8080",
			MaxSessions:   100,
			MaxConnsPerIP: 5,
			MaxTotalConns: 1000,
		},
		Game: GameConfig{
			TickRate:        60,
			MaxPlayers:      16,
			MinPlayers:      2,
			GrabRadius:      0.25,
			FlingWindow:     3,
			LethalSpeed:     3.0,
			ZoneRadius:      1.0,
			ZoneHoldSeconds: 5.0,
			MaxCursorDelta:  2.0,
		},
	}
}

// LoadConfig reads the config file at path (optional) over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.client_dir", cfg.Server.ClientDir)
	v.SetDefault("server.db_path", cfg.Server.DBPath)
	v.SetDefault("server.public_url", cfg.Server.PublicURL)
	v.SetDefault("server.debug", cfg.Server.Debug)
	v.SetDefault("server.max_sessions", cfg.Server.MaxSessions)
	v.SetDefault("server.max_conns_per_ip", cfg.Server.MaxConnsPerIP)
	v.SetDefault("server.max_total_conns", cfg.Server.MaxTotalConns)
	v.SetDefault("game.tick_rate", cfg.Game.TickRate)
	v.SetDefault("game.max_players", cfg.Game.MaxPlayers)
	v.SetDefault("game.min_players", cfg.Game.MinPlayers)
	v.SetDefault("game.grab_radius", cfg.Game.GrabRadius)
	v.SetDefault("game.fling_window", cfg.Game.FlingWindow)
	v.SetDefault("game.lethal_speed", cfg.Game.LethalSpeed)
	v.SetDefault("game.zone_radius", cfg.Game.ZoneRadius)
	v.SetDefault("game.zone_hold_seconds", cfg.Game.ZoneHoldSeconds)
	v.SetDefault("game.max_cursor_delta", cfg.Game.MaxCursorDelta)
	v.SetEnvPrefix("cursorarena")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the simulation cannot run with.
func (c Config) Validate() error {
	if c.Game.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be positive, got %d", c.Game.TickRate)
	}
	if c.Game.MinPlayers < 2 {
		return fmt.Errorf("min_players must be at least 2, got %d", c.Game.MinPlayers)
	}
	if c.Game.FlingWindow < 1 {
		return fmt.Errorf("fling_window must be at least 1, got %d", c.Game.FlingWindow)
	}
	if c.Game.GrabRadius <= 0 {
		return fmt.Errorf("grab_radius must be positive, got %g", c.Game.GrabRadius)
	}
	return nil
}

// Dt returns the fixed simulation timestep.
func (c GameConfig) Dt() float64 { return 1.0 / float64(c.TickRate) }

// ZoneHoldTicks converts the hold duration into whole ticks.
func (c GameConfig) ZoneHoldTicks() uint64 {
	return uint64(c.ZoneHoldSeconds * float64(c.TickRate))
}
