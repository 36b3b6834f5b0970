package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"
	"time"

	"navalwar/internal/domain"
)

type GameConfig struct {
	TurnDurationSeconds int `json:"turn_duration_seconds"`
	BankMinutes         int `json:"bank_minutes"`
	ShortPauseSeconds   int `json:"short_pause_seconds"`
	LongPauseSeconds    int `json:"long_pause_seconds"`
	// SetupMinutes bounds the placement phase; unready players get an automatic setup once it passes. 0 disables it.
	SetupMinutes int `json:"setup_minutes"`
	TickRate     int `json:"tick_rate"`
	// EmptyMatchSeconds is how long a Nakama match may run without connections before it is closed,
	// when nobody took a seat or setup has no deadline.
	EmptyMatchSeconds int `json:"empty_match_seconds"`
	// TicketSecret signs the seat tickets of the standalone server.
	TicketSecret     string `json:"ticket_secret"`
	TicketTTLMinutes int    `json:"ticket_ttl_minutes"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// Default returns the standard configuration.
func Default() GameConfig {
	return GameConfig{
		TurnDurationSeconds: 30,
		BankMinutes:         15,
		ShortPauseSeconds:   60,
		LongPauseSeconds:    180,
		SetupMinutes:        15,
		TickRate:            1,
		EmptyMatchSeconds:   120,
		TicketTTLMinutes:    120,
	}
}

// Parse decodes a JSON config on top of the defaults.
func Parse(data []byte) (*GameConfig, error) {
	c := Default()
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadGameConfig loads the game configuration from the given path. A missing file yields the defaults.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			d := Default()
			cfg = &d
			return
		}
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}
		cfg, loadErr = Parse(data)
	})
	return loadErr
}

// GetGameConfig returns the global game configuration, or the defaults if none was loaded.
func GetGameConfig() *GameConfig {
	if cfg == nil {
		d := Default()
		return &d
	}
	return cfg
}

// Validate rejects settings the match loop cannot run with.
func (c *GameConfig) Validate() error {
	switch {
	case c.TurnDurationSeconds <= 0:
		return fmt.Errorf("turn_duration_seconds must be positive, got %d", c.TurnDurationSeconds)
	case c.BankMinutes < 0:
		return fmt.Errorf("bank_minutes must not be negative, got %d", c.BankMinutes)
	case c.ShortPauseSeconds <= 0 || c.LongPauseSeconds <= 0:
		return fmt.Errorf("pause lengths must be positive")
	case c.SetupMinutes < 0:
		return fmt.Errorf("setup_minutes must not be negative, got %d", c.SetupMinutes)
	case c.TickRate < 1:
		return fmt.Errorf("tick_rate must be at least 1, got %d", c.TickRate)
	case c.EmptyMatchSeconds < 1:
		return fmt.Errorf("empty_match_seconds must be at least 1, got %d", c.EmptyMatchSeconds)
	}
	return nil
}

// ApplyEnv overrides settings from a flat key/value environment, as Nakama exposes its
// runtime env. Keys are the JSON names prefixed with "naval_".
func (c *GameConfig) ApplyEnv(env map[string]string) error {
	ints := map[string]*int{
		"naval_turn_duration_seconds": &c.TurnDurationSeconds,
		"naval_bank_minutes":          &c.BankMinutes,
		"naval_short_pause_seconds":   &c.ShortPauseSeconds,
		"naval_long_pause_seconds":    &c.LongPauseSeconds,
		"naval_setup_minutes":         &c.SetupMinutes,
		"naval_tick_rate":             &c.TickRate,
		"naval_empty_match_seconds":   &c.EmptyMatchSeconds,
		"naval_ticket_ttl_minutes":    &c.TicketTTLMinutes,
	}
	for key, dst := range ints {
		raw, ok := env[key]
		if !ok || raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = n
	}
	if s, ok := env["naval_ticket_secret"]; ok && s != "" {
		c.TicketSecret = s
	}
	return c.Validate()
}

// ClockSettings converts the time control into the engine's form.
func (c *GameConfig) ClockSettings() domain.ClockSettings {
	return domain.ClockSettings{
		TurnAllowance: time.Duration(c.TurnDurationSeconds) * time.Second,
		Bank:          time.Duration(c.BankMinutes) * time.Minute,
		ShortPause:    time.Duration(c.ShortPauseSeconds) * time.Second,
		LongPause:     time.Duration(c.LongPauseSeconds) * time.Second,
		SetupWindow:   time.Duration(c.SetupMinutes) * time.Minute,
	}
}

// TickInterval is the wall time between two ticks of the match loop.
func (c *GameConfig) TickInterval() time.Duration {
	if c.TickRate < 1 {
		return time.Second
	}
	return time.Second / time.Duration(c.TickRate)
}

// EmptyMatchTicks converts EmptyMatchSeconds into match loop ticks.
func (c *GameConfig) EmptyMatchTicks() int64 {
	return int64(c.EmptyMatchSeconds) * int64(c.TickRate)
}

// TicketTTL is how long a seat ticket stays valid.
func (c *GameConfig) TicketTTL() time.Duration {
	return time.Duration(c.TicketTTLMinutes) * time.Minute
}
