package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Telegram TelegramConfig `json:"telegram,omitempty"`

	Clock     ClockConfig     `json:"clock"`
	TimeCycle TimeCycleConfig `json:"time_cycle"`
	StatusBar StatusBarConfig `json:"status_bar"`
	Events    EventsConfig    `json:"events"`
	Host      HostConfig      `json:"host"`
	Effects   EffectsConfig   `json:"effects"`
	Farming   FarmingConfig   `json:"farming"`

	Storage *StorageConfig `json:"storage,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level"`
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// TelegramConfig controls the operator command surface. The whole section is
// optional; with Enabled=false (or an empty token) the daemon runs headless.
type TelegramConfig struct {
	Enabled      bool    `json:"enabled"`
	Token        string  `json:"token,omitempty"`
	OwnerUserIDs []int64 `json:"owner_user_ids,omitempty"`

	// PollTimeout is a Go duration string (e.g. "10s"). Defaults to 10s.
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// ClockConfig controls the driver loop.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - tick_interval: "1s"
//   - autosave_interval: "5m"
type ClockConfig struct {
	TickInterval     string `json:"tick_interval,omitempty"`
	AutosaveInterval string `json:"autosave_interval,omitempty"`
}

// TimeCycleConfig assigns per-season day/night lengths in real seconds.
// A season block left at zero falls back to DefaultSeasonCycle.
type TimeCycleConfig struct {
	Winter SeasonCycle `json:"winter,omitempty"`
	Spring SeasonCycle `json:"spring,omitempty"`
	Summer SeasonCycle `json:"summer,omitempty"`
	Autumn SeasonCycle `json:"autumn,omitempty"`
}

type SeasonCycle struct {
	DayDurationSeconds   float64 `json:"day_duration_seconds,omitempty"`
	NightDurationSeconds float64 `json:"night_duration_seconds,omitempty"`
}

// DefaultSeasonCycle matches the stock 20-minute full cycle: 650 seconds of
// daylight and 550 of night.
var DefaultSeasonCycle = SeasonCycle{DayDurationSeconds: 650, NightDurationSeconds: 550}

func (c SeasonCycle) IsZero() bool {
	return c.DayDurationSeconds == 0 && c.NightDurationSeconds == 0
}

type StatusBarConfig struct {
	Enabled         bool   `json:"enabled"`
	Format          string `json:"format,omitempty"`
	ShowProgressBar bool   `json:"show_progress_bar,omitempty"`
}

type EventsConfig struct {
	// CatalogPath points at the YAML event catalog. Empty disables events.
	CatalogPath string `json:"catalog_path,omitempty"`
}

// HostConfig controls the simulated world.
type HostConfig struct {
	// FrameInterval is a Go duration string. Defaults to "50ms".
	FrameInterval string `json:"frame_interval,omitempty"`

	// Weather transition odds evaluated once per in-world day.
	RainChance    float64 `json:"rain_chance,omitempty"`
	ThunderChance float64 `json:"thunder_chance,omitempty"`

	TerrainWidth  int `json:"terrain_width,omitempty"`
	TerrainHeight int `json:"terrain_height,omitempty"`
}

type EffectsConfig struct {
	Enabled    bool          `json:"enabled"`
	MildBiomes []string      `json:"mild_biomes,omitempty"`
	RatePerSec int           `json:"rate_per_sec,omitempty"`
	Winter     WinterEffects `json:"winter,omitempty"`
	Spring     SpringEffects `json:"spring,omitempty"`
}

type WinterEffects struct {
	FreezeChance float64 `json:"freeze_chance,omitempty"`
}

type SpringEffects struct {
	ThawChance        float64  `json:"thaw_chance,omitempty"`
	FlowerSpawnChance float64  `json:"flower_spawn_chance,omitempty"`
	SpawnableFlowers  []string `json:"spawnable_flowers,omitempty"`
}

type FarmingConfig struct {
	OutOfSeasonGrowthChance float64 `json:"out_of_season_growth_chance,omitempty"`

	// Crops maps a season key ("winter", "spring", ...) to the crop kinds
	// that grow normally in that season.
	Crops map[string][]string `json:"crops,omitempty"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./almanac.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)

	// LegacyDataPath points at a pre-sqlite YAML state file. When set and the
	// database is empty, its contents are imported once on first boot.
	LegacyDataPath string `json:"legacy_data_path,omitempty"`
}

// Validate checks cross-field constraints that the strict decoder cannot.
// It is the hook installed on the watcher, so a bad edit never reaches
// running components.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if _, err := c.TickInterval(); err != nil {
		return err
	}
	if _, err := c.AutosaveInterval(); err != nil {
		return err
	}
	if _, err := c.FrameInterval(); err != nil {
		return err
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return fmt.Errorf("telegram.enabled requires telegram.token")
	}
	for _, sc := range []struct {
		name  string
		cycle SeasonCycle
	}{
		{"winter", c.TimeCycle.Winter},
		{"spring", c.TimeCycle.Spring},
		{"summer", c.TimeCycle.Summer},
		{"autumn", c.TimeCycle.Autumn},
	} {
		if sc.cycle.DayDurationSeconds < 0 || sc.cycle.NightDurationSeconds < 0 {
			return fmt.Errorf("time_cycle.%s: durations must be >= 0", sc.name)
		}
	}
	for _, ch := range []struct {
		name string
		v    float64
	}{
		{"host.rain_chance", c.Host.RainChance},
		{"host.thunder_chance", c.Host.ThunderChance},
		{"effects.winter.freeze_chance", c.Effects.Winter.FreezeChance},
		{"effects.spring.thaw_chance", c.Effects.Spring.ThawChance},
		{"effects.spring.flower_spawn_chance", c.Effects.Spring.FlowerSpawnChance},
		{"farming.out_of_season_growth_chance", c.Farming.OutOfSeasonGrowthChance},
	} {
		if ch.v < 0 || ch.v > 1 {
			return fmt.Errorf("%s: chance %v out of range 0..1", ch.name, ch.v)
		}
	}
	if s := c.Storage; s != nil {
		if _, err := duration("storage.busy_timeout", s.BusyTimeout, 0); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) TickInterval() (time.Duration, error) {
	return duration("clock.tick_interval", c.Clock.TickInterval, time.Second)
}

func (c *Config) AutosaveInterval() (time.Duration, error) {
	return duration("clock.autosave_interval", c.Clock.AutosaveInterval, 5*time.Minute)
}

func (c *Config) FrameInterval() (time.Duration, error) {
	return duration("host.frame_interval", c.Host.FrameInterval, 50*time.Millisecond)
}

func (c *Config) TelegramPollTimeout() (time.Duration, error) {
	return duration("telegram.poll_timeout", c.Telegram.PollTimeout, 10*time.Second)
}

// duration reads an optional Go duration string. Empty or zero falls back to
// def; negative values are rejected.
func duration(name, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", name, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", name)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
