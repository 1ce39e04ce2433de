package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

const sampleYAML = `
logging:
  level: DEBUG
  console: true
clock:
  tick_interval: 500ms
  autosave_interval: 1m
time_cycle:
  winter:
    day_duration_seconds: 400
    night_duration_seconds: 800
status_bar:
  enabled: true
  format: "{date} | {season} | {weather} | {time}"
  show_progress_bar: true
events:
  catalog_path: ./events.yaml
host:
  rain_chance: 0.3
  thunder_chance: 0.1
effects:
  enabled: true
  winter:
    freeze_chance: 0.25
farming:
  out_of_season_growth_chance: 0.1
  crops:
    winter: [carrot]
    summer: [melon, wheat]
storage:
  driver: sqlite
  path: ./almanac.db
`

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	m := NewManager(writeTemp(t, "almanac.yaml", sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
	if d, err := cfg.TickInterval(); err != nil || d != 500*time.Millisecond {
		t.Fatalf("tick interval = %v, %v", d, err)
	}
	if cfg.TimeCycle.Winter.DayDurationSeconds != 400 {
		t.Fatalf("winter day = %v", cfg.TimeCycle.Winter.DayDurationSeconds)
	}
	if !cfg.TimeCycle.Summer.IsZero() {
		t.Fatal("summer should be zero (falls back to default)")
	}
	if got := cfg.Farming.Crops["summer"]; len(got) != 2 || got[0] != "melon" {
		t.Fatalf("summer crops = %v", got)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	m := NewManager(writeTemp(t, "bad.yaml", "clock:\n  tick_intervall: 1s\n"))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestDefaultsWhenOmitted(t *testing.T) {
	t.Parallel()
	m := NewManager(writeTemp(t, "min.yaml", "logging:\n  console: true\n"))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d, _ := cfg.TickInterval(); d != time.Second {
		t.Fatalf("default tick interval = %v", d)
	}
	if d, _ := cfg.AutosaveInterval(); d != 5*time.Minute {
		t.Fatalf("default autosave interval = %v", d)
	}
	if d, _ := cfg.FrameInterval(); d != 50*time.Millisecond {
		t.Fatalf("default frame interval = %v", d)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"empty ok", func(c *Config) {}, false},
		{"bad duration", func(c *Config) { c.Clock.TickInterval = "soon" }, true},
		{"negative cycle", func(c *Config) { c.TimeCycle.Spring.DayDurationSeconds = -1 }, true},
		{"chance above one", func(c *Config) { c.Host.RainChance = 1.5 }, true},
		{"telegram without token", func(c *Config) { c.Telegram.Enabled = true }, true},
		{"telegram with token", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.Token = "123:abc"
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribePublishDropsOldest(t *testing.T) {
	t.Parallel()
	m := NewManager("unused")
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	a, b := &Config{}, &Config{}
	m.publish(a)
	m.publish(b)
	select {
	case got := <-ch:
		if got != b {
			t.Fatal("expected latest config after overflow")
		}
	default:
		t.Fatal("expected a delivered config")
	}
}
