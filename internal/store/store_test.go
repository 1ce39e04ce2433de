package store

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"almanac/internal/calendar"
	"almanac/internal/config"
	"almanac/internal/events"
	logx "almanac/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(&config.StorageConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "almanac.db"),
		BusyTimeout: "2s",
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, cfg := range []*config.StorageConfig{nil, {Driver: ""}, {Driver: "none"}} {
		st, err := Open(cfg, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%+v) = %v, %v", cfg, st, err)
		}
	}
	if _, err := Open(&config.StorageConfig{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver should error")
	}
}

func TestLoadStateEmpty(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	got, err := st.LoadState(context.Background())
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil state, got %+v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	in := State{
		Date:            calendar.Date{Day: 29, Month: 2, Year: 2024},
		HostTicks:       7*24000 + 13500,
		TickAccumulator: 0.625,
		Active: &events.Active{
			ID:            "midwinter",
			Name:          "Midwinter Festival",
			StartedOn:     calendar.Date{Day: 28, Month: 2, Year: 2024},
			DaysRemaining: 2,
			EndCommands:   []string{"say The festival is over.", "weather clear"},
		},
	}
	if err := st.SaveState(ctx, in); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	got, err := st.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if got == nil {
		t.Fatal("expected state")
	}
	if got.Date != in.Date || got.HostTicks != in.HostTicks || got.TickAccumulator != in.TickAccumulator {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Active == nil || !reflect.DeepEqual(got.Active, in.Active) {
		t.Fatalf("active mismatch: %+v", got.Active)
	}
	if got.SavedAt.IsZero() {
		t.Fatal("saved_at not set")
	}

	// Second save overwrites the single row and can clear the event.
	in.Active = nil
	in.Date = in.Date.Next()
	if err := st.SaveState(ctx, in); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	got, err = st.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if got.Active != nil {
		t.Fatalf("active should be cleared, got %+v", got.Active)
	}
	if got.Date != (calendar.Date{Day: 1, Month: 3, Year: 2024}) {
		t.Fatalf("date = %v", got.Date)
	}
}

func TestAppendDay(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	for i := 0; i < 3; i++ {
		if err := st.AppendDay(context.Background(), calendar.Date{Day: i + 1, Month: 1, Year: 1}); err != nil {
			t.Fatalf("AppendDay: %v", err)
		}
	}
}

func TestImportLegacy(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	if got, err := ImportLegacy(filepath.Join(dir, "missing.yml"), logx.Nop()); err != nil || got != nil {
		t.Fatalf("missing file: %v, %v", got, err)
	}

	path := filepath.Join(dir, "data.yml")
	body := `
day: 12
month: 10
year: 7
total_ticks: 180000
active_event:
  id: harvest_storm
  days_remaining: -1
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ImportLegacy(path, logx.Nop())
	if err != nil {
		t.Fatalf("ImportLegacy: %v", err)
	}
	if got.Date != (calendar.Date{Day: 12, Month: 10, Year: 7}) || got.HostTicks != 180000 {
		t.Fatalf("state = %+v", got)
	}
	if got.Active == nil || got.Active.ID != "harvest_storm" || got.Active.DaysRemaining != -1 {
		t.Fatalf("active = %+v", got.Active)
	}
	if got.Active.Name != "harvest_storm" {
		t.Fatal("missing name should default to id")
	}

	bad := filepath.Join(dir, "bad.yml")
	if err := os.WriteFile(bad, []byte("day: 0\nmonth: 1\nyear: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ImportLegacy(bad, logx.Nop()); err == nil {
		t.Fatal("invalid date should error")
	}
}
