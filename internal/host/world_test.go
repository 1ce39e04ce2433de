package host

import (
	"strings"
	"testing"

	logx "almanac/pkg/logx"
)

func newTestWorld(opts Options) *World {
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	return New(opts, logx.Nop())
}

func TestAdvanceAndTimeOfDay(t *testing.T) {
	t.Parallel()
	w := newTestWorld(Options{})
	w.AdvanceBy(13500)
	if got := w.TimeOfDay(); got != 13500 {
		t.Fatalf("TimeOfDay = %d", got)
	}
	w.AdvanceBy(DayTicks)
	if got := w.TimeOfDay(); got != 13500 {
		t.Fatalf("TimeOfDay after full day = %d", got)
	}
	if got := w.FullTime(); got != 13500+DayTicks {
		t.Fatalf("FullTime = %d", got)
	}
}

func TestSkipToDawn(t *testing.T) {
	t.Parallel()
	w := newTestWorld(Options{})
	if got := w.SkipToDawn(); got != 0 {
		t.Fatalf("skip at dawn = %d", got)
	}
	w.AdvanceBy(13000)
	if got := w.SkipToDawn(); got != 11000 {
		t.Fatalf("skipped = %d", got)
	}
	if got := w.TimeOfDay(); got != 0 {
		t.Fatalf("TimeOfDay after skip = %d", got)
	}
}

func TestNewDayWeatherRoll(t *testing.T) {
	t.Parallel()
	always := newTestWorld(Options{RainChance: 1, ThunderChance: 1})
	always.NewDay()
	if got := always.Weather(); got != Thunder {
		t.Fatalf("weather = %v, want thunder", got)
	}

	never := newTestWorld(Options{})
	never.SetWeather(Rain)
	never.NewDay()
	if got := never.Weather(); got != Clear {
		t.Fatalf("weather = %v, want clear", got)
	}
}

func TestCropGrowthHonorsPolicy(t *testing.T) {
	t.Parallel()
	w := newTestWorld(Options{})
	if !w.PlantCrop(0, 0, "wheat") || !w.PlantCrop(1, 0, "melon") {
		t.Fatal("plant failed")
	}
	w.SetGrowthPolicy(func(crop string) bool { return crop == "wheat" })
	w.NewDay()

	wheat, _ := w.Cell(0, 0)
	melon, _ := w.Cell(1, 0)
	if wheat.Growth != 1 {
		t.Fatalf("wheat growth = %d", wheat.Growth)
	}
	if melon.Growth != 0 {
		t.Fatalf("melon growth = %d", melon.Growth)
	}

	for i := 0; i < 20; i++ {
		w.NewDay()
	}
	wheat, _ = w.Cell(0, 0)
	if wheat.Growth != MaxGrowth {
		t.Fatalf("wheat growth capped at %d, got %d", MaxGrowth, wheat.Growth)
	}
}

func TestSubmitRunsOnFrame(t *testing.T) {
	t.Parallel()
	w := newTestWorld(Options{})
	ran := false
	if !w.Submit(func(w *World) { ran = true }) {
		t.Fatal("submit rejected")
	}
	if ran {
		t.Fatal("task ran before frame")
	}
	w.Frame()
	if !ran {
		t.Fatal("task did not run on frame")
	}
}

func TestDispatch(t *testing.T) {
	t.Parallel()
	w := newTestWorld(Options{})

	if err := w.Dispatch("say Winter has arrived"); err != nil {
		t.Fatalf("say: %v", err)
	}
	got := w.Announcements()
	if len(got) != 1 || !strings.Contains(got[0], "Winter has arrived") {
		t.Fatalf("announcements = %v", got)
	}

	if err := w.Dispatch("weather thunder"); err != nil {
		t.Fatalf("weather: %v", err)
	}
	if w.Weather() != Thunder {
		t.Fatal("weather not applied")
	}

	for _, bad := range []string{"", "weather sideways", "teleport 1 2", "weather"} {
		if err := w.Dispatch(bad); err == nil {
			t.Fatalf("Dispatch(%q) should fail", bad)
		}
	}
}

func TestTerrainHasBiomesAndWater(t *testing.T) {
	t.Parallel()
	w := newTestWorld(Options{Width: 10, Height: 8})
	var water, desert int
	for y := 0; y < 8; y++ {
		for x := 0; x < 10; x++ {
			c, ok := w.Cell(x, y)
			if !ok {
				t.Fatalf("missing cell %d,%d", x, y)
			}
			if c.Kind == Water {
				water++
			}
			if c.Biome == "desert" {
				desert++
			}
		}
	}
	if water == 0 || desert == 0 {
		t.Fatalf("terrain too uniform: water=%d desert=%d", water, desert)
	}
}
