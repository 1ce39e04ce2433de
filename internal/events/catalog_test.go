package events

import (
	"fmt"
	"testing"

	"almanac/internal/calendar"
	logx "almanac/pkg/logx"
)

const sampleCatalog = `
events:
  - id: midwinter
    name: Midwinter Festival
    type: annual
    day: 21
    month: 12
    duration_days: 3
    start_commands:
      - say The Midwinter Festival begins!
    end_commands:
      - say The festival is over.
  - id: founding
    type: fixed_date
    day: 1
    month: 6
    year: 5
  - id: harvest_storm
    type: random
    seasons: [autumn]
    chance: 25
    duration_days: 1
  - id: wandering_merchant
    type: random
    chance: 50
  - id: broken_month
    type: annual
    day: 10
    month: 13
  - id: broken_chance
    type: random
    chance: 120
  - id: midwinter
    type: annual
    day: 1
    month: 1
`

func TestParseCatalogSkipsMalformed(t *testing.T) {
	t.Parallel()
	cat, err := ParseCatalog([]byte(sampleCatalog), logx.Nop())
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	if cat.Len() != 4 {
		t.Fatalf("usable events = %d, want 4", cat.Len())
	}
	// id order
	defs := cat.Definitions()
	want := []string{"founding", "harvest_storm", "midwinter", "wandering_merchant"}
	for i, id := range want {
		if defs[i].ID != id {
			t.Fatalf("defs[%d] = %q, want %q", i, defs[i].ID, id)
		}
	}
	mid, ok := cat.Get("midwinter")
	if !ok || mid.Day != 21 {
		t.Fatal("duplicate id should keep the first definition")
	}
	if mid.DurationDays != 3 || mid.Name != "Midwinter Festival" {
		t.Fatalf("midwinter parsed wrong: %+v", mid)
	}
	if hs, _ := cat.Get("harvest_storm"); !hs.Seasons[calendar.Autumn] || hs.ChancePercent != 25 {
		t.Fatalf("harvest_storm parsed wrong: %+v", hs)
	}
	if wm, _ := cat.Get("wandering_merchant"); len(wm.Seasons) != 0 {
		t.Fatalf("no seasons listed should stay empty, got %v", wm.Seasons)
	}
}

func TestRandomChanceBounds(t *testing.T) {
	t.Parallel()
	for chance, ok := range map[int]bool{1: true, 100: true, 0: false, -5: false, 101: false} {
		raw := fmt.Sprintf("events: [{id: a, type: random, chance: %d}]", chance)
		cat, err := ParseCatalog([]byte(raw), logx.Nop())
		if err != nil {
			t.Fatalf("chance %d: %v", chance, err)
		}
		if got := cat.Len() == 1; got != ok {
			t.Fatalf("chance %d: usable = %v, want %v", chance, got, ok)
		}
	}
}

func TestParseCatalogBadYAML(t *testing.T) {
	t.Parallel()
	if _, err := ParseCatalog([]byte("events: [::"), logx.Nop()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDefinitionMatches(t *testing.T) {
	t.Parallel()
	cat, err := ParseCatalog([]byte(sampleCatalog), logx.Nop())
	if err != nil {
		t.Fatal(err)
	}

	mid, _ := cat.Get("midwinter")
	if !mid.Matches(calendar.Date{Day: 21, Month: 12, Year: 7}) {
		t.Fatal("annual should match any year")
	}
	if mid.Matches(calendar.Date{Day: 22, Month: 12, Year: 7}) {
		t.Fatal("annual should not match other days")
	}

	fd, _ := cat.Get("founding")
	if !fd.Matches(calendar.Date{Day: 1, Month: 6, Year: 5}) {
		t.Fatal("fixed_date should match its exact date")
	}
	if fd.Matches(calendar.Date{Day: 1, Month: 6, Year: 6}) {
		t.Fatal("fixed_date must not match a different year")
	}

	hs, _ := cat.Get("harvest_storm")
	if !hs.Matches(calendar.Date{Day: 3, Month: 10, Year: 1}) {
		t.Fatal("random should match its season")
	}
	if hs.Matches(calendar.Date{Day: 3, Month: 4, Year: 1}) {
		t.Fatal("random must not match out of season")
	}

	// An empty season set is eligible in every season.
	wm, _ := cat.Get("wandering_merchant")
	for _, month := range []int{1, 4, 7, 10} {
		if !wm.Matches(calendar.Date{Day: 3, Month: month, Year: 1}) {
			t.Fatalf("empty season set should match month %d", month)
		}
	}
}

func TestValidateDurations(t *testing.T) {
	t.Parallel()
	for raw, ok := range map[string]bool{
		`{events: [{id: a, type: annual, day: 1, month: 1, duration_days: -1}]}`: true,
		`{events: [{id: a, type: annual, day: 1, month: 1}]}`:                    true,
		`{events: [{id: a, type: annual, day: 1, month: 1, duration_days: 0}]}`:  false,
		`{events: [{id: a, type: annual, day: 1, month: 1, duration_days: -2}]}`: false,
	} {
		cat, err := ParseCatalog([]byte(raw), logx.Nop())
		if err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if got := cat.Len() == 1; got != ok {
			t.Fatalf("%s: usable = %v, want %v", raw, got, ok)
		}
	}
	cat, _ := ParseCatalog([]byte(`{events: [{id: a, type: annual, day: 1, month: 1}]}`), logx.Nop())
	if d, _ := cat.Get("a"); d.DurationDays != 1 {
		t.Fatalf("default duration = %d, want 1", d.DurationDays)
	}
}
