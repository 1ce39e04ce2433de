// Package events loads the event catalog and runs the single-active-event
// scheduler: at most one calendar event is in progress at any time, and every
// start or end goes through the same command-dispatch path.
package events

import (
	"fmt"
	"os"
	"sort"
	"strings"

	yaml "go.yaml.in/yaml/v3"

	"almanac/internal/calendar"
	logx "almanac/pkg/logx"
)

type Kind int

const (
	FixedDate Kind = iota
	Annual
	Random
)

func (k Kind) String() string {
	switch k {
	case FixedDate:
		return "fixed_date"
	case Annual:
		return "annual"
	default:
		return "random"
	}
}

// Definition is a validated catalog entry.
type Definition struct {
	ID   string
	Name string
	Kind Kind

	// FixedDate uses Day/Month/Year; Annual uses Day/Month.
	Day   int
	Month int
	Year  int

	// Random uses Seasons and ChancePercent. An empty season set means the
	// event is eligible in every season.
	Seasons       map[calendar.Season]bool
	ChancePercent int

	// DurationDays counts calendar days including the start day; -1 keeps the
	// event running until a date override or forced end.
	DurationDays int

	StartCommands []string
	EndCommands   []string
}

type rawDefinition struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Type          string   `yaml:"type"`
	Day           int      `yaml:"day"`
	Month         int      `yaml:"month"`
	Year          int      `yaml:"year"`
	Seasons       []string `yaml:"seasons"`
	Chance        int      `yaml:"chance"`
	DurationDays  *int     `yaml:"duration_days"`
	StartCommands []string `yaml:"start_commands"`
	EndCommands   []string `yaml:"end_commands"`
}

type rawCatalog struct {
	Events []rawDefinition `yaml:"events"`
}

// Catalog is the set of usable event definitions, ordered by id so daily
// evaluation is deterministic.
type Catalog struct {
	defs []Definition
	byID map[string]*Definition
}

// LoadCatalog reads the YAML catalog at path. Malformed entries are logged
// and skipped rather than failing the whole file; an unreadable or
// unparsable file is an error.
func LoadCatalog(path string, log logx.Logger) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(b, log)
}

func ParseCatalog(b []byte, log logx.Logger) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	cat := &Catalog{byID: map[string]*Definition{}}
	for i, r := range raw.Events {
		def, err := r.validate()
		if err != nil {
			log.Warn("skipping malformed event",
				logx.Int("index", i),
				logx.String("id", r.ID),
				logx.Err(err),
			)
			continue
		}
		if _, dup := cat.byID[def.ID]; dup {
			log.Warn("skipping duplicate event id", logx.String("id", def.ID))
			continue
		}
		cat.defs = append(cat.defs, def)
	}
	sort.Slice(cat.defs, func(i, j int) bool { return cat.defs[i].ID < cat.defs[j].ID })
	for i := range cat.defs {
		cat.byID[cat.defs[i].ID] = &cat.defs[i]
	}
	return cat, nil
}

func (r rawDefinition) validate() (Definition, error) {
	def := Definition{
		ID:            strings.TrimSpace(r.ID),
		Name:          strings.TrimSpace(r.Name),
		Day:           r.Day,
		Month:         r.Month,
		Year:          r.Year,
		ChancePercent: r.Chance,
		DurationDays:  1,
		StartCommands: r.StartCommands,
		EndCommands:   r.EndCommands,
	}
	if def.ID == "" {
		return def, fmt.Errorf("missing id")
	}
	if def.Name == "" {
		def.Name = def.ID
	}
	if r.DurationDays != nil {
		d := *r.DurationDays
		if d == 0 || d < -1 {
			return def, fmt.Errorf("duration_days must be positive or -1")
		}
		def.DurationDays = d
	}

	checkDayMonth := func(year int) error {
		if r.Month < 1 || r.Month > 12 {
			return fmt.Errorf("month %d out of range", r.Month)
		}
		if r.Day < 1 || r.Day > calendar.DaysInMonth(r.Month, year) {
			return fmt.Errorf("day %d invalid for month %d", r.Day, r.Month)
		}
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(r.Type)) {
	case "fixed_date", "fixed":
		def.Kind = FixedDate
		if r.Year < 1 {
			return def, fmt.Errorf("fixed_date event needs year >= 1")
		}
		if err := checkDayMonth(r.Year); err != nil {
			return def, err
		}
	case "annual":
		def.Kind = Annual
		// Feb 29 is allowed for annual events; it simply only fires in leap years.
		if err := checkDayMonth(2000); err != nil {
			return def, err
		}
	case "random":
		def.Kind = Random
		// No seasons listed means the event can fire year-round.
		if len(r.Seasons) > 0 {
			def.Seasons = make(map[calendar.Season]bool, len(r.Seasons))
			for _, name := range r.Seasons {
				s, ok := calendar.ParseSeason(name)
				if !ok {
					return def, fmt.Errorf("unknown season %q", name)
				}
				def.Seasons[s] = true
			}
		}
		if r.Chance < 1 || r.Chance > 100 {
			return def, fmt.Errorf("chance %d out of range 1..100", r.Chance)
		}
	default:
		return def, fmt.Errorf("unknown type %q", r.Type)
	}
	return def, nil
}

// Matches reports whether the definition is eligible on the given date.
// Random eligibility is season membership only; the chance roll happens in
// the scheduler.
func (d *Definition) Matches(date calendar.Date) bool {
	switch d.Kind {
	case FixedDate:
		return d.Day == date.Day && d.Month == date.Month && d.Year == date.Year
	case Annual:
		return d.Day == date.Day && d.Month == date.Month
	case Random:
		return len(d.Seasons) == 0 || d.Seasons[date.Season()]
	default:
		return false
	}
}

// Definitions returns entries in id order.
func (c *Catalog) Definitions() []Definition { return c.defs }

func (c *Catalog) Get(id string) (*Definition, bool) {
	d, ok := c.byID[id]
	return d, ok
}

func (c *Catalog) Len() int { return len(c.defs) }
