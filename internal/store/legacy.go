package store

import (
	"fmt"
	"os"

	yaml "go.yaml.in/yaml/v3"

	"almanac/internal/calendar"
	"almanac/internal/events"
	logx "almanac/pkg/logx"
)

type legacyFile struct {
	Day         int   `yaml:"day"`
	Month       int   `yaml:"month"`
	Year        int   `yaml:"year"`
	TotalTicks  int64 `yaml:"total_ticks"`
	ActiveEvent *struct {
		ID            string `yaml:"id"`
		Name          string `yaml:"name"`
		DaysRemaining int    `yaml:"days_remaining"`
	} `yaml:"active_event"`
}

// ImportLegacy reads a pre-sqlite YAML state file. Returns (nil, nil) when
// the file does not exist; the caller persists the result and never reads the
// file again.
func ImportLegacy(path string, log logx.Logger) (*State, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read legacy data: %w", err)
	}

	var lf legacyFile
	if err := yaml.Unmarshal(b, &lf); err != nil {
		return nil, fmt.Errorf("parse legacy data: %w", err)
	}
	if lf.Day < 1 || lf.Month < 1 || lf.Month > 12 || lf.Year < 1 {
		return nil, fmt.Errorf("legacy data has invalid date %d/%d/%d", lf.Day, lf.Month, lf.Year)
	}

	st := &State{
		Date:      calendar.Date{Day: lf.Day, Month: lf.Month, Year: lf.Year},
		HostTicks: lf.TotalTicks,
	}
	if a := lf.ActiveEvent; a != nil && a.ID != "" {
		name := a.Name
		if name == "" {
			name = a.ID
		}
		st.Active = &events.Active{
			ID:            a.ID,
			Name:          name,
			StartedOn:     st.Date,
			DaysRemaining: a.DaysRemaining,
		}
	}
	log.Info("imported legacy state",
		logx.String("path", path),
		logx.String("date", st.Date.String()),
	)
	return st, nil
}
