// Package clock drives the virtual calendar over the host world clock. The
// driver accumulates fractional ticks so configured day lengths hold exactly
// over time, detects day boundaries idempotently, and owns every mutation of
// calendar state.
package clock

import (
	"almanac/internal/calendar"
	"almanac/internal/config"
)

const (
	// DayCycleTicks is one full in-world day.
	DayCycleTicks = 24000
	// SunsetTick splits the cycle into daylight and night.
	SunsetTick = 13000
)

// Rates holds ticks-per-second for the two halves of the cycle.
type Rates struct {
	Day   float64
	Night float64
}

// RatesFor converts a season's configured day/night lengths (real seconds)
// into tick rates. Zero or missing cycle blocks fall back to the default
// cycle; a non-positive duration within a block yields rate 0, freezing that
// half of the day.
func RatesFor(season calendar.Season, tc config.TimeCycleConfig) Rates {
	cycle := cycleFor(season, tc)
	var r Rates
	if cycle.DayDurationSeconds > 0 {
		r.Day = float64(SunsetTick) / cycle.DayDurationSeconds
	}
	if cycle.NightDurationSeconds > 0 {
		r.Night = float64(DayCycleTicks-SunsetTick) / cycle.NightDurationSeconds
	}
	return r
}

func cycleFor(season calendar.Season, tc config.TimeCycleConfig) config.SeasonCycle {
	var c config.SeasonCycle
	switch season {
	case calendar.Winter:
		c = tc.Winter
	case calendar.Spring:
		c = tc.Spring
	case calendar.Summer:
		c = tc.Summer
	case calendar.Autumn:
		c = tc.Autumn
	}
	if c.IsZero() {
		return config.DefaultSeasonCycle
	}
	return c
}

// At returns the applicable rate for a tick within the day cycle.
func (r Rates) At(timeOfDay int64) float64 {
	if timeOfDay < SunsetTick {
		return r.Day
	}
	return r.Night
}
