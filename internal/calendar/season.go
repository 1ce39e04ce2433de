package calendar

import (
	"fmt"
	"strings"
)

// Season is one of the four fixed seasons. It is always derived from the
// current month, never stored on its own.
type Season int

const (
	Winter Season = iota
	Spring
	Summer
	Autumn
)

// SeasonOf maps a month to its season: {12,1,2} winter, {3,4,5} spring,
// {6,7,8} summer, {9,10,11} autumn.
func SeasonOf(month int) Season {
	switch month {
	case 12, 1, 2:
		return Winter
	case 3, 4, 5:
		return Spring
	case 6, 7, 8:
		return Summer
	default:
		return Autumn
	}
}

func (s Season) String() string {
	switch s {
	case Winter:
		return "Winter"
	case Spring:
		return "Spring"
	case Summer:
		return "Summer"
	case Autumn:
		return "Autumn"
	default:
		return fmt.Sprintf("Season(%d)", int(s))
	}
}

// Key is the lower-case form used in config sections and catalog files.
func (s Season) Key() string { return strings.ToLower(s.String()) }

// ParseSeason accepts the season name in any case. The boolean is false for
// unrecognized names; callers decide whether that is a warning or an error.
func ParseSeason(name string) (Season, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "winter":
		return Winter, true
	case "spring":
		return Spring, true
	case "summer":
		return Summer, true
	case "autumn", "fall":
		return Autumn, true
	default:
		return 0, false
	}
}

// Seasons lists all four in calendar order starting at winter.
func Seasons() []Season { return []Season{Winter, Spring, Summer, Autumn} }
