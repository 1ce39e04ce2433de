// Package calendar holds the virtual date (day/month/year) and its
// arithmetic: month lengths, leap years, and season derivation. It is pure
// state + rules; the clock driver decides when a day passes and commands
// decide when a field is overridden.
package calendar

import "fmt"

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// IsLeapYear follows the Gregorian rule.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the length of the given month, 29 for February in leap
// years. Out-of-range months fall back to 31 so lookups never panic; the
// command boundary rejects such months before they reach state.
func DaysInMonth(month, year int) int {
	if month < 1 || month > 12 {
		return 31
	}
	if month == 2 && IsLeapYear(year) {
		return 29
	}
	return monthDays[month-1]
}

// MonthName returns the English month name, or a placeholder for invalid input.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return "InvalidMonth"
	}
	return monthNames[month-1]
}

// Date is a day/month/year triple. The zero value is not a valid date; use
// Epoch() or load one from the store.
type Date struct {
	Day   int
	Month int
	Year  int
}

// Epoch is day one of the calendar.
func Epoch() Date { return Date{Day: 1, Month: 1, Year: 1} }

// Season derives the current season from the month.
func (d Date) Season() Season { return SeasonOf(d.Month) }

// Next returns the following day, rolling over month and year as needed.
func (d Date) Next() Date {
	d.Day++
	if d.Day > DaysInMonth(d.Month, d.Year) {
		d.Day = 1
		d.Month++
		if d.Month > 12 {
			d.Month = 1
			d.Year++
		}
	}
	return d
}

func (d Date) String() string {
	return fmt.Sprintf("%d %s %d", d.Day, MonthName(d.Month), d.Year)
}

// State is the mutable calendar owned by the clock driver. All mutation goes
// through Advance/AdvanceDays or the Set* overrides; callers of Set* are
// responsible for re-deriving dependent state (rates, season) afterwards.
type State struct {
	date Date
}

func NewState(d Date) *State {
	if d.Day == 0 && d.Month == 0 && d.Year == 0 {
		d = Epoch()
	}
	return &State{date: d}
}

func (s *State) Date() Date { return s.date }
func (s *State) Day() int   { return s.date.Day }
func (s *State) Month() int { return s.date.Month }
func (s *State) Year() int  { return s.date.Year }

func (s *State) Season() Season { return s.date.Season() }

// Advance moves the calendar forward one day.
func (s *State) Advance() Date {
	s.date = s.date.Next()
	return s.date
}

// AdvanceDays replays n silent day advances (offline catch-up).
func (s *State) AdvanceDays(n int64) Date {
	for i := int64(0); i < n; i++ {
		s.date = s.date.Next()
	}
	return s.date
}

// SetDay overrides the day. Only the component-local range is checked here;
// richer validation (against the current month length, operator messages)
// happens at the command boundary.
func (s *State) SetDay(day int) error {
	if day < 1 || day > DaysInMonth(s.date.Month, s.date.Year) {
		return fmt.Errorf("day %d out of range 1..%d", day, DaysInMonth(s.date.Month, s.date.Year))
	}
	s.date.Day = day
	return nil
}

func (s *State) SetMonth(month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("month %d out of range 1..12", month)
	}
	s.date.Month = month
	return nil
}

func (s *State) SetYear(year int) error {
	if year < 1 {
		return fmt.Errorf("year %d must be >= 1", year)
	}
	s.date.Year = year
	return nil
}
