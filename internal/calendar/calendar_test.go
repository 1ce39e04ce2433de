package calendar

import "testing"

func TestDaysInMonthTable(t *testing.T) {
	t.Parallel()
	want := map[int]int{1: 31, 3: 31, 4: 30, 5: 31, 6: 30, 7: 31, 8: 31, 9: 30, 10: 31, 11: 30, 12: 31}
	for m, n := range want {
		if got := DaysInMonth(m, 2023); got != n {
			t.Fatalf("DaysInMonth(%d, 2023) = %d, want %d", m, got, n)
		}
	}
}

func TestFebruaryLeapRule(t *testing.T) {
	t.Parallel()
	for year := 1; year <= 2400; year++ {
		leap := year%4 == 0 && (year%100 != 0 || year%400 == 0)
		want := 28
		if leap {
			want = 29
		}
		if got := DaysInMonth(2, year); got != want {
			t.Fatalf("DaysInMonth(2, %d) = %d, want %d", year, got, want)
		}
		if IsLeapYear(year) != leap {
			t.Fatalf("IsLeapYear(%d) = %v, want %v", year, !leap, leap)
		}
	}
}

func TestNextRollsOverEveryMonth(t *testing.T) {
	t.Parallel()
	for _, year := range []int{1, 1900, 2000, 2024} {
		for m := 1; m <= 12; m++ {
			d := Date{Day: 1, Month: m, Year: year}
			for i := 0; i < DaysInMonth(m, year); i++ {
				d = d.Next()
			}
			wantMonth, wantYear := m+1, year
			if m == 12 {
				wantMonth, wantYear = 1, year+1
			}
			if d.Day != 1 || d.Month != wantMonth || d.Year != wantYear {
				t.Fatalf("advancing through %s %d landed on %v", MonthName(m), year, d)
			}
		}
	}
}

func TestLeapDayScenario(t *testing.T) {
	t.Parallel()
	s := NewState(Date{Day: 28, Month: 2, Year: 2024})
	if d := s.Advance(); d.Day != 29 || d.Month != 2 {
		t.Fatalf("expected 29 Feb, got %v", d)
	}
	if d := s.Advance(); d.Day != 1 || d.Month != 3 {
		t.Fatalf("expected 1 Mar, got %v", d)
	}
}

func TestSeasonOfCoversAllMonths(t *testing.T) {
	t.Parallel()
	want := map[int]Season{
		12: Winter, 1: Winter, 2: Winter,
		3: Spring, 4: Spring, 5: Spring,
		6: Summer, 7: Summer, 8: Summer,
		9: Autumn, 10: Autumn, 11: Autumn,
	}
	for m := 1; m <= 12; m++ {
		if got := SeasonOf(m); got != want[m] {
			t.Fatalf("SeasonOf(%d) = %v, want %v", m, got, want[m])
		}
	}
}

func TestParseSeason(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Season
		ok   bool
	}{
		{"winter", Winter, true},
		{"WINTER", Winter, true},
		{" Spring ", Spring, true},
		{"fall", Autumn, true},
		{"monsoon", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseSeason(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Fatalf("ParseSeason(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSetOverridesRangeChecks(t *testing.T) {
	t.Parallel()
	s := NewState(Date{Day: 10, Month: 2, Year: 2023})

	if err := s.SetDay(29); err == nil {
		t.Fatal("SetDay(29) should fail in non-leap February")
	}
	if err := s.SetDay(28); err != nil {
		t.Fatalf("SetDay(28): %v", err)
	}
	if err := s.SetMonth(13); err == nil {
		t.Fatal("SetMonth(13) should fail")
	}
	if err := s.SetYear(0); err == nil {
		t.Fatal("SetYear(0) should fail")
	}
	if err := s.SetYear(2024); err != nil {
		t.Fatalf("SetYear: %v", err)
	}
	if got := s.Date(); got.Day != 28 || got.Month != 2 || got.Year != 2024 {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestAdvanceDays(t *testing.T) {
	t.Parallel()
	s := NewState(Date{Day: 30, Month: 12, Year: 1})
	s.AdvanceDays(2)
	if got := s.Date(); got.Day != 1 || got.Month != 1 || got.Year != 2 {
		t.Fatalf("expected 1 Jan year 2, got %v", got)
	}
}
