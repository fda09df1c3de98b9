package calendar

import (
	"testing"
	"time"
)

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month int
		want  int
	}{
		{name: "january", year: 2017, month: 1, want: 31},
		{name: "february common year", year: 2017, month: 2, want: 28},
		{name: "february leap year", year: 2016, month: 2, want: 29},
		{name: "february century non-leap", year: 1900, month: 2, want: 28},
		{name: "february quadricentennial leap", year: 2000, month: 2, want: 29},
		{name: "april", year: 2017, month: 4, want: 30},
		{name: "december", year: 2017, month: 12, want: 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysInMonth(tt.year, tt.month); got != tt.want {
				t.Errorf("DaysInMonth(%d, %d) = %d, want %d", tt.year, tt.month, got, tt.want)
			}
		})
	}
}

func TestDaysInYear(t *testing.T) {
	if got := DaysInYear(2016); got != 366 {
		t.Errorf("DaysInYear(2016) = %d, want 366", got)
	}
	if got := DaysInYear(2017); got != 365 {
		t.Errorf("DaysInYear(2017) = %d, want 365", got)
	}
	if got := DaysInYear(1900); got != 365 {
		t.Errorf("DaysInYear(1900) = %d, want 365", got)
	}
}

func TestDayOfWeek(t *testing.T) {
	// 2017-03-13 was a Monday.
	monday := time.Date(2017, 3, 13, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		got := DayOfWeek(monday.AddDate(0, 0, i))
		if got != i+1 {
			t.Errorf("DayOfWeek(+%d days) = %d, want %d", i, got, i+1)
		}
	}
}

func TestWeekOfYear(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want int
	}{
		// 2016-01-01 was a Friday; it belongs to ISO week 53 of 2015.
		{name: "leading days carry week 0", date: time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC), want: 0},
		{name: "first monday starts week 1", date: time.Date(2016, 1, 4, 0, 0, 0, 0, time.UTC), want: 1},
		// 2014-12-29 was a Monday belonging to ISO week 1 of 2015.
		{name: "trailing days carry week 53", date: time.Date(2014, 12, 29, 0, 0, 0, 0, time.UTC), want: 53},
		{name: "mid year", date: time.Date(2017, 7, 3, 0, 0, 0, 0, time.UTC), want: 27},
		// 2018-01-01 was a Monday.
		{name: "january first monday", date: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekOfYear(tt.date); got != tt.want {
				t.Errorf("WeekOfYear(%s) = %d, want %d", tt.date.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestWeeksInYear(t *testing.T) {
	// 2015 ends mid ISO week 53; 2014's trailing days roll into next year's week 1.
	if got := WeeksInYear(2015); got != 53 {
		t.Errorf("WeeksInYear(2015) = %d, want 53", got)
	}
	if got := WeeksInYear(2014); got != 53 {
		t.Errorf("WeeksInYear(2014) = %d, want 53", got)
	}
	if got := WeeksInYear(2017); got != 52 {
		t.Errorf("WeeksInYear(2017) = %d, want 52", got)
	}
}
