// Package calendar provides pure civil-date arithmetic used by the pattern
// and scheduling packages.
package calendar

import "time"

var daysPerMonth = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days in the given month (1-12) of year.
func DaysInMonth(year, month int) int {
	if month == 2 && IsLeapYear(year) {
		return 29
	}
	return daysPerMonth[month]
}

// DaysInYear returns 365 or 366.
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

// DayOfYear returns the ordinal day within t's year, 1-366.
func DayOfYear(t time.Time) int {
	return t.YearDay()
}

// DayOfWeek returns the ISO day of week for t: Monday=1 through Sunday=7.
func DayOfWeek(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// WeekOfYear returns the week number of t within t's civil year. Weeks
// follow the ISO convention, except that week numbers never cross the
// civil-year boundary: leading days belonging to the previous ISO year
// carry week 0, trailing days belonging to the next ISO year carry week 53.
func WeekOfYear(t time.Time) int {
	isoYear, isoWeek := t.ISOWeek()
	switch {
	case isoYear < t.Year():
		return 0
	case isoYear > t.Year():
		return 53
	default:
		return isoWeek
	}
}

// WeeksInYear returns the highest week number occurring in the civil year,
// 52 or 53. Used as the wrap anchor for negative week indexes.
func WeeksInYear(year int) int {
	return WeekOfYear(time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC))
}
