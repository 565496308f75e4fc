// Package core holds the domain model shared by every service:
// transactions, users, savings, recurrence schedules and the calendar
// helpers the recurring and summary engines are built on.
package core

import "time"

// DaysInMonth returns the number of days in the given month, leap-aware.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay returns day clamped to the length of the given month, so a
// day-of-month anchor of 31 degrades to 30, 29 or 28 in shorter months.
func ClampDay(year, month, day int) int {
	if last := DaysInMonth(year, month); day > last {
		return last
	}
	return day
}

// MonthWindow returns the inclusive [first day, last day] bounds of a month.
func MonthWindow(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.Month(month), DaysInMonth(year, month), 0, 0, 0, 0, time.UTC)
	return start, end
}

// YearWindow returns the inclusive [Jan 1, Dec 31] bounds of a year.
func YearWindow(year int) (time.Time, time.Time) {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// OpenWindow is the fallback filter window: epoch start through now.
func OpenWindow(now time.Time) (time.Time, time.Time) {
	return time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC), now
}

// OccurrenceDates materializes a schedule into one dated occurrence per month,
// start through end inclusive. The walk advances by exactly one calendar month
// and re-clamps the day anchor each step, so clamping in a short month never
// shifts subsequent occurrences.
func (s Schedule) OccurrenceDates() []time.Time {
	dates := make([]time.Time, 0, s.Months())
	year, month := s.StartYear, s.StartMonth
	for {
		if year > s.EndYear || (year == s.EndYear && month > s.EndMonth) {
			break
		}
		day := ClampDay(year, month, s.DayOfMonth)
		dates = append(dates, time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC))
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return dates
}
