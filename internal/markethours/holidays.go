package markethours

import "time"

// MCX trading holidays for 2026 (full-day closures; days where only the
// morning session is closed still count as trading days here).
// Source: MCX official holiday circular.
var mcxHolidays2026 = []struct {
	month time.Month
	day   int
}{
	{time.January, 26},  // Republic Day
	{time.March, 14},    // Holi
	{time.March, 31},    // Id-ul-Fitr (tentative)
	{time.April, 10},    // Good Friday
	{time.April, 14},    // Dr. Ambedkar Jayanti
	{time.May, 1},       // Maharashtra Day
	{time.August, 15},   // Independence Day
	{time.October, 2},   // Mahatma Gandhi Jayanti
	{time.November, 5},  // Diwali / Lakshmi Puja (tentative)
	{time.December, 25}, // Christmas
}

// pre-compute for fast lookup
var holidaySet map[string]bool

func init() {
	holidaySet = make(map[string]bool, len(mcxHolidays2026))
	for _, h := range mcxHolidays2026 {
		key := dateKey(2026, h.month, h.day)
		holidaySet[key] = true
	}
}

// IsHoliday returns true if the date (in IST) is an MCX full-day holiday.
func IsHoliday(t time.Time) bool {
	ist := t.In(IST)
	return holidaySet[dateKey(ist.Year(), ist.Month(), ist.Day())]
}

func dateKey(year int, month time.Month, day int) string {
	return time.Date(year, month, day, 0, 0, 0, 0, IST).Format("2006-01-02")
}
