package markethours

import "time"

// nseHolidays2026 lists the 2026 NSE trading holidays from the exchange's
// published calendar. Lunar-calendar dates can shift by a day when the
// exchange confirms them; those are marked tentative.
var nseHolidays2026 = [...]struct {
	month time.Month
	day   int
}{
	{time.January, 26},  // Republic Day
	{time.February, 17}, // Mahashivratri (tentative)
	{time.March, 14},    // Holi
	{time.March, 31},    // Id-ul-Fitr (tentative)
	{time.April, 2},     // Ram Navami (tentative)
	{time.April, 6},     // Mahavir Jayanti
	{time.April, 10},    // Good Friday
	{time.April, 14},    // Dr. Ambedkar Jayanti
	{time.May, 1},       // Maharashtra Day
	{time.June, 7},      // Bakrid (tentative)
	{time.July, 6},      // Muharram (tentative)
	{time.August, 15},   // Independence Day
	{time.August, 16},   // Janmashtami (tentative)
	{time.September, 5}, // Milad-un-Nabi (tentative)
	{time.October, 2},   // Gandhi Jayanti
	{time.October, 20},  // Dussehra
	{time.October, 21},  // Dussehra (tentative)
	{time.November, 5},  // Diwali Lakshmi Puja (tentative)
	{time.November, 6},  // Diwali Balipratipada (tentative)
	{time.November, 7},  // Bhai Dooj (tentative)
	{time.November, 19}, // Guru Nanak Jayanti
	{time.December, 25}, // Christmas
}

// holidaySet keys each holiday as month<<5|day for allocation-free lookup.
var holidaySet = make(map[int]struct{}, len(nseHolidays2026))

func init() {
	for _, h := range nseHolidays2026 {
		holidaySet[int(h.month)<<5|h.day] = struct{}{}
	}
}

// IsHoliday reports whether t, viewed in IST, falls on an NSE holiday.
// Only the 2026 calendar is loaded; other years report false.
func IsHoliday(t time.Time) bool {
	ist := t.In(IST)
	if ist.Year() != 2026 {
		return false
	}
	_, ok := holidaySet[int(ist.Month())<<5|ist.Day()]
	return ok
}
