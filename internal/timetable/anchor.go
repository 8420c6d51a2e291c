package timetable

import "time"

// ResolveAnchor returns the first date of the week header in text
// ("Tuần 20 (12/05/2025 - 18/05/2025)", "Từ ngày ... đến ngày ...").
// Without a usable header it returns today and false.
func ResolveAnchor(text string, today time.Time) (time.Time, bool) {
	for _, re := range weekHeaderRes {
		for _, sub := range re.FindAllStringSubmatch(text, -1) {
			if d, ok := parseDate(sub[1], sub[2], sub[3], today.Location()); ok {
				return d, true
			}
		}
	}
	return today, false
}

// ProjectWeekday returns the first date on or after anchor that falls on
// day. With a Monday anchor this stays inside the anchor's week.
func ProjectWeekday(anchor time.Time, day Weekday) time.Time {
	if !day.Valid() {
		return anchor
	}
	offset := (int(day.Time()) - int(anchor.Weekday()) + 7) % 7
	return anchor.AddDate(0, 0, offset)
}

// midnight truncates t to the start of its calendar day in its location.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
