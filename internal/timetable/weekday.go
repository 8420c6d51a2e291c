package timetable

import (
	"strconv"
	"strings"
	"time"
)

// Weekday is a day of the week as written in a timetable.
//
// Vietnamese timetables number days from Monday = "Thứ 2" to
// Saturday = "Thứ 7". Sunday is written as "Chủ nhật" but shows up as a
// numeral in two conflicting conventions: week tables use 8, annotated
// schedules use 1. WeekdayFromNumeral is the only place a numeral becomes a
// Weekday and it accepts both.
type Weekday int

const (
	InvalidWeekday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

const (
	// SundayWeekTable is Sunday's numeral in week-table layouts.
	SundayWeekTable = 8
	// SundayAnnotated is Sunday's numeral in annotated layouts.
	SundayAnnotated = 1
)

// WeekdayFromNumeral converts a timetable numeral to a Weekday.
func WeekdayFromNumeral(n int) Weekday {
	switch {
	case n >= 2 && n <= 7:
		return Weekday(n - 1)
	case n == SundayWeekTable, n == SundayAnnotated:
		return Sunday
	default:
		return InvalidWeekday
	}
}

var weekdayWords = map[string]Weekday{
	"hai": Monday,
	"ba":  Tuesday,
	"tư":  Wednesday,
	"tu":  Wednesday,
	"bốn": Wednesday,
	"năm": Thursday,
	"nam": Thursday,
	"sáu": Friday,
	"sau": Friday,
	"bảy": Saturday,
	"bay": Saturday,
}

// weekdayFromToken maps the token captured after "Thứ" (or a Sunday
// spelling) to a Weekday.
func weekdayFromToken(tok string) Weekday {
	tok = strings.ToLower(strings.TrimSpace(tok))
	if n, err := strconv.Atoi(tok); err == nil {
		return WeekdayFromNumeral(n)
	}
	if d, ok := weekdayWords[tok]; ok {
		return d
	}
	if isSundayWord(tok) {
		return Sunday
	}
	return InvalidWeekday
}

func isSundayWord(tok string) bool {
	tok = strings.Join(strings.Fields(tok), " ")
	switch tok {
	case "chủ nhật", "chu nhat", "cn":
		return true
	}
	return false
}

// Valid reports whether d names a real day.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

// Time converts d to the standard library weekday.
func (d Weekday) Time() time.Weekday {
	if d == Sunday {
		return time.Sunday
	}
	return time.Weekday(d)
}

// Numeral renders d in week-table numbering (Sunday = 8).
func (d Weekday) Numeral() int {
	if !d.Valid() {
		return 0
	}
	return int(d) + 1
}

func (d Weekday) String() string {
	switch d {
	case Sunday:
		return "Chủ nhật"
	case InvalidWeekday:
		return "invalid"
	}
	if d.Valid() {
		return "Thứ " + strconv.Itoa(d.Numeral())
	}
	return "invalid"
}
