package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of Event.Date.
const DateLayout = "2006-01-02"

// Clock is a wall-clock time of day, stored as minutes since midnight.
// It renders as 24-hour "HH:MM".
type Clock int

// NewClock builds a Clock from hour and minute. It does not validate.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock parses "H:MM" / "HH:MM".
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("clock %q: missing ':'", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("clock %q: %w", s, err)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("clock %q: %w", s, err)
	}
	c := NewClock(hour, minute)
	if !c.Valid() || minute > 59 {
		return 0, fmt.Errorf("clock %q: out of range", s)
	}
	return c, nil
}

// Valid reports whether c falls inside a single day.
func (c Clock) Valid() bool {
	return c >= 0 && c < 24*60
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Event is a single timetable entry recovered from free text.
//
// ID is only unique within one parse call; callers that persist events
// assign their own durable identifiers.
type Event struct {
	ID    string
	Title string

	// Date is the calendar day at midnight in the parser's location.
	Date time.Time

	StartTime Clock
	EndTime   Clock

	Location    string
	Description string
}

// Start returns the absolute start instant (Date + StartTime).
func (e Event) Start() time.Time {
	return at(e.Date, e.StartTime)
}

// End returns the absolute end instant (Date + EndTime).
func (e Event) End() time.Time {
	return at(e.Date, e.EndTime)
}

func at(day time.Time, c Clock) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, day.Location())
}

// eventJSON is the JSON-friendly view of Event.
type eventJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	StartTime   Clock  `json:"start_time"`
	EndTime     Clock  `json:"end_time"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		ID:          e.ID,
		Title:       e.Title,
		Date:        e.Date.Format(DateLayout),
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Location:    e.Location,
		Description: e.Description,
	})
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	day, err := time.ParseInLocation(DateLayout, raw.Date, time.Local)
	if err != nil {
		return fmt.Errorf("event date: %w", err)
	}
	*e = Event{
		ID:          raw.ID,
		Title:       raw.Title,
		Date:        day,
		StartTime:   raw.StartTime,
		EndTime:     raw.EndTime,
		Location:    raw.Location,
		Description: raw.Description,
	}
	return nil
}
