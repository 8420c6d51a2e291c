package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"tkbcal/internal/model"
)

// DefaultProductID is written as PRODID when EncodeOptions leaves it empty.
const DefaultProductID = "-//tkbcal//Timetable Export//VI"

// uidNamespace seeds the name-based UUIDs of exported events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://tkbcal.local/events"))

// EncodeOptions controls calendar export.
type EncodeOptions struct {
	ProductID string

	// Name is exported as X-WR-CALNAME when set.
	Name string

	// Scope separates UIDs of different sources that happen to contain
	// identical events (e.g. the inbox file name or source ID).
	Scope string

	// RepeatWeeks > 1 adds RRULE:FREQ=WEEKLY;COUNT=RepeatWeeks to every
	// event, so one parsed week covers the rest of the term.
	RepeatWeeks int

	// Stamp is used for DTSTAMP. Zero means time.Now.
	Stamp time.Time
}

// Encode renders events as an iCalendar (RFC 5545) document.
//
// UIDs are derived from scope, date, start time and title, so re-exporting
// the same timetable updates events in subscribed clients instead of
// duplicating them.
func Encode(events []model.Event, opts EncodeOptions) string {
	cal := ical.NewCalendar()
	if opts.ProductID == "" {
		opts.ProductID = DefaultProductID
	}
	cal.SetProductId(opts.ProductID)
	cal.SetMethod(ical.MethodPublish)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	var rule string
	if opts.RepeatWeeks > 1 {
		rule = WeeklyRule(opts.RepeatWeeks)
	}

	for _, ev := range events {
		ve := cal.AddEvent(EventUID(opts.Scope, ev))
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(ev.Start())
		ve.SetEndAt(ev.End())
		ve.SetSummary(ev.Title)
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if rule != "" {
			ve.AddRrule(rule)
		}
	}

	return cal.Serialize()
}

// EventUID returns the stable UID used for ev.
func EventUID(scope string, ev model.Event) string {
	key := strings.Join([]string{
		scope,
		ev.Date.Format(model.DateLayout),
		ev.StartTime.String(),
		ev.EndTime.String(),
		ev.Title,
	}, "\x1f")
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@tkbcal"
}

// WeeklyRule returns the RRULE value repeating an event for the given
// number of weeks.
func WeeklyRule(weeks int) string {
	opt := rrule.ROption{Freq: rrule.WEEKLY, Count: weeks}
	return opt.RRuleString()
}
