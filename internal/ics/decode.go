package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "tkbcal/internal/log"
	"tkbcal/internal/model"
)

// DecodeOptions controls calendar import.
type DecodeOptions struct {
	// Location is the zone events are converted to. Nil means time.Local.
	Location *time.Location

	// MaxOccurrences caps how many instances one RRULE expands to. Zero
	// means defaultMaxOccurrences.
	MaxOccurrences int
}

// Decode reads an iCalendar document back into events, so a previously
// exported timetable (or a calendar from elsewhere) can be merged or
// re-exported.
//
//   - VEVENTs that cannot be read are logged and skipped.
//   - All-day events and events crossing midnight are skipped; an Event is
//     a clock range within one day.
//   - RRULE and EXDATE are expanded up to MaxOccurrences instances.
//
// Events are ordered by start time and numbered "1".."n".
func Decode(body []byte, opts DecodeOptions) ([]model.Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MaxOccurrences <= 0 {
		opts.MaxOccurrences = defaultMaxOccurrences
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		evs, derr := decodeVEvent(ve, opts)
		if derr != nil {
			appLog.Warn("ics vevent skipped", "uid", ve.Id(), "reason", derr.Error())
			continue
		}
		events = append(events, evs...)
	}
	sortAndNumber(events)
	return events, nil
}

func decodeVEvent(ve *ical.VEvent, opts DecodeOptions) ([]model.Event, error) {
	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return nil, errors.New("missing DTSTART")
	}
	if isDateValue(dtStart) {
		return nil, errors.New("all-day event")
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return nil, err
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return nil, err
	}
	start, end = start.In(opts.Location), end.In(opts.Location)
	if !end.After(start) {
		return nil, errors.New("DTEND not after DTSTART")
	}
	if start.Format(model.DateLayout) != end.Format(model.DateLayout) {
		return nil, errors.New("event crosses midnight")
	}

	base := model.Event{
		Title:     propValue(ve, ical.ComponentPropertySummary),
		Date:      time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, opts.Location),
		StartTime: model.NewClock(start.Hour(), start.Minute()),
		EndTime:   model.NewClock(end.Hour(), end.Minute()),
		Location:  propValue(ve, ical.ComponentPropertyLocation),

		Description: propValue(ve, ical.ComponentPropertyDescription),
	}

	rruleProp := ve.GetProperty(ical.ComponentPropertyRrule)
	if rruleProp == nil || rruleProp.Value == "" {
		return []model.Event{base}, nil
	}

	r, err := rrule.StrToRRule(rruleProp.Value)
	if err != nil {
		return nil, err
	}
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if ex, err := parseICSTime(strings.TrimSpace(part), opts.Location); err == nil {
				set.ExDate(ex.In(opts.Location))
			}
		}
	}
	return occurrences(base, set.Iterator(), opts.MaxOccurrences), nil
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// parseICSTime parses the basic EXDATE forms: UTC, floating local and
// date-only.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
