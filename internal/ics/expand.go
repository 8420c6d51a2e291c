package ics

import (
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/teambition/rrule-go"

	"tkbcal/internal/model"
)

const (
	// defaultMaxOccurrences bounds expansion of open-ended rules.
	defaultMaxOccurrences = 200
)

// RepeatWeekly expands every event into weeks weekly occurrences starting
// at its own date. The result is ordered by start time and renumbered
// "1".."n".
func RepeatWeekly(events []model.Event, weeks int) ([]model.Event, error) {
	if weeks <= 0 {
		return nil, errors.New("repeat: weeks must be positive")
	}
	out := make([]model.Event, 0, len(events)*weeks)
	for _, ev := range events {
		r, err := rrule.NewRRule(rrule.ROption{
			Freq:    rrule.WEEKLY,
			Count:   weeks,
			Dtstart: ev.Start(),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, occurrences(ev, r.Iterator(), weeks)...)
	}
	sortAndNumber(out)
	return out, nil
}

// occurrences materializes up to limit instances of ev, one per start time
// produced by next. Each keeps ev's clock range.
func occurrences(ev model.Event, next rrule.Next, limit int) []model.Event {
	var out []model.Event
	for len(out) < limit {
		start, ok := next()
		if !ok {
			break
		}
		occ := ev
		occ.Date = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, ev.Date.Location())
		out = append(out, occ)
	}
	return out
}

func sortAndNumber(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start().Before(events[j].Start())
	})
	for i := range events {
		events[i].ID = strconv.Itoa(i + 1)
	}
}
