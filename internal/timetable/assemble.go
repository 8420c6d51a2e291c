package timetable

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"tkbcal/internal/model"
)

// DescriptionSeparator joins the optional parts of Event.Description.
const DescriptionSeparator = " | "

var (
	leadingNumberRe = regexp.MustCompile(`^\d{1,2}[.)]\s+`)
	emptyParensRe   = regexp.MustCompile(`\(\s*\)|\[\s*\]`)
	starSuffixRe    = regexp.MustCompile(`\(\s*\*\s*\)\s*$`)
)

const (
	leadingDecorations  = " \t-–—|,;*•●▪■★·"
	trailingDecorations = leadingDecorations + ":."
)

// cleanTitle strips decorative annotations from a captured title and
// returns the credit pair ("2+0") if the title carried one as a suffix.
func cleanTitle(raw string) (title, credits string) {
	t := emptyParensRe.ReplaceAllString(raw, " ")
	t = strings.Join(strings.Fields(t), " ")
	t = strings.TrimLeft(t, leadingDecorations)
	t = leadingNumberRe.ReplaceAllString(t, "")

	for {
		before := t
		if sub := creditSuffixRe.FindStringSubmatch(t); sub != nil {
			if credits == "" {
				credits = sub[1] + "+" + sub[2]
			}
			t = t[:len(t)-len(sub[0])]
		}
		t = starSuffixRe.ReplaceAllString(t, "")
		t = strings.TrimRight(t, trailingDecorations)
		if t == before {
			break
		}
	}
	return t, credits
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

// joinPresent joins the non-empty parts with DescriptionSeparator.
func joinPresent(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, DescriptionSeparator)
}

func labeled(label, value string) string {
	if value == "" {
		return ""
	}
	return label + ": " + value
}

// assemble turns drafts into events in discovery order. Drafts without a
// title or without a valid time range are dropped.
func assemble(drafts []draft, doc *document) []model.Event {
	events := make([]model.Event, 0, len(drafts))
	for _, d := range drafts {
		title, credits := cleanTitle(d.title)
		if title == "" || !hasLetter(title) {
			continue
		}
		if d.credits != "" {
			credits = d.credits
		}

		start, end, ok := resolveTimes(d)
		if !ok {
			continue
		}

		ev := model.Event{
			ID:        strconv.Itoa(len(events) + 1),
			Title:     title,
			Date:      resolveDate(d, doc),
			StartTime: start,
			EndTime:   end,
			Location:  d.room,
			Description: joinPresent(
				labeled("Nhóm", d.group),
				labeled("GV", d.teacher),
				labeled("Mã HP", d.code),
				labeled("Tín chỉ", credits),
				strings.Join(d.remainder, DescriptionSeparator),
			),
		}
		events = append(events, ev)
	}
	return events
}

// resolveDate prefers an explicit date, then the weekday projected from the
// week anchor, then today.
func resolveDate(d draft, doc *document) time.Time {
	switch {
	case !d.date.IsZero():
		return d.date
	case d.day.Valid():
		return ProjectWeekday(doc.anchor, d.day)
	default:
		return doc.today
	}
}

// resolveTimes prefers a literal clock range, then the period table, then
// the placeholder range.
func resolveTimes(d draft) (start, end model.Clock, ok bool) {
	switch {
	case d.clock != nil:
		start, end = d.clock.start, d.clock.end
	case d.period != nil:
		pt := PeriodRange(d.period.from, d.period.to)
		start, end = pt.Start, pt.End
	default:
		start, end = PlaceholderStart, PlaceholderEnd
	}
	return start, end, start < end
}
