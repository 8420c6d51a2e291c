package timetable

import (
	"regexp"
	"time"
	"unicode/utf8"
)

// document is the per-call view of the input shared by all grammars.
type document struct {
	text    string
	markers []marker
	blocks  []block

	today          time.Time
	anchor         time.Time
	anchorFromText bool
}

// draft is the raw field set a grammar captured for one event, before
// assembly. Zero values mean "absent".
type draft struct {
	offset int

	title string
	date  time.Time
	day   Weekday

	period    *periodSpan
	clock     *clockSpan
	room      string
	group     string
	teacher   string
	code      string
	credits   string
	remainder []string
}

func (d *draft) applyLabels(l labels) {
	if d.title == "" {
		d.title = l[labelTitle]
	}
	if d.room == "" {
		d.room = l[labelRoom]
	}
	if d.group == "" {
		d.group = l[labelGroup]
	}
	if d.teacher == "" {
		d.teacher = l[labelInstructor]
	}
	if d.code == "" {
		d.code = l[labelCode]
	}
}

// grammar is one extraction strategy for one observed text layout.
type grammar interface {
	name() string
	match(doc *document) []draft
}

// grammarChain lists grammars from most to least specific. The first one
// whose drafts assemble into at least one event wins; later grammars are not
// consulted and results are never merged.
func grammarChain() []grammar {
	return []grammar{
		annotatedGrammar{},
		weekTableGrammar{},
		fallbackGrammar{},
		lineGrammar{},
	}
}

// backRunes returns the byte offset n runes before pos, bounded by 0.
func backRunes(text string, pos, n int) int {
	for ; n > 0 && pos > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(text[:pos])
		pos -= size
	}
	return pos
}

// forwardRunes returns the byte offset n runes after pos, bounded by len(text).
func forwardRunes(text string, pos, n int) int {
	for ; n > 0 && pos < len(text); n-- {
		_, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
	}
	return pos
}

// lastSubmatch returns the last match of re inside text[lo:hi].
func lastSubmatch(re *regexp.Regexp, text string, lo, hi int) []string {
	if lo >= hi {
		return nil
	}
	all := re.FindAllStringSubmatch(text[lo:hi], -1)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

// firstSubmatch returns the first match of re inside text[lo:hi].
func firstSubmatch(re *regexp.Regexp, text string, lo, hi int) []string {
	if lo >= hi {
		return nil
	}
	return re.FindStringSubmatch(text[lo:hi])
}

func (doc *document) lastMarker(lo, hi int) (marker, bool) {
	for i := len(doc.markers) - 1; i >= 0; i-- {
		m := doc.markers[i]
		if m.start >= lo && m.end <= hi {
			return m, true
		}
	}
	return marker{}, false
}

func (doc *document) firstMarker(lo, hi int) (marker, bool) {
	for _, m := range doc.markers {
		if m.start >= lo && m.end <= hi {
			return m, true
		}
	}
	return marker{}, false
}

// timing holds weekday, period and clock recovered from a text window.
type timing struct {
	day    Weekday
	period *periodSpan
	clock  *clockSpan
}

func (t timing) complete() bool {
	return t.day.Valid() && (t.period != nil || t.clock != nil)
}

// fill copies the fields t is missing from other.
func (t *timing) fill(other timing) {
	if !t.day.Valid() {
		t.day = other.day
	}
	if t.period == nil {
		t.period = other.period
	}
	if t.clock == nil {
		t.clock = other.clock
	}
}

// nearestBefore fills missing timing fields from the last occurrences inside
// text[lo:hi].
func (doc *document) nearestBefore(t *timing, lo, hi int) {
	if !t.day.Valid() {
		if m, ok := doc.lastMarker(lo, hi); ok {
			t.day = m.day
		}
	}
	if t.period == nil {
		if sub := lastSubmatch(periodRe, doc.text, lo, hi); sub != nil {
			if p, ok := parsePeriod(sub); ok {
				t.period = &p
			}
		}
	}
	if t.clock == nil {
		if sub := lastSubmatch(clockRangeRe, doc.text, lo, hi); sub != nil {
			if c, ok := parseClockRange(sub); ok {
				t.clock = &c
			}
		}
	}
}

// nearestAfter fills missing timing fields from the first occurrences
// inside text[lo:hi].
func (doc *document) nearestAfter(t *timing, lo, hi int) {
	if !t.day.Valid() {
		if m, ok := doc.firstMarker(lo, hi); ok {
			t.day = m.day
		}
	}
	if t.period == nil {
		if sub := firstSubmatch(periodRe, doc.text, lo, hi); sub != nil {
			if p, ok := parsePeriod(sub); ok {
				t.period = &p
			}
		}
	}
	if t.clock == nil {
		if sub := firstSubmatch(clockRangeRe, doc.text, lo, hi); sub != nil {
			if c, ok := parseClockRange(sub); ok {
				t.clock = &c
			}
		}
	}
}
