package timetable

import "strings"

const (
	// fallbackWindowRunes is how far around a title the fallback grammar
	// looks for weekday and period.
	fallbackWindowRunes = 250

	minTitleLetters = 3
)

// titleLine is a line that still reads like a title once weekday, period,
// clock, date and labeled parts are removed.
type titleLine struct {
	start, end int // line span in the document
	title      string
	labelsAt   int // document offset where the line's labels begin
}

func titleLines(text string) []titleLine {
	var out []titleLine
	pos := 0
	for pos <= len(text) {
		end := strings.IndexByte(text[pos:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += pos
		}
		line := text[pos:end]

		if !isWeekHeader(line) {
			cut := labelCut(line)
			head := line[:cut]
			rest := strings.Join(strings.Fields(blankSpans(head, structuralSpans(head))), " ")
			if countLetters(leftoverText(head)) < minTitleLetters {
				rest = scanLabels(line)[labelTitle]
			}
			if countLetters(rest) >= minTitleLetters {
				out = append(out, titleLine{start: pos, end: end, title: rest, labelsAt: pos + cut})
			}
		}
		pos = end + 1
	}
	return out
}

// fallbackGrammar is the permissive last resort for marked text: any
// title-like line with a weekday and a period (or clock) somewhere in a
// window around it. Everything else defaults to empty.
type fallbackGrammar struct{}

func (fallbackGrammar) name() string { return "fallback" }

func (fallbackGrammar) match(doc *document) []draft {
	if len(doc.markers) == 0 {
		return nil
	}

	lines := titleLines(doc.text)
	var out []draft
	for i, tl := range lines {
		lo := backRunes(doc.text, tl.start, fallbackWindowRunes)
		hi := forwardRunes(doc.text, tl.end, fallbackWindowRunes)
		next := hi
		if i+1 < len(lines) && lines[i+1].start < next {
			next = lines[i+1].start
		}

		var t timing
		doc.nearestBefore(&t, lo, tl.end)
		if !t.complete() {
			var after timing
			doc.nearestAfter(&after, tl.end, next)
			if i+1 < len(lines) && lines[i+1].start < hi {
				after = unclaimed(doc, after, lines[i+1])
			}
			t.fill(after)
		}
		if !t.complete() {
			continue
		}

		d := draft{offset: tl.start, title: tl.title, day: t.day, period: t.period, clock: t.clock}
		if tl.labelsAt < next {
			d.applyLabels(scanLabels(doc.text[tl.labelsAt:next]))
		}
		out = append(out, d)
	}
	return out
}

// unclaimed drops the fields of after, found between a title and the next
// title line, that the next title reads as its own preceding timing. A
// heading above "Thứ 6 / Tiết 1 - 2 / Lập trình web" thus gets nothing.
// Fields the next title line carries itself stay available.
func unclaimed(doc *document, after timing, next titleLine) timing {
	var own timing
	doc.nearestAfter(&own, next.start, next.end)
	if !own.day.Valid() {
		after.day = InvalidWeekday
	}
	if own.period == nil && own.clock == nil {
		after.period, after.clock = nil, nil
	}
	return after
}
