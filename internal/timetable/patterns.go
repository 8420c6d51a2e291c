package timetable

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"tkbcal/internal/model"
)

// Compiled patterns are shared by every parse call. regexp.Regexp keeps no
// scan state between calls and RE2 matching is linear in the input.
var (
	// markerRe finds weekday markers. Group 1 is the marker itself; the
	// leading boundary is matched but not part of the marker. The trailing
	// boundary is checked in code (see findMarkers).
	markerRe = regexp.MustCompile(`(?:^|[\s,;(\[|:/])((?i:(?:thứ|thu)[ \t]*(?:[1-8]|hai|ba|tư|tu|bốn|năm|nam|sáu|sau|bảy|bay)|chủ[ \t]*nhật|chu[ \t]*nhat)|CN)`)

	// markerTokenRe splits a marker into its day token.
	markerTokenRe = regexp.MustCompile(`(?i)^(?:thứ|thu)[ \t]*(.+)$`)

	periodRe = regexp.MustCompile(`(?i)(?:tiết|tiet)(?:[ \t]*(?:học|hoc))?[ \t]*[:.]?[ \t]*(\d{1,2})(?:[ \t]*(?:->|→|-|–|—|~|đến|den)[ \t]*(\d{1,2}))?`)

	clockRangeRe = regexp.MustCompile(`(?i)(\d{1,2})[ \t]*[:hg][ \t]*(\d{2})[ \t]*(?:->|→|-|–|—|~|đến|den)[ \t]*(\d{1,2})[ \t]*[:hg][ \t]*(\d{2})`)

	dateRe = regexp.MustCompile(`(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})`)

	weekHeaderRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:tuần|tuan)[ \t]*\d*[ \t]*[:(\[\-–]?[ \t]*(?:(?:từ|tu)[ \t]*(?:ngày|ngay)?[ \t]*)?` + datePattern + `[ \t]*(?:-|–|—|~|đến|den)[ \t]*(?:ngày[ \t]*|ngay[ \t]*)?` + datePattern),
		regexp.MustCompile(`(?i)(?:từ|tu)[ \t]*(?:ngày|ngay)[ \t]*` + datePattern + `[ \t]*(?:-|–|—|~|đến|den)[ \t]*(?:ngày[ \t]*|ngay[ \t]*)?` + datePattern),
	}

	creditSuffixRe = regexp.MustCompile(`\(\s*(\d{1,2})\s*\+\s*(\d{1,2})\s*\)\s*$`)

	// labelRe recognizes "Label:" prefixes. Each capture group is one label
	// kind, in labelKind order.
	labelRe = regexp.MustCompile(`(?i)(?:^|[\s|,;\-–(])(?:` +
		`(` + groupLabels + `)|(` + instructorLabels + `)|(` + roomLabels + `)|(` +
		codeLabels + `)|(` + titleLabels + `))[ \t]*[:：]`)
)

// Label spellings, longest first within each kind.
const (
	groupLabels      = `lớp học phần|lop hoc phan|nhóm|nhom|lớp|lop|group`
	instructorLabels = `giảng viên|giang vien|giáo viên|giao vien|gv|cbgd|instructor|teacher`
	roomLabels       = `phòng học|phong hoc|phòng|phong|địa điểm|dia diem|room`
	codeLabels       = `mã học phần|ma hoc phan|mã hp|ma hp|mã mh|ma mh|course code|code`
	titleLabels      = `môn học|mon hoc|học phần|hoc phan|tên hp|ten hp|tên môn|ten mon|môn|mon|subject`
)

const datePattern = `(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})`

type labelKind int

const (
	labelGroup labelKind = iota
	labelInstructor
	labelRoom
	labelCode
	labelTitle
	labelKinds
)

// labels holds the first value seen for each label kind.
type labels [labelKinds]string

func (l labels) any(kinds ...labelKind) bool {
	for _, k := range kinds {
		if l[k] != "" {
			return true
		}
	}
	return false
}

// merge fills empty slots of l from other.
func (l *labels) merge(other labels) {
	for k, v := range other {
		if l[k] == "" {
			l[k] = v
		}
	}
}

type labelHit struct {
	kind       labelKind
	start, end int // span of "Label:" without the leading boundary
}

func findLabels(line string) []labelHit {
	var hits []labelHit
	for _, m := range labelRe.FindAllStringSubmatchIndex(line, -1) {
		for k := labelGroup; k < labelKinds; k++ {
			g := 2 + int(k)*2
			if m[g] >= 0 {
				hits = append(hits, labelHit{kind: k, start: m[g], end: m[1]})
				break
			}
		}
	}
	return hits
}

// scanLabels reads "Label: value" pairs from region. A value runs to the
// next label on the same line or the end of the line; an empty value takes
// the following unlabeled line, which is how OCR tends to break them.
func scanLabels(region string) labels {
	var out labels
	lines := strings.Split(region, "\n")
	for i, line := range lines {
		hits := findLabels(line)
		for j, h := range hits {
			end := len(line)
			if j+1 < len(hits) {
				end = hits[j+1].start
			}
			val := trimValue(line[h.end:end])
			if val == "" && j+1 == len(hits) && i+1 < len(lines) && len(findLabels(lines[i+1])) == 0 {
				val = trimValue(lines[i+1])
			}
			if out[h.kind] == "" {
				out[h.kind] = val
			}
		}
	}
	return out
}

// labelCut returns the offset of the first label on line, or len(line).
func labelCut(line string) int {
	if hits := findLabels(line); len(hits) > 0 {
		return hits[0].start
	}
	return len(line)
}

func trimValue(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " -–—|,;")
}

// marker is one weekday marker occurrence in the document.
type marker struct {
	start, end int
	day        Weekday
}

// findMarkers returns the weekday markers of text in order. Markers inside
// a label value ("Phòng: CN-101", "GV: Nguyễn Thu Ba") are names and rooms,
// not days.
func findMarkers(text string) []marker {
	var out []marker
	values := labelValueSpans(text)
	for _, m := range markerRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		if r, _ := utf8.DecodeRuneInString(text[end:]); end < len(text) && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			continue
		}
		if text[start:end] == "CN" && !cnStandsAlone(text[end:]) {
			continue
		}
		for len(values) > 0 && values[0].end <= start {
			values = values[1:]
		}
		if len(values) > 0 && values[0].start <= start {
			continue
		}
		day := markerDay(text[start:end])
		if !day.Valid() {
			continue
		}
		out = append(out, marker{start: start, end: end, day: day})
	}
	return out
}

type span struct {
	start, end int
}

// labelValueSpans returns, in order, the document spans of label values: from
// the end of "Label:" to the next label on the line or the end of the line.
func labelValueSpans(text string) []span {
	var out []span
	for pos := 0; pos < len(text); {
		end := strings.IndexByte(text[pos:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += pos
		}
		if line := text[pos:end]; strings.ContainsAny(line, ":：") {
			hits := findLabels(line)
			for j, h := range hits {
				vEnd := end
				if j+1 < len(hits) {
					vEnd = pos + hits[j+1].start
				}
				out = append(out, span{start: pos + h.end, end: vEnd})
			}
		}
		pos = end + 1
	}
	return out
}

// leadingClockRe matches a clock at the start of text, as in "CN 7h30 - 9h00".
var leadingClockRe = regexp.MustCompile(`^\d{1,2}[ \t]*[:hg][ \t]*\d{2}`)

// cnStandsAlone reports whether a bare "CN" followed by rest abbreviates
// Sunday. Room and class codes such as "CN-101" or "CN 101" do not.
func cnStandsAlone(rest string) bool {
	r, _ := utf8.DecodeRuneInString(rest)
	switch {
	case rest == "" || r == '\n':
		return true
	case r == ' ':
		rest = strings.TrimLeft(rest, " ")
		r, _ = utf8.DecodeRuneInString(rest)
		return rest == "" || !unicode.IsDigit(r) || leadingClockRe.MatchString(rest)
	default:
		return strings.ContainsRune(",;:)]|", r)
	}
}

func markerDay(s string) Weekday {
	if sub := markerTokenRe.FindStringSubmatch(s); sub != nil {
		return weekdayFromToken(sub[1])
	}
	if s == "CN" {
		return Sunday
	}
	return weekdayFromToken(s)
}

// periodSpan is a parsed "Tiết a - b".
type periodSpan struct {
	from, to int
}

func parsePeriod(sub []string) (periodSpan, bool) {
	from, err := strconv.Atoi(sub[1])
	if err != nil || from <= 0 {
		return periodSpan{}, false
	}
	to := from
	if sub[2] != "" {
		if to, err = strconv.Atoi(sub[2]); err != nil || to <= 0 {
			return periodSpan{}, false
		}
	}
	return periodSpan{from: from, to: to}, true
}

// clockSpan is a parsed "HH:MM - HH:MM".
type clockSpan struct {
	start, end model.Clock
}

func parseClockRange(sub []string) (clockSpan, bool) {
	n := make([]int, 4)
	for i := range n {
		v, err := strconv.Atoi(sub[i+1])
		if err != nil {
			return clockSpan{}, false
		}
		n[i] = v
	}
	if n[1] > 59 || n[3] > 59 {
		return clockSpan{}, false
	}
	c := clockSpan{start: model.NewClock(n[0], n[1]), end: model.NewClock(n[2], n[3])}
	if !c.start.Valid() || !c.end.Valid() || c.start >= c.end {
		return clockSpan{}, false
	}
	return c, true
}

// parseDate builds a calendar date from dd, mm, yyyy strings, rejecting
// dates that time.Date would normalize (31/02 and the like).
func parseDate(dd, mm, yyyy string, loc *time.Location) (time.Time, bool) {
	d, err1 := strconv.Atoi(dd)
	m, err2 := strconv.Atoi(mm)
	y, err3 := strconv.Atoi(yyyy)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	if t.Day() != d || int(t.Month()) != m || t.Year() != y {
		return time.Time{}, false
	}
	return t, true
}

// structuralSpans returns spans of weekday, period, clock and date tokens in
// line; fallback titles are whatever is left after blanking them out.
func structuralSpans(line string) [][]int {
	var spans [][]int
	for _, m := range findMarkers(line) {
		spans = append(spans, []int{m.start, m.end})
	}
	for _, re := range []*regexp.Regexp{periodRe, clockRangeRe, dateRe} {
		spans = append(spans, re.FindAllStringIndex(line, -1)...)
	}
	return spans
}

func blankSpans(line string, spans [][]int) string {
	if len(spans) == 0 {
		return line
	}
	b := []byte(line)
	for _, s := range spans {
		for i := s[0]; i < s[1]; i++ {
			b[i] = ' '
		}
	}
	return string(b)
}

func isWeekHeader(line string) bool {
	for _, re := range weekHeaderRes {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// fillerWords surround dates and times without carrying a title.
var fillerWords = map[string]bool{
	"ngày": true, "ngay": true, "lúc": true, "luc": true, "giờ": true, "gio": true,
	"từ": true, "tu": true, "đến": true, "den": true, "thời": true, "thoi": true,
	"gian": true, "vào": true, "vao": true, "date": true, "time": true,
}

// leftoverText blanks weekday, period, clock and date tokens out of line and
// drops filler words, returning what could still be a title.
func leftoverText(line string) string {
	rest := blankSpans(line, structuralSpans(line))
	words := strings.FieldsFunc(rest, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune("-–—|,;.:", r)
	})
	kept := words[:0]
	for _, w := range words {
		bare := strings.ToLower(strings.Trim(w, "()[]"))
		if bare != "" && !fillerWords[bare] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}
