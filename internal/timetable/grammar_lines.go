package timetable

import "strings"

// lineGrammar handles text without any weekday marker, typically a single
// pasted event:
//
//	Seminar khoa học
//	Phòng: Hội trường A
//	Giảng viên: Nguyễn Văn A
//	Mang theo laptop
//
// Labeled lines fill their fields, the first unlabeled line is the title and
// the remaining unlabeled lines become the description. Missing date and
// times take the documented defaults.
type lineGrammar struct{}

func (lineGrammar) name() string { return "lines" }

func (lineGrammar) match(doc *document) []draft {
	if len(doc.markers) > 0 || len(doc.blocks) != 1 {
		return nil
	}
	text := doc.blocks[0].text

	d := draft{date: doc.today}
	if doc.anchorFromText {
		d.date = doc.anchor
	} else if ds := dateRe.FindStringSubmatch(text); ds != nil {
		if date, ok := parseDate(ds[1], ds[2], ds[3], doc.today.Location()); ok {
			d.date = date
		}
	}
	if cs := clockRangeRe.FindStringSubmatch(text); cs != nil {
		if c, ok := parseClockRange(cs); ok {
			d.clock = &c
		}
	}
	if ps := periodRe.FindStringSubmatch(text); ps != nil {
		if p, ok := parsePeriod(ps); ok {
			d.period = &p
		}
	}

	var unlabeled []string
	skipNext := false
	for _, line := range strings.Split(text, "\n") {
		if skipNext {
			skipNext = false
			continue
		}
		if hits := findLabels(line); len(hits) > 0 {
			// "Phòng:" with its value on the next line
			skipNext = trimValue(line[hits[len(hits)-1].end:]) == ""
			continue
		}
		if isWeekHeader(line) || countLetters(leftoverText(line)) == 0 {
			continue
		}
		unlabeled = append(unlabeled, trimValue(line))
	}

	l := scanLabels(text)
	switch {
	case l[labelTitle] != "":
		d.remainder = unlabeled
	case len(unlabeled) > 0:
		d.title, d.remainder = unlabeled[0], unlabeled[1:]
	}
	d.applyLabels(l)
	return []draft{d}
}
