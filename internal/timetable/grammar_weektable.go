package timetable

import "regexp"

// weekTableWindowRunes bounds how far back a week-table record looks for its
// weekday, period and clock.
const weekTableWindowRunes = 300

// recordRe matches a week-table record: a title line with optional credit
// pair and course code, followed by one or more lines carrying group, room,
// instructor or code labels.
var recordRe = regexp.MustCompile(`(?m)^[ \t]*([^\n:]*?\pL[^\n:]*?)[ \t]*` +
	`(?:\([ \t]*(\d{1,2})[ \t]*\+[ \t]*(\d{1,2})[ \t]*\))?[ \t]*` +
	`(?:[-–|][ \t]*([A-Z0-9][A-Z0-9._]*\d[A-Z0-9._]*))?[ \t]*\n` +
	`((?:[^\n]*?(?i:` + groupLabels + `|` + instructorLabels + `|` + roomLabels + `|` + codeLabels + `)[ \t]*[:：][^\n]*(?:\n|$))+)`)

// weekTableGrammar reads portal-style weekly tables:
//
//	Tuần 20 (12/05/2025 - 18/05/2025)
//	Thứ 6
//	Tiết 1 - 2
//	Phát triển ứng dụng di động đa nền tảng (2+0) - INT3120
//	Nhóm: CNTT.CQ.01 - Phòng: K23-101 - GV: Võ Văn Lên
//
// It only runs when the text declares its week. Weekday and period are not
// adjacent to the record and come from the text just before it.
type weekTableGrammar struct{}

func (weekTableGrammar) name() string { return "week-table" }

func (weekTableGrammar) match(doc *document) []draft {
	if !doc.anchorFromText {
		return nil
	}

	var out []draft
	for _, m := range recordRe.FindAllStringSubmatchIndex(doc.text, -1) {
		recStart, recEnd := m[0], m[1]
		fields := doc.text[m[10]:m[11]]

		l := scanLabels(fields)
		if !l.any(labelGroup, labelRoom, labelInstructor) {
			continue
		}

		title := doc.text[m[2]:m[3]]
		if isWeekHeader(title) {
			continue
		}
		if countLetters(leftoverText(title)) < minTitleLetters {
			title = ""
		}

		var t timing
		doc.nearestAfter(&t, recStart, recEnd)
		doc.nearestBefore(&t, backRunes(doc.text, recStart, weekTableWindowRunes), recStart)
		if !t.complete() {
			continue
		}

		d := draft{offset: recStart, title: title, day: t.day, period: t.period, clock: t.clock}
		if m[4] >= 0 {
			d.credits = doc.text[m[4]:m[5]] + "+" + doc.text[m[6]:m[7]]
		}
		if m[8] >= 0 {
			d.code = doc.text[m[8]:m[9]]
		}
		d.applyLabels(l)
		out = append(out, d)
	}
	return out
}
