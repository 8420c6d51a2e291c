package timetable

import "strings"

// annotatedGrammar reads fully labeled blocks:
//
//	Thứ 6, 16/05/2025
//	Tiết 1 - 2 (07:00 - 08:40)
//	Môn học: Phát triển ứng dụng di động đa nền tảng (2+0)
//	Giảng viên: Võ Văn Lên
//	Phòng: K23-101
//
// The weekday line must carry the date, and the block needs a period range
// and a labeled title. The explicit date wins over weekday projection.
type annotatedGrammar struct{}

func (annotatedGrammar) name() string { return "annotated" }

func (annotatedGrammar) match(doc *document) []draft {
	var out []draft
	for _, b := range doc.blocks {
		if !b.day.Valid() {
			continue
		}

		head, _, _ := strings.Cut(b.text, "\n")
		ds := dateRe.FindStringSubmatch(head)
		if ds == nil {
			continue
		}
		date, ok := parseDate(ds[1], ds[2], ds[3], doc.today.Location())
		if !ok {
			continue
		}

		ps := periodRe.FindStringSubmatch(b.text)
		if ps == nil {
			continue
		}
		period, ok := parsePeriod(ps)
		if !ok {
			continue
		}

		l := scanLabels(b.text)
		if l[labelTitle] == "" {
			continue
		}

		d := draft{offset: b.offset, date: date, day: b.day, period: &period}
		if cs := clockRangeRe.FindStringSubmatch(b.text); cs != nil {
			if c, ok := parseClockRange(cs); ok {
				d.clock = &c
			}
		}
		d.applyLabels(l)
		out = append(out, d)
	}
	return out
}
