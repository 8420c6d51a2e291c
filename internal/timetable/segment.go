package timetable

import "strings"

// block is a contiguous piece of the input that may describe one event.
// Blocks introduced by a weekday marker carry that marker's day.
type block struct {
	text   string
	offset int
	day    Weekday
}

// segment cuts text immediately before every weekday marker, so each marker
// opens the block it belongs to. Text before the first marker becomes its
// own unmarked block. Without markers the whole text is one block. The
// concatenation of all blocks is always the input.
func segment(text string, markers []marker) []block {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(markers) == 0 {
		return []block{{text: text}}
	}

	blocks := make([]block, 0, len(markers)+1)
	if markers[0].start > 0 {
		blocks = append(blocks, block{text: text[:markers[0].start]})
	}
	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1].start
		}
		blocks = append(blocks, block{text: text[m.start:end], offset: m.start, day: m.day})
	}
	return blocks
}
