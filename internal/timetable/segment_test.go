package timetable

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMarkers(t *testing.T) {
	text := "Thứ 2: Toán\nthu 3 Lý\nTHỨ BẢY, Chủ nhật | CN\nCNTT.CQ.01 Thứ 22"
	markers := findMarkers(text)

	var days []Weekday
	for _, m := range markers {
		days = append(days, m.day)
	}
	assert.Equal(t, []Weekday{Monday, Tuesday, Saturday, Sunday, Sunday}, days)
}

func TestFindMarkers_IgnoresCodesAndNames(t *testing.T) {
	text := strings.Join([]string{
		"Phòng: CN-101",
		"GV: Nguyễn Thu Ba",
		"CN 101",
		"CN-A",
		"CN 7h30 - 9h00 Sinh hoạt",
		"Lịch thi: CN",
		"Thứ 3, Phòng: B2",
	}, "\n")

	var days []Weekday
	for _, m := range findMarkers(text) {
		days = append(days, m.day)
	}
	assert.Equal(t, []Weekday{Sunday, Sunday, Tuesday}, days)
}

func TestLabelValueSpans(t *testing.T) {
	text := "Toán\nNhóm: 02 - Phòng: CN-101"
	spans := labelValueSpans(text)
	require.Len(t, spans, 2)
	assert.Equal(t, " 02 - ", text[spans[0].start:spans[0].end])
	assert.Equal(t, " CN-101", text[spans[1].start:spans[1].end])
}

func TestSegment(t *testing.T) {
	text := "Lịch học\nThứ 2\nToán\nThứ 4\nLý\n"
	blocks := segment(text, findMarkers(text))
	require.Len(t, blocks, 3)

	assert.Equal(t, "Lịch học\n", blocks[0].text)
	assert.Equal(t, InvalidWeekday, blocks[0].day)
	assert.Equal(t, "Thứ 2\nToán\n", blocks[1].text)
	assert.Equal(t, Monday, blocks[1].day)
	assert.Equal(t, "Thứ 4\nLý\n", blocks[2].text)
	assert.Equal(t, Wednesday, blocks[2].day)

	var b strings.Builder
	for _, blk := range blocks {
		b.WriteString(blk.text)
	}
	assert.Equal(t, text, b.String())
}

func TestSegment_NoMarkers(t *testing.T) {
	blocks := segment("Seminar\nPhòng: A", nil)
	require.Len(t, blocks, 1)
	assert.Equal(t, "Seminar\nPhòng: A", blocks[0].text)

	assert.Empty(t, segment(" \n ", nil))
}

func TestScanLabels(t *testing.T) {
	l := scanLabels("Nhóm: 01 - Phòng: A2-305 - GV: Lê C\nMã HP: INT2211\nMôn học:\nCơ sở dữ liệu")
	assert.Equal(t, "01", l[labelGroup])
	assert.Equal(t, "A2-305", l[labelRoom])
	assert.Equal(t, "Lê C", l[labelInstructor])
	assert.Equal(t, "INT2211", l[labelCode])
	assert.Equal(t, "Cơ sở dữ liệu", l[labelTitle])
	assert.True(t, l.any(labelRoom))

	var empty labels
	assert.False(t, empty.any(labelGroup, labelRoom))
	empty.merge(l)
	assert.Equal(t, l, empty)
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		raw, title, credits string
	}{
		{"Phát triển ứng dụng (2+0)", "Phát triển ứng dụng", "2+0"},
		{"  1. Toán cao cấp ( 3 + 1 ) - ", "Toán cao cấp", "3+1"},
		{"* Lập trình .NET (*)", "Lập trình .NET", ""},
		{"Hệ điều hành ()", "Hệ điều hành", ""},
		{" - | ", "", ""},
	}
	for _, tt := range tests {
		title, credits := cleanTitle(tt.raw)
		assert.Equal(t, tt.title, title, "raw %q", tt.raw)
		assert.Equal(t, tt.credits, credits, "raw %q", tt.raw)
	}
}

func TestLeftoverText(t *testing.T) {
	assert.Equal(t, "", leftoverText("Thứ 6 Tiết 1 - 2 (07:00 - 08:40)"))
	assert.Equal(t, "", leftoverText("Ngày 16/05/2025"))
	assert.Equal(t, "Hệ điều hành", leftoverText("Thứ bảy Tiết 6 - 7 Hệ điều hành"))
}
