package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tkbcal/internal/model"
)

var ict = time.FixedZone("ICT", 7*60*60)

func sampleEvents() []model.Event {
	return []model.Event{
		{
			ID:          "1",
			Title:       "Cơ sở dữ liệu",
			Date:        time.Date(2025, 5, 12, 0, 0, 0, 0, ict),
			StartTime:   model.NewClock(9, 0),
			EndTime:     model.NewClock(10, 40),
			Location:    "A2-305",
			Description: "Nhóm: 02 | GV: Trần Thị B",
		},
		{
			ID:        "2",
			Title:     "Phát triển ứng dụng di động",
			Date:      time.Date(2025, 5, 16, 0, 0, 0, 0, ict),
			StartTime: model.NewClock(7, 0),
			EndTime:   model.NewClock(8, 40),
		},
	}
}

func TestEncode(t *testing.T) {
	stamp := time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC)
	out := Encode(sampleEvents(), EncodeOptions{Name: "TKB", Scope: "inbox/tkb.txt", Stamp: stamp})

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "METHOD:PUBLISH")
	assert.Contains(t, out, "PRODID:"+DefaultProductID)
	assert.Contains(t, out, "X-WR-CALNAME:TKB")
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "SUMMARY:Cơ sở dữ liệu")
	assert.Contains(t, out, "DTSTART:20250512T020000Z")
	assert.Contains(t, out, "DTEND:20250512T034000Z")
	assert.Contains(t, out, "LOCATION:A2-305")
	assert.Contains(t, out, "DTSTAMP:20250514T000000Z")
	assert.NotContains(t, out, "RRULE")
}

func TestEncodeRepeatWeeks(t *testing.T) {
	out := Encode(sampleEvents()[:1], EncodeOptions{RepeatWeeks: 4})
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY;COUNT=4")
	assert.Equal(t, "FREQ=WEEKLY;COUNT=15", WeeklyRule(15))
}

func TestEventUID(t *testing.T) {
	ev := sampleEvents()[0]
	assert.Equal(t, EventUID("a", ev), EventUID("a", ev))
	assert.NotEqual(t, EventUID("a", ev), EventUID("b", ev))
	assert.True(t, strings.HasSuffix(EventUID("a", ev), "@tkbcal"))

	moved := ev
	moved.StartTime = model.NewClock(9, 50)
	assert.NotEqual(t, EventUID("a", ev), EventUID("a", moved))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := sampleEvents()
	events, err := Decode([]byte(Encode(in, EncodeOptions{})), DecodeOptions{Location: ict})
	require.NoError(t, err)
	require.Len(t, events, 2)

	for i := range in {
		assert.Equal(t, in[i].ID, events[i].ID)
		assert.Equal(t, in[i].Title, events[i].Title)
		assert.True(t, in[i].Date.Equal(events[i].Date))
		assert.Equal(t, in[i].StartTime, events[i].StartTime)
		assert.Equal(t, in[i].EndTime, events[i].EndTime)
		assert.Equal(t, in[i].Location, events[i].Location)
		assert.Equal(t, in[i].Description, events[i].Description)
	}
}

func TestDecodeExpandsRule(t *testing.T) {
	body := Encode(sampleEvents()[1:], EncodeOptions{RepeatWeeks: 3})
	events, err := Decode([]byte(body), DecodeOptions{Location: ict})
	require.NoError(t, err)
	require.Len(t, events, 3)

	for i, want := range []int{16, 23, 30} {
		assert.Equal(t, want, events[i].Date.Day())
		assert.Equal(t, "07:00", events[i].StartTime.String())
	}
}

func icsDoc(lines ...string) []byte {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR", "")
	return []byte(strings.Join(all, "\r\n"))
}

func TestDecodeSkipsUnusableEvents(t *testing.T) {
	body := icsDoc(
		"BEGIN:VEVENT",
		"UID:all-day",
		"DTSTART;VALUE=DATE:20250516",
		"DTEND;VALUE=DATE:20250517",
		"SUMMARY:Nghỉ lễ",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:overnight",
		"DTSTART:20250516T150000Z",
		"DTEND:20250517T010000Z",
		"SUMMARY:Trực đêm",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:no-end",
		"DTSTART:20250516T010000Z",
		"SUMMARY:Thiếu giờ kết thúc",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:ok",
		"DTSTART:20250516T000000Z",
		"DTEND:20250516T014000Z",
		"SUMMARY:Lập trình web",
		"END:VEVENT",
	)

	events, err := Decode(body, DecodeOptions{Location: ict})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Lập trình web", events[0].Title)
	assert.Equal(t, "07:00", events[0].StartTime.String())
	assert.Equal(t, "08:40", events[0].EndTime.String())
}

func TestDecodeExDate(t *testing.T) {
	body := icsDoc(
		"BEGIN:VEVENT",
		"UID:weekly",
		"DTSTART:20250512T020000Z",
		"DTEND:20250512T034000Z",
		"RRULE:FREQ=WEEKLY;COUNT=3",
		"EXDATE:20250519T020000Z",
		"SUMMARY:Cơ sở dữ liệu",
		"END:VEVENT",
	)
	events, err := Decode(body, DecodeOptions{Location: ict})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 12, events[0].Date.Day())
	assert.Equal(t, 26, events[1].Date.Day())
}

func TestDecodeEmpty(t *testing.T) {
	_, err := Decode([]byte("  \n"), DecodeOptions{})
	assert.Error(t, err)
}

func TestRepeatWeekly(t *testing.T) {
	out, err := RepeatWeekly(sampleEvents(), 2)
	require.NoError(t, err)
	require.Len(t, out, 4)

	var days []int
	var ids []string
	for _, ev := range out {
		days = append(days, ev.Date.Day())
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []int{12, 16, 19, 23}, days)
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids)
	assert.Equal(t, "Cơ sở dữ liệu", out[2].Title)
	assert.Equal(t, ict, out[2].Date.Location())

	_, err = RepeatWeekly(sampleEvents(), 0)
	assert.Error(t, err)
}
