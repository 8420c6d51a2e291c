package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tkbcal/internal/model"
)

func TestLookupPeriod(t *testing.T) {
	tests := []struct {
		period     int
		start, end string
	}{
		{1, "07:00", "07:50"},
		{2, "07:50", "08:40"},
		{3, "09:00", "09:50"},
		{6, "13:00", "13:50"},
		{10, "16:40", "17:30"},
		{13, "19:40", "20:30"},
		{14, "20:30", "21:20"},
		{15, "21:20", "22:10"},
		{18, "23:50", "23:59"},
		{40, "23:59", "23:59"},
		{0, "06:10", "07:00"},
	}
	for _, tt := range tests {
		got := LookupPeriod(tt.period)
		assert.Equal(t, tt.start, got.Start.String(), "period %d start", tt.period)
		assert.Equal(t, tt.end, got.End.String(), "period %d end", tt.period)
	}
}

func TestPeriodRange(t *testing.T) {
	r := PeriodRange(1, 2)
	assert.Equal(t, model.NewClock(7, 0), r.Start)
	assert.Equal(t, model.NewClock(8, 40), r.End)

	assert.Equal(t, r, PeriodRange(2, 1))

	r = PeriodRange(6, 8)
	assert.Equal(t, "13:00", r.Start.String())
	assert.Equal(t, "15:50", r.End.String())

	r = PeriodRange(12, 14)
	assert.Equal(t, "18:50", r.Start.String())
	assert.Equal(t, "21:20", r.End.String())
}

func TestLookupPeriodPastTableKeepsOrder(t *testing.T) {
	for p := LastPeriod + 1; p <= 17; p++ {
		assert.Equal(t, LookupPeriod(p-1).End, LookupPeriod(p).Start, "period %d", p)
		assert.Less(t, int(LookupPeriod(p).Start), int(LookupPeriod(p).End), "period %d", p)
	}
}

func TestPeriodTableIsOrdered(t *testing.T) {
	for p := FirstPeriod; p <= LastPeriod; p++ {
		pt := LookupPeriod(p)
		assert.Less(t, int(pt.Start), int(pt.End), "period %d", p)
		if p > FirstPeriod {
			assert.LessOrEqual(t, int(LookupPeriod(p-1).End), int(pt.Start), "period %d", p)
		}
	}
}

func TestWeekdayFromNumeral(t *testing.T) {
	assert.Equal(t, Monday, WeekdayFromNumeral(2))
	assert.Equal(t, Saturday, WeekdayFromNumeral(7))
	assert.Equal(t, Sunday, WeekdayFromNumeral(SundayWeekTable))
	assert.Equal(t, Sunday, WeekdayFromNumeral(SundayAnnotated))
	assert.Equal(t, InvalidWeekday, WeekdayFromNumeral(0))
	assert.Equal(t, InvalidWeekday, WeekdayFromNumeral(9))
}

func TestWeekday(t *testing.T) {
	assert.Equal(t, time.Friday, Friday.Time())
	assert.Equal(t, time.Sunday, Sunday.Time())
	assert.Equal(t, 8, Sunday.Numeral())
	assert.Equal(t, "Thứ 6", Friday.String())
	assert.Equal(t, "Chủ nhật", Sunday.String())
	assert.False(t, InvalidWeekday.Valid())

	assert.Equal(t, Wednesday, weekdayFromToken("Tư"))
	assert.Equal(t, Saturday, weekdayFromToken("bảy"))
	assert.Equal(t, Sunday, weekdayFromToken("Chủ  nhật"))
	assert.Equal(t, InvalidWeekday, weekdayFromToken("mười"))
}

func TestResolveAnchor(t *testing.T) {
	today := day(2025, 5, 14)

	got, ok := ResolveAnchor("Tuần 20 (12/05/2025 - 18/05/2025)", today)
	assert.True(t, ok)
	assert.Equal(t, day(2025, 5, 12), got)

	got, ok = ResolveAnchor("Lịch học từ ngày 19/05/2025 đến ngày 25/05/2025", today)
	assert.True(t, ok)
	assert.Equal(t, day(2025, 5, 19), got)

	got, ok = ResolveAnchor("Thứ 6\nTiết 1 - 2", today)
	assert.False(t, ok)
	assert.Equal(t, today, got)

	// 31/02 is not a date
	got, ok = ResolveAnchor("Tuần 9 (31/02/2025 - 06/03/2025)", today)
	assert.False(t, ok)
	assert.Equal(t, today, got)
}

func TestProjectWeekday(t *testing.T) {
	monday := day(2025, 5, 12)
	assert.Equal(t, day(2025, 5, 16), ProjectWeekday(monday, Friday))
	assert.Equal(t, monday, ProjectWeekday(monday, Monday))
	assert.Equal(t, day(2025, 5, 18), ProjectWeekday(monday, Sunday))

	wednesday := day(2025, 5, 14)
	assert.Equal(t, day(2025, 5, 19), ProjectWeekday(wednesday, Monday))
	assert.Equal(t, wednesday, ProjectWeekday(wednesday, InvalidWeekday))
}
