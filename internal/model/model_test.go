package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("7:05")
	require.NoError(t, err)
	assert.Equal(t, NewClock(7, 5), c)
	assert.Equal(t, "07:05", c.String())

	for _, bad := range []string{"", "0705", "24:00", "12:60", "a:10", "-1:00"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestEventJSON(t *testing.T) {
	ev := Event{
		ID:          "1",
		Title:       "Cơ sở dữ liệu",
		Date:        time.Date(2025, 5, 16, 0, 0, 0, 0, time.Local),
		StartTime:   NewClock(7, 0),
		EndTime:     NewClock(8, 40),
		Location:    "K23-101",
		Description: "",
	}

	b, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","title":"Cơ sở dữ liệu","date":"2025-05-16","start_time":"07:00","end_time":"08:40","location":"K23-101"}`, string(b))

	var back Event
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, ev.Title, back.Title)
	assert.True(t, ev.Date.Equal(back.Date))
	assert.Equal(t, ev.StartTime, back.StartTime)
	assert.Equal(t, ev.EndTime, back.EndTime)

	assert.Error(t, json.Unmarshal([]byte(`{"date":"16/05/2025","start_time":"07:00","end_time":"08:00"}`), &back))
	assert.Error(t, json.Unmarshal([]byte(`{"date":"2025-05-16","start_time":"7h","end_time":"08:00"}`), &back))
}

func TestEventStartEnd(t *testing.T) {
	loc := time.FixedZone("ICT", 7*60*60)
	ev := Event{
		Date:      time.Date(2025, 5, 16, 0, 0, 0, 0, loc),
		StartTime: NewClock(13, 0),
		EndTime:   NewClock(14, 40),
	}
	assert.Equal(t, time.Date(2025, 5, 16, 13, 0, 0, 0, loc), ev.Start())
	assert.Equal(t, time.Date(2025, 5, 16, 14, 40, 0, 0, loc), ev.End())
}
