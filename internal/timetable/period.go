package timetable

import "tkbcal/internal/model"

// PeriodTime is the canonical clock range of one class period.
type PeriodTime struct {
	Start model.Clock
	End   model.Clock
}

const (
	// FirstPeriod and LastPeriod bound the institutional table.
	FirstPeriod = 1
	LastPeriod  = 13

	// periodLength and firstPeriodStart drive the synthesized lookup for
	// indexes outside the table. The result is an approximation only.
	periodLength     = 50
	firstPeriodStart = model.Clock(7 * 60)
	lastMinuteOfDay  = model.Clock(24*60 - 1)
)

// periodTable is indexed by period number; slot 0 is unused.
var periodTable = [LastPeriod + 1]PeriodTime{
	1:  {model.NewClock(7, 0), model.NewClock(7, 50)},
	2:  {model.NewClock(7, 50), model.NewClock(8, 40)},
	3:  {model.NewClock(9, 0), model.NewClock(9, 50)},
	4:  {model.NewClock(9, 50), model.NewClock(10, 40)},
	5:  {model.NewClock(10, 40), model.NewClock(11, 30)},
	6:  {model.NewClock(13, 0), model.NewClock(13, 50)},
	7:  {model.NewClock(13, 50), model.NewClock(14, 40)},
	8:  {model.NewClock(15, 0), model.NewClock(15, 50)},
	9:  {model.NewClock(15, 50), model.NewClock(16, 40)},
	10: {model.NewClock(16, 40), model.NewClock(17, 30)},
	11: {model.NewClock(18, 0), model.NewClock(18, 50)},
	12: {model.NewClock(18, 50), model.NewClock(19, 40)},
	13: {model.NewClock(19, 40), model.NewClock(20, 30)},
}

// LookupPeriod returns the clock range of period p. Indexes past LastPeriod
// continue as consecutive 50-minute slots after the last table period, so
// period order stays clock order; indexes below FirstPeriod count back from
// 07:00. Both are clamped to the same day.
func LookupPeriod(p int) PeriodTime {
	if p >= FirstPeriod && p <= LastPeriod {
		return periodTable[p]
	}
	start := firstPeriodStart + model.Clock((p-FirstPeriod)*periodLength)
	if p > LastPeriod {
		start = periodTable[LastPeriod].End + model.Clock((p-LastPeriod-1)*periodLength)
	}
	end := start + periodLength
	return PeriodTime{Start: clampClock(start), End: clampClock(end)}
}

// PeriodRange returns the clock range spanning periods from..to inclusive.
// A reversed range is swapped.
func PeriodRange(from, to int) PeriodTime {
	if from > to {
		from, to = to, from
	}
	return PeriodTime{Start: LookupPeriod(from).Start, End: LookupPeriod(to).End}
}

func clampClock(c model.Clock) model.Clock {
	if c < 0 {
		return 0
	}
	if c > lastMinuteOfDay {
		return lastMinuteOfDay
	}
	return c
}
