package risk

import "time"

// dayOpen returns midnight of `now` in the gate's trading timezone.
func dayOpen(loc *time.Location, now time.Time) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// sameTradingDay checks whether a and b fall on the same local day.
func sameTradingDay(loc *time.Location, a, b time.Time) bool {
	return dayOpen(loc, a).Equal(dayOpen(loc, b))
}

// nextDayOpen returns the next local midnight after `now`.
func nextDayOpen(loc *time.Location, now time.Time) time.Time {
	return dayOpen(loc, now).AddDate(0, 0, 1)
}
