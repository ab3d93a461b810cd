package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Seoul")
	if err != nil {
		panic(err)
	}
}

// the upstream site publishes its chart on Korean time, so date math
// (chart_date, week-of-month) must not depend on wherever the collector
// happens to be deployed
func Now() time.Time {
	return time.Now().In(Location)
}

// Today returns the current date truncated to midnight in the site's timezone.
func Today() time.Time {
	now := Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, Location)
}

// WeekOfMonth computes which week of the month t falls in, counting
// days 1-7 as week 1, 8-14 as week 2 and so on.
func WeekOfMonth(t time.Time) int {
	return ((t.Day() - 1) / 7) + 1
}
