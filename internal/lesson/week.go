package lesson

import "time"

// WeekWindow returns the calendar week containing now in now's location, as the
// half open interval [Monday 00:00, next Monday 00:00)
func WeekWindow(now time.Time) (start, end time.Time) {
	y, m, d := now.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	sinceMonday := (int(day.Weekday()) + 6) % 7
	start = day.AddDate(0, 0, -sinceMonday)
	end = start.AddDate(0, 0, 7)
	return
}
