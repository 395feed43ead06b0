package forecast

import "time"

// BusinessDays returns n consecutive Monday to Friday dates starting the day after last.
// No holiday calendar is applied.
func BusinessDays(last time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, last.Location())
	for len(out) < n {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}
