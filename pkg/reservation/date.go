package reservation

import "time"

// date is a calendar day in a location. Days are stepped by date, never by
// adding 24h to an instant.
type date struct {
	year  int
	month time.Month
	day   int
	loc   *time.Location
}

func dateOf(t time.Time) date {
	y, m, d := t.Date()
	return date{year: y, month: m, day: d, loc: t.Location()}
}

func (d date) next() date {
	n := time.Date(d.year, d.month, d.day+1, 0, 0, 0, 0, time.UTC)
	return date{year: n.Year(), month: n.Month(), day: n.Day(), loc: d.loc}
}

func (d date) after(o date) bool {
	if d.year != o.year {
		return d.year > o.year
	}
	if d.month != o.month {
		return d.month > o.month
	}
	return d.day > o.day
}

// at returns the wall-clock reading tod on d. time.Date maps a reading that
// falls in a DST gap to an instant before the gap, possibly on the previous
// day; the result is moved forward by the size of the mismatch so it never
// leaves d.
func (d date) at(tod TimeOfDay) time.Time {
	t := time.Date(d.year, d.month, d.day, tod.Hour, tod.Minute, 0, 0, d.loc)

	want := time.Date(d.year, d.month, d.day, tod.Hour, tod.Minute, 0, 0, time.UTC)
	y, m, dd := t.Date()
	got := time.Date(y, m, dd, t.Hour(), t.Minute(), 0, 0, time.UTC)
	return t.Add(want.Sub(got))
}

func (d date) start() time.Time { return d.at(TimeOfDay{}) }

// end is the last millisecond of d.
func (d date) end() time.Time {
	return d.next().start().Add(-time.Millisecond)
}
