package reservation

import "time"

// Interval is a half-open reservation range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether Start is strictly before End.
func (iv Interval) Valid() bool {
	return iv.Start.Before(iv.End)
}

// Result is the outcome of a maintenance check. Conflict is set only when
// Allowed is false and names the maintenance window of the first
// conflicting day.
type Result struct {
	Allowed  bool
	Conflict *Window
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share an
// instant. Ranges that only touch at a boundary do not overlap. The
// predicate is commutative.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Days returns the start of every calendar day the interval touches, partial
// days included, in the location of iv.Start. Days are enumerated by date,
// so a midnight skipped by a DST change still yields its day.
func Days(iv Interval) []time.Time {
	var days []time.Time
	for _, d := range datesOf(iv) {
		days = append(days, d.start())
	}
	return days
}

func datesOf(iv Interval) []date {
	loc := iv.Start.Location()
	last := dateOf(iv.End.In(loc))

	var dates []date
	for d := dateOf(iv.Start); !d.after(last); d = d.next() {
		dates = append(dates, d)
	}
	return dates
}

// CheckMaintenance decides whether iv may be reserved on a device with the
// given maintenance window. A nil window always allows. Every touched day is
// checked and the scan stops at the first conflicting day.
func CheckMaintenance(iv Interval, w *MaintenanceWindow) Result {
	if w == nil {
		return Result{Allowed: true}
	}

	for _, day := range datesOf(iv) {
		if c, ok := conflictOn(iv, *w, day); ok {
			return Result{Allowed: false, Conflict: &c}
		}
	}
	return Result{Allowed: true}
}

// FindConflicts reports the maintenance window of every conflicting day, in
// calendar order.
func FindConflicts(iv Interval, w *MaintenanceWindow) []Window {
	if w == nil {
		return nil
	}

	var out []Window
	for _, day := range datesOf(iv) {
		if c, ok := conflictOn(iv, *w, day); ok {
			out = append(out, c)
		}
	}
	return out
}

// conflictOn clips iv to the day and tests it against that day's
// maintenance pieces.
func conflictOn(iv Interval, w MaintenanceWindow, day date) (Window, bool) {
	effStart := later(iv.Start, day.start())
	effEnd := earlier(iv.End, day.end())

	for _, m := range w.on(day) {
		if Overlaps(effStart, effEnd, m.Start, m.End) {
			return m, true
		}
	}
	return Window{}, false
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
