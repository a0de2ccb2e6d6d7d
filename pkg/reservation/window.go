package reservation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeOfDay reports a maintenance bound that is not HH:MM.
var ErrInvalidTimeOfDay = errors.New("reservation: invalid time of day")

// TimeOfDay is a wall-clock time without a date, minute resolution.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM". A trailing ":SS" component is accepted
// and ignored because the device API sometimes serialises TIME columns with
// seconds.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
		}
	}

	return TimeOfDay{Hour: h, Minute: m}, nil
}

// String returns the canonical HH:MM form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Before reports whether t is earlier in the day than o.
func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.minutes() < o.minutes()
}

func (t TimeOfDay) minutes() int { return t.Hour*60 + t.Minute }

// MaintenanceWindow is a daily recurring range during which a device cannot
// be reserved.
type MaintenanceWindow struct {
	Start TimeOfDay
	End   TimeOfDay
}

// ParseMaintenanceWindow builds a window from the device API's
// maintenance_start/maintenance_end strings. If either bound is empty the
// device has no maintenance constraint and nil is returned.
func ParseMaintenanceWindow(start, end string) (*MaintenanceWindow, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return nil, nil
	}

	s, err := ParseTimeOfDay(start)
	if err != nil {
		return nil, fmt.Errorf("maintenance_start: %w", err)
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return nil, fmt.Errorf("maintenance_end: %w", err)
	}

	return &MaintenanceWindow{Start: s, End: e}, nil
}

// String renders the window as "HH:MM-HH:MM".
func (w MaintenanceWindow) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// Window is a concrete maintenance range on one calendar day.
type Window struct {
	Start time.Time
	End   time.Time
}

// on returns the maintenance ranges that fall on the calendar day of day.
// A window whose end is before its start wraps past midnight and yields two
// same-day pieces. Equal bounds describe an empty window.
func (w MaintenanceWindow) on(day date) []Window {
	switch {
	case w.Start == w.End:
		return nil
	case w.Start.Before(w.End):
		return []Window{{Start: day.at(w.Start), End: day.at(w.End)}}
	default:
		return []Window{
			{Start: day.start(), End: day.at(w.End)},
			{Start: day.at(w.Start), End: day.next().start()},
		}
	}
}
