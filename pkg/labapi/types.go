package labapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/labres/pkg/reservation"
)

// Device is a reservable lab device. Maintenance bounds are "HH:MM"
// strings; either may be null, in which case the device has no window.
type Device struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	MaintenanceStart *string `json:"maintenance_start"`
	MaintenanceEnd   *string `json:"maintenance_end"`
}

// MaintenanceWindow parses the device's daily maintenance range. It returns
// nil when the device has none.
func (d Device) MaintenanceWindow() (*reservation.MaintenanceWindow, error) {
	// A nil window with a nil error means unconstrained, not a parse miss.
	return reservation.ParseMaintenanceWindow(deref(d.MaintenanceStart), deref(d.MaintenanceEnd))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Reservation is a booked time range on a device.
type Reservation struct {
	ID       int
	DeviceID int
	Start    time.Time
	End      time.Time
	Queued   bool

	// Username is the owner's username, when the API includes it.
	Username string
}

// Interval returns the reservation's time range.
func (r Reservation) Interval() reservation.Interval {
	return reservation.Interval{Start: r.Start, End: r.End}
}

type reservationJSON struct {
	ID       int    `json:"id"`
	DeviceID int    `json:"device_id"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Queued   bool   `json:"queued"`
	Username string `json:"username,omitempty"`
}

func (r *Reservation) UnmarshalJSON(data []byte) error {
	var raw reservationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	start, err := ParseTimestamp(raw.Start)
	if err != nil {
		return fmt.Errorf("reservation %d start: %w", raw.ID, err)
	}
	end, err := ParseTimestamp(raw.End)
	if err != nil {
		return fmt.Errorf("reservation %d end: %w", raw.ID, err)
	}

	*r = Reservation{
		ID:       raw.ID,
		DeviceID: raw.DeviceID,
		Start:    start,
		End:      end,
		Queued:   raw.Queued,
		Username: raw.Username,
	}
	return nil
}

func (r Reservation) MarshalJSON() ([]byte, error) {
	return json.Marshal(reservationJSON{
		ID:       r.ID,
		DeviceID: r.DeviceID,
		Start:    FormatTimestamp(r.Start),
		End:      FormatTimestamp(r.End),
		Queued:   r.Queued,
		Username: r.Username,
	})
}

// ReservationInput is the body of create and update requests.
type ReservationInput struct {
	DeviceID int       `validate:"required,gt=0"`
	Start    time.Time `validate:"required"`
	End      time.Time `validate:"required,gtfield=Start"`
}

func (in ReservationInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DeviceID int    `json:"device_id"`
		Start    string `json:"start"`
		End      string `json:"end"`
	}{
		DeviceID: in.DeviceID,
		Start:    FormatTimestamp(in.Start),
		End:      FormatTimestamp(in.End),
	})
}

// Timestamps without an offset are how the API echoes naive datetimes; they
// are read in the local zone.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts RFC 3339 and the API's offset-less ISO forms.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("labapi: invalid timestamp %q", s)
}

// FormatTimestamp renders t as RFC 3339 with its local offset. Fractional
// seconds are kept when present.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
