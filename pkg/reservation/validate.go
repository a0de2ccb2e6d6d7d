package reservation

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInterval     = errors.New("reservation: start must be before end")
	ErrInPast              = errors.New("reservation: cannot reserve time in the past")
	ErrPastReadOnly        = errors.New("reservation: past reservations are read-only")
	ErrMaintenanceConflict = errors.New("reservation: overlaps device maintenance")
)

// Reason classifies why a reservation was rejected.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonInvalidInterval Reason = "invalid_interval"
	ReasonInPast          Reason = "in_past"
	ReasonPastReadOnly    Reason = "past_read_only"
	ReasonMaintenance     Reason = "maintenance_conflict"
)

// RejectionError is the error form of a rejected Verdict. It unwraps to the
// sentinel matching its Reason so callers can use errors.Is.
type RejectionError struct {
	Reason   Reason
	Conflict *Window
}

func (e *RejectionError) Error() string {
	msg := e.Unwrap().Error()
	if e.Conflict != nil {
		return fmt.Sprintf("%s on %s (%s-%s)",
			msg,
			e.Conflict.Start.Format("2006-01-02"),
			e.Conflict.Start.Format("15:04"),
			e.Conflict.End.Format("15:04"),
		)
	}
	return msg
}

func (e *RejectionError) Unwrap() error {
	switch e.Reason {
	case ReasonInvalidInterval:
		return ErrInvalidInterval
	case ReasonInPast:
		return ErrInPast
	case ReasonPastReadOnly:
		return ErrPastReadOnly
	case ReasonMaintenance:
		return ErrMaintenanceConflict
	default:
		return errors.New("reservation: rejected")
	}
}

// Verdict is the structured decision for a proposed reservation.
type Verdict struct {
	Allowed  bool
	Reason   Reason
	Conflict *Window
}

// Err returns nil for an allowed verdict and a *RejectionError otherwise.
func (v Verdict) Err() error {
	if v.Allowed {
		return nil
	}
	return &RejectionError{Reason: v.Reason, Conflict: v.Conflict}
}

// ValidateSubmission checks the temporal rules that apply at the moment a
// reservation is submitted: the interval must be non-empty and neither end
// may lie strictly before now.
func ValidateSubmission(now time.Time, iv Interval) error {
	if !iv.Valid() {
		return &RejectionError{Reason: ReasonInvalidInterval}
	}
	if iv.Start.Before(now) || iv.End.Before(now) {
		return &RejectionError{Reason: ReasonInPast}
	}
	return nil
}

// ValidateEdit rejects edits to a reservation that has already ended.
func ValidateEdit(now time.Time, existing Interval) error {
	if existing.End.Before(now) {
		return &RejectionError{Reason: ReasonPastReadOnly}
	}
	return nil
}

// Evaluate runs the full decision for a create (existing == nil) or an
// edit. The edit guard runs first, then the submission rules, then the
// maintenance check. now must be taken at submission time, not when the
// interval was built.
func Evaluate(now time.Time, iv Interval, w *MaintenanceWindow, existing *Interval) Verdict {
	if existing != nil {
		if err := ValidateEdit(now, *existing); err != nil {
			return verdictFrom(err)
		}
	}
	if err := ValidateSubmission(now, iv); err != nil {
		return verdictFrom(err)
	}

	res := CheckMaintenance(iv, w)
	if !res.Allowed {
		return Verdict{Reason: ReasonMaintenance, Conflict: res.Conflict}
	}
	return Verdict{Allowed: true}
}

func verdictFrom(err error) Verdict {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return Verdict{Reason: rej.Reason, Conflict: rej.Conflict}
	}
	return Verdict{Reason: ReasonInvalidInterval}
}
