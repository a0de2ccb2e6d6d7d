package calendar

import (
	"errors"
	"fmt"
)

var (
	ErrNoDevice           = errors.New("calendar: no device selected")
	ErrUnknownReservation = errors.New("calendar: reservation not found")
)

// Generic messages used when the API gave no explanation.
const (
	msgSaveFailed   = "Failed to save reservation"
	msgDeleteFailed = "Failed to delete reservation"
)

// Op names a reservation write.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// WriteError is a failed create, update or delete. Message is what the user
// should see: the server's explanation when it sent one, otherwise a
// generic message.
type WriteError struct {
	Op      Op
	Message string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s reservation: %s", e.Op, e.Message)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
