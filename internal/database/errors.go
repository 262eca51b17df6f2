package database

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest covers every malformed or unsatisfiable booking
	// request. The specific sentinels below wrap it so callers can match
	// either the broad class or the exact cause.
	ErrInvalidRequest = errors.New("invalid request")

	ErrSlotConflict = errors.New("time slot is already booked")
	ErrNotFound     = errors.New("not found")

	ErrUnknownService = fmt.Errorf("%w: unknown service", ErrInvalidRequest)
	ErrUnknownBarber  = fmt.Errorf("%w: unknown barber", ErrInvalidRequest)
	ErrPastDate       = fmt.Errorf("%w: reservation date is in the past", ErrInvalidRequest)
	ErrNoServices     = fmt.Errorf("%w: at least one service must be specified", ErrInvalidRequest)
	ErrBadTimeRange   = fmt.Errorf("%w: end time must be after start time", ErrInvalidRequest)
)
