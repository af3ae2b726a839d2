package clock

import (
	"errors"
)

// Clock domain errors
var (
	ErrInvalidEventType = errors.New("invalid event type")
	ErrInvalidSequence  = errors.New("invalid punch sequence")

	// ErrConcurrentPunch is returned when another punch for the same user was
	// stored between reading the last event and appending the new one.
	ErrConcurrentPunch = errors.New("another punch was registered at the same time, please retry")
)

// SequenceError reports a punch that is illegal given the user's last event.
type SequenceError struct {
	Last     *EventType
	Proposed EventType
	Reason   string
}

func (e *SequenceError) Error() string {
	return e.Reason
}

func (e *SequenceError) Is(target error) bool {
	return target == ErrInvalidSequence
}
