package clock

import (
	"fmt"
	"time"
)

// EventType is the closed set of punch kinds an employee can record.
type EventType uint8

const (
	ClockIn EventType = iota + 1
	ClockOut
	BreakStart
	BreakEnd
)

// EventTypes lists every valid event type in transition-table order.
var EventTypes = []EventType{ClockIn, ClockOut, BreakStart, BreakEnd}

func (t EventType) String() string {
	switch t {
	case ClockIn:
		return "clock_in"
	case ClockOut:
		return "clock_out"
	case BreakStart:
		return "break_start"
	case BreakEnd:
		return "break_end"
	default:
		return fmt.Sprintf("event_type(%d)", uint8(t))
	}
}

func (t EventType) IsValid() bool {
	return t >= ClockIn && t <= BreakEnd
}

// ParseEventType converts the wire/storage form into an EventType.
func ParseEventType(s string) (EventType, error) {
	switch s {
	case "clock_in":
		return ClockIn, nil
	case "clock_out":
		return ClockOut, nil
	case "break_start":
		return BreakStart, nil
	case "break_end":
		return BreakEnd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidEventType, s)
	}
}

func (t EventType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidEventType, uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *EventType) UnmarshalText(text []byte) error {
	parsed, err := ParseEventType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Event is one immutable punch in a user's attendance log.
type Event struct {
	ID        string
	UserID    string
	CompanyID string
	Type      EventType
	Timestamp time.Time
	Latitude  float64
	Longitude float64
	PhotoRef  *string
	SyncedAt  *time.Time
	CreatedAt time.Time

	// DTO / Join
	UserName  *string
	UserEmail *string
}

// State describes where a user currently stands in the punch cycle.
type State string

const (
	StateClockedOut State = "clocked_out"
	StateClockedIn  State = "clocked_in"
	StateOnBreak    State = "on_break"
)

// StateAfter derives the attendance state from the last accepted event.
func StateAfter(last *EventType) State {
	if last == nil {
		return StateClockedOut
	}
	switch *last {
	case ClockIn, BreakEnd:
		return StateClockedIn
	case BreakStart:
		return StateOnBreak
	default:
		return StateClockedOut
	}
}
