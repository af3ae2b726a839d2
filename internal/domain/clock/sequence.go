package clock

// transitionRule is one cell of the punch state machine. An empty reason
// means the transition is accepted.
type transitionRule struct {
	reason string
}

func (r transitionRule) accepted() bool {
	return r.reason == ""
}

var accept = transitionRule{}

func reject(reason string) transitionRule {
	return transitionRule{reason: reason}
}

// firstPunch holds the rules for a user without any recorded event.
var firstPunch = map[EventType]transitionRule{
	ClockIn:    accept,
	ClockOut:   reject("first punch must be a clock in"),
	BreakStart: reject("first punch must be a clock in"),
	BreakEnd:   reject("break end requires a prior break start"),
}

// transitions is indexed by [last event][proposed event].
var transitions = map[EventType]map[EventType]transitionRule{
	ClockIn: {
		ClockIn:    reject("cannot clock in twice without clocking out"),
		ClockOut:   accept,
		BreakStart: accept,
		BreakEnd:   reject("break end requires a prior break start"),
	},
	ClockOut: {
		ClockIn:    accept,
		ClockOut:   reject("cannot clock out twice without clocking in"),
		BreakStart: reject("can only start a break after clocking in"),
		BreakEnd:   reject("break end requires a prior break start"),
	},
	BreakStart: {
		ClockIn:    reject("cannot clock in during a break, end the break first"),
		ClockOut:   reject("cannot clock out during a break, end the break first"),
		BreakStart: reject("a break is already in progress"),
		BreakEnd:   accept,
	},
	BreakEnd: {
		ClockIn:    accept,
		ClockOut:   accept,
		BreakStart: reject("cannot start another break right after ending one"),
		BreakEnd:   reject("break end requires a prior break start"),
	},
}

func ruleFor(last *EventType, proposed EventType) transitionRule {
	if last == nil {
		return firstPunch[proposed]
	}
	return transitions[*last][proposed]
}

// ValidateTransition decides whether proposed may follow last, where last is
// nil when the user has no recorded punch. It never touches storage.
func ValidateTransition(last *EventType, proposed EventType) error {
	if !proposed.IsValid() {
		return ErrInvalidEventType
	}
	if last != nil && !last.IsValid() {
		return ErrInvalidEventType
	}

	rule := ruleFor(last, proposed)
	if rule.accepted() {
		return nil
	}

	return &SequenceError{
		Last:     last,
		Proposed: proposed,
		Reason:   rule.reason,
	}
}

// AllowedNext returns the event types that would be accepted after last.
func AllowedNext(last *EventType) []EventType {
	allowed := make([]EventType, 0, 2)
	for _, t := range EventTypes {
		if ValidateTransition(last, t) == nil {
			allowed = append(allowed, t)
		}
	}
	return allowed
}
