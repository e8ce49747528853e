package scheduling

import (
	"github.com/clinic/clinic/internal/platform/apperr"
)

// transitions lists the allowed (from, to) pairs. Completed and cancelled are
// terminal.
var transitions = map[Status]map[Status]bool{
	StatusPending:   {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CheckTransition validates moving from one status to another. Staying in the
// same status is allowed and changes nothing.
func CheckTransition(from, to Status) error {
	if _, ok := transitions[to]; !ok {
		return apperr.New(apperr.KindInvalidStatus, "unrecognized status %q", to)
	}
	if from == to {
		return nil
	}
	if IsTerminal(from) {
		return apperr.New(apperr.KindInvalidTransition, "appointment is already %s and cannot change to %s", from, to)
	}
	if !transitions[from][to] {
		return apperr.New(apperr.KindInvalidTransition, "cannot change status from %s to %s", from, to)
	}
	return nil
}

// IsTerminal reports whether no further transition is possible from s.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}
