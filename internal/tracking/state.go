package tracking

import (
	"fmt"

	coreerrors "github.com/aevon-lab/completion-aggregator/internal/core/errors"
)

// State is the lifecycle position of one aggregate.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateComplete   State = "complete"
)

// EventType is a lifecycle event name.
type EventType string

const (
	EventStarted   EventType = "started"
	EventCompleted EventType = "completed"
	EventRevoked   EventType = "revoked"
)

// StateOf maps a completion percent in [0, 1] onto a State.
func StateOf(percent float64) State {
	switch {
	case percent <= 0:
		return StateNotStarted
	case percent >= 1:
		return StateComplete
	default:
		return StateInProgress
	}
}

// Transition returns the events a change from oldPercent to newPercent
// produces. A newly created aggregate always starts from StateNotStarted.
//
// Revocation is never inferred from a falling percent: it must be requested
// explicitly, and requesting it for an aggregate that is complete after the
// change returns coreerrors.ErrInvalidStateTransition.
func Transition(oldPercent, newPercent float64, isNew, revoke bool) ([]EventType, error) {
	from := StateNotStarted
	if !isNew {
		from = StateOf(oldPercent)
	}
	to := StateOf(newPercent)

	if revoke {
		if to == StateComplete {
			return nil, fmt.Errorf("cannot revoke %s aggregate (%s -> %s): %w",
				to, from, to, coreerrors.ErrInvalidStateTransition)
		}
		return []EventType{EventRevoked}, nil
	}

	switch {
	case from == StateNotStarted && to == StateInProgress:
		return []EventType{EventStarted}, nil
	case from == StateNotStarted && to == StateComplete:
		return []EventType{EventStarted, EventCompleted}, nil
	case from == StateInProgress && to == StateComplete:
		return []EventType{EventCompleted}, nil
	default:
		return nil, nil
	}
}
