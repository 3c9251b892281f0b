package status

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownEntity       = errors.New("UNKNOWN_ENTITY_TYPE")
	ErrInvalidInitialStatus = errors.New("INVALID_INITIAL_STATUS")
	ErrIllegalTransition   = errors.New("ILLEGAL_TRANSITION")
)

// TransitionError carries the rejected edge. It wraps one of the sentinel
// errors above so callers can branch with errors.Is.
type TransitionError struct {
	Entity EntityType
	From   string
	To     string
	reason error
}

func (e *TransitionError) Error() string {
	if e.reason == ErrInvalidInitialStatus {
		return fmt.Sprintf("%s: new %s must start in %q, got %q", e.reason, e.Entity, e.From, e.To)
	}
	return fmt.Sprintf("%s: %s cannot move from %q to %q", e.reason, e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return e.reason
}

// Validate checks a proposed status change against the entity's static
// transition table. It is pure: persisting the new status on success is the
// caller's responsibility.
//
// A new entity (no persisted status yet) may only take its declared initial
// status. An existing entity may keep its current status (no-op update) or
// move along a declared edge.
func Validate(entity EntityType, current, proposed string, isNew bool) error {
	table, ok := transitions[entity]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}

	if isNew {
		initial := initialStatuses[entity]
		if proposed != initial {
			return &TransitionError{Entity: entity, From: initial, To: proposed, reason: ErrInvalidInitialStatus}
		}
		return nil
	}

	if proposed == current {
		return nil
	}

	for _, next := range table[current] {
		if next == proposed {
			return nil
		}
	}
	return &TransitionError{Entity: entity, From: current, To: proposed, reason: ErrIllegalTransition}
}
