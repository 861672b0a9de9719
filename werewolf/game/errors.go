package game

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSeatCount  = errors.New("invalid seat count")
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchAlreadyEnded = errors.New("match already ended")
	ErrInvalidPhase      = errors.New("action not allowed in current phase")
	ErrSeatNotAlive      = errors.New("seat is not alive")
	ErrSeatNotFound      = errors.New("seat not found")
	ErrRoleMismatch      = errors.New("role cannot perform this action")
	ErrInvalidTarget     = errors.New("invalid target")
	ErrResourceSpent     = errors.New("resource already spent")
	ErrOutOfTurn         = errors.New("not the current speaker")
	ErrInvalidAction     = errors.New("unknown action kind")
	ErrInvalidRoster     = errors.New("invalid roster")
	ErrPersistence       = errors.New("persistence failure")
)

// PersistenceError reports a collaborator failure. The match state has
// already advanced when one of these is produced.
type PersistenceError struct {
	Op      string
	MatchID string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.MatchID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
