package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/talktime/pkg/quota"
)

// State is a metered session lifecycle state.
type State string

const (
	StateRequested  State = "requested"
	StateAuthorized State = "authorized"
	StateRejected   State = "rejected"
	StateEnded      State = "ended"
)

// transitions lists the allowed moves: [from][to].
var transitions = map[State]map[State]bool{
	StateRequested:  {StateAuthorized: true, StateRejected: true},
	StateAuthorized: {StateEnded: true},
}

var ErrInvalidTransition = errors.New("session.errors.invalid_transition")

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	return transitions[from][to]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// transition moves the session to next or explains why it cannot.
func (s *Session) transition(next State) error {
	if !CanTransition(s.State, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, next)
	}
	s.State = next
	return nil
}

// End moves an authorized session to ended with the reported seconds.
func (s *Session) End(at time.Time, seconds int64) error {
	if s.State == StateEnded {
		return quota.ErrSessionAlreadyEnded
	}
	if err := s.transition(StateEnded); err != nil {
		return err
	}
	s.EndedAt = &at
	s.RecordedSeconds = seconds
	return nil
}

// Reopen reverts End. Sessions in any other state are left as they are.
func (s *Session) Reopen() {
	if s.State != StateEnded {
		return
	}
	s.State = StateAuthorized
	s.EndedAt = nil
	s.RecordedSeconds = 0
}
