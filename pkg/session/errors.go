package session

import (
	"errors"

	"github.com/dmitrymomot/talktime/pkg/quota"
)

var ErrInvalidSession = errors.New("session.errors.invalid_session")

// storeError passes lifecycle errors through and marks everything else as a
// storage failure.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, quota.ErrSessionNotFound),
		errors.Is(err, quota.ErrSessionAlreadyEnded),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInvalidSession):
		return err
	default:
		return quota.StoreFailure(err)
	}
}
