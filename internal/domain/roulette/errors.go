package roulette

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCooldownActive       = errors.New("cooldown active")
	ErrNoEligibleCandidates = errors.New("no eligible candidates")
	ErrRosterUnavailable    = errors.New("roster unavailable")
)

// CooldownError is returned when a spin is attempted before the cooldown
// elapsed.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

// PersistenceError wraps a failed durable write of the history log.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("history %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError reports whether err is or wraps a PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
