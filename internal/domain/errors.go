package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrEntityNotFound = errors.New("entity not found")

	// ErrStaleState is returned when a conditional write matched no row
	// because another writer changed the entity first. Callers should
	// re-fetch rather than retry blindly.
	ErrStaleState = errors.New("entity was modified concurrently")
)

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Family Family
	From   Status
	To     Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot transition from %q to %q", e.Family, e.From, e.To)
}

// SlugConflictError is returned when a slug is already reserved by another entity.
type SlugConflictError struct {
	Family Family
	Slug   string
}

func (e *SlugConflictError) Error() string {
	return fmt.Sprintf("%s slug %q is already in use", e.Family, e.Slug)
}

// AllocationError is returned when slug uniqueness could not be verified.
type AllocationError struct {
	Family    Family
	Candidate string
	Err       error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocating %s slug %q: %v", e.Family, e.Candidate, e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

// ValidationError is returned when input or a transition precondition is invalid.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// SweepError is returned when a scheduler sweep's storage call fails.
// It never reaches an external caller; the scheduler logs it.
type SweepError struct {
	Family Family
	Err    error
}

func (e *SweepError) Error() string {
	return fmt.Sprintf("sweeping %s: %v", e.Family, e.Err)
}

func (e *SweepError) Unwrap() error {
	return e.Err
}
