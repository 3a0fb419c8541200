package exchange

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the engine. Callers match them with errors.Is.
var (
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrDuplicateActiveOffer = errors.New("an unresolved offer already exists for this post")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("concurrent update conflict")
	ErrUpstream             = errors.New("upstream failure")
	ErrInvalidInput         = errors.New("invalid input")
)

// TransitionError reports an action attempted from a stage that does not
// permit it.
type TransitionError struct {
	Action Action
	From   Stage
	To     Stage
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("invalid transition: cannot %s from %s", e.Action, e.From)
	}
	return fmt.Sprintf("invalid transition: cannot %s from %s to %s", e.Action, e.From, e.To)
}

// Is makes errors.Is(err, ErrInvalidTransition) match.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// UpstreamError wraps a persistence or collaborator failure.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream failure during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrUpstream) match.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// classify passes engine error kinds through and wraps everything else as an
// upstream failure of op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrForbidden, ErrInvalidTransition, ErrDuplicateActiveOffer, ErrNotFound, ErrConflict, ErrInvalidInput, ErrUpstream} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return &UpstreamError{Op: op, Err: err}
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
