package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrRunActive rejects Start while a run is in progress.
	ErrRunActive = errors.New("a run is already active")

	// ErrNoActiveRun rejects Stop when there is nothing to stop.
	ErrNoActiveRun = errors.New("no active run")

	// ErrEmptySelection rejects Start with no profiles.
	ErrEmptySelection = errors.New("no profiles selected")

	// ErrDriverUnavailable means the browser driver itself cannot be
	// initialized. Unlike per-profile session failures this aborts the
	// whole run.
	ErrDriverUnavailable = errors.New("browser driver unavailable")

	// ErrStepSkipped marks a soft miss on an optional step: the target
	// was not there (no stories, post already liked away, ...). Recorded
	// as Skipped, never as Failure.
	ErrStepSkipped = errors.New("step skipped")
)

// SessionError reports that a browser session could not be opened for a
// profile (directory locked by another browser, launch failure).
type SessionError struct {
	ProfilePath string
	Err         error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("open session for %s: %v", e.ProfilePath, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// ActionError reports a failed step, optionally with a captured
// screenshot for the operator.
type ActionError struct {
	Step       string
	Detail     string
	Screenshot string
	Err        error
}

func (e *ActionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("step %s: %s", e.Step, e.Detail)
	}
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }
