package server

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("game server already started")

	// ErrStopped is returned when Stop interrupts a running Start.
	ErrStopped = errors.New("game server stopped during startup")
)

// StartupError reports the startup step that failed. Start has already
// unwound the server when it is returned.
type StartupError struct {
	Step  string
	Cause error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup step %s failed: %v", e.Step, e.Cause)
}

func (e *StartupError) Unwrap() error {
	return e.Cause
}
