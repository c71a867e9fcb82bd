package pedal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInterpreterNotFound indicates the configured interpreter executable does not exist.
	ErrInterpreterNotFound = errors.New("interpreter executable not found")
	// ErrBackendUnavailable indicates a command was sent while no backend process exists.
	ErrBackendUnavailable = errors.New("no backend process")
	// ErrMalformedMessage indicates a line from the backend could not be decoded.
	ErrMalformedMessage = errors.New("malformed backend message")
	// ErrRunnerClosed indicates the runner was stopped by the caller.
	ErrRunnerClosed = errors.New("runner closed")
	// ErrUnknownBackend indicates the configured backend kind has no registered factory.
	ErrUnknownBackend = errors.New("unknown backend kind")
	// ErrInvalidSubscriptionPolicy indicates an unsupported subscription mode or buffer.
	ErrInvalidSubscriptionPolicy = errors.New("invalid subscription policy")
)

// StartupError is returned when the backend process spawned but exited before
// completing the ready handshake. Stderr holds whatever the process wrote
// before dying.
type StartupError struct {
	Stderr string
}

func (err *StartupError) Error() string {
	detail := strings.TrimSpace(err.Stderr)
	if detail == "" {
		return "backend process exited before handshake"
	}
	return fmt.Sprintf("backend process exited before handshake: %s", detail)
}

// SyntaxError is returned when a submitted shell command has the wrong
// argument shape. It is raised before anything reaches the codec.
type SyntaxError struct {
	Command string
	Message string
}

func (err *SyntaxError) Error() string {
	if err.Command == "" {
		return err.Message
	}
	return fmt.Sprintf("command %q: %s", err.Command, err.Message)
}

// MalformedMessageError wraps ErrMalformedMessage with the offending line.
type MalformedMessageError struct {
	Line  string
	Cause error
}

func (err *MalformedMessageError) Error() string {
	return fmt.Sprintf("%v: %q", ErrMalformedMessage, err.Line)
}

func (err *MalformedMessageError) Unwrap() error {
	return ErrMalformedMessage
}
