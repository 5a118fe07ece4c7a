package engine

import (
	"errors"
	"fmt"
)

// ErrStopped is returned by Do once the engine loop has exited.
var ErrStopped = errors.New("engine: stopped")

// CommandError is a command the current state does not allow.
//
// Command errors are expected during a show (pressing start twice, loading
// past the last cue) and leave the state untouched. Callers check the Code
// rather than the message.
type CommandError struct {
	// Code identifies the failure.
	Code ErrorCode

	// Command is the rejected command.
	Command CommandKind

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorises command errors.
type ErrorCode string

const (
	// ErrCodeNothingLoaded means the command needs a loaded event.
	ErrCodeNothingLoaded ErrorCode = "NOTHING_LOADED"

	// ErrCodeAlreadyPlaying means start was sent to a playing timer.
	ErrCodeAlreadyPlaying ErrorCode = "ALREADY_PLAYING"

	// ErrCodeNotPlaying means pause was sent to a timer that is not playing.
	ErrCodeNotPlaying ErrorCode = "NOT_PLAYING"

	// ErrCodeOutOfRange means an index or amount is outside its bounds.
	ErrCodeOutOfRange ErrorCode = "OUT_OF_RANGE"

	// ErrCodeNotFound means an id or cue does not resolve.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeRollEmpty means roll mode was requested with nothing to play.
	ErrCodeRollEmpty ErrorCode = "ROLL_EMPTY"

	// ErrCodeRollActive means the command is not available in roll mode.
	ErrCodeRollActive ErrorCode = "ROLL_ACTIVE"

	// ErrCodeInvalidEdit means a rundown edit was rejected.
	ErrCodeInvalidEdit ErrorCode = "INVALID_EDIT"

	// ErrCodeUnknownCommand means the command kind is not recognised.
	ErrCodeUnknownCommand ErrorCode = "UNKNOWN_COMMAND"
)

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("%s: %s (command=%s)", e.Code, e.Message, e.Command)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCommandError reports whether err wraps a *CommandError.
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}

// CodeOf returns the code of a wrapped *CommandError, or "".
func CodeOf(err error) ErrorCode {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func newCommandError(cmd CommandKind, code ErrorCode, format string, args ...any) *CommandError {
	return &CommandError{
		Code:    code,
		Command: cmd,
		Message: fmt.Sprintf(format, args...),
	}
}
