package cli

import (
	"errors"
	"strings"

	"github.com/JonMunkholm/flr/internal/core"
)

// Exit codes.
const (
	ExitError   = 1
	ExitInvalid = 2
)

// exitErr carries a process exit code alongside err.
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }
func (e *exitErr) ExitCode() int { return e.code }

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitErr
	if errors.As(err, &ee) && ee.code != 0 {
		return ee.code
	}
	return ExitError
}

// FormatError renders err as a single line prefixed with its support code.
func FormatError(err error) string {
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if msg == "" {
		msg = "error"
	}
	return core.MapError(err).Code + ": " + msg
}
