package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by file operations.
var (
	// ErrSourceMissing is returned by ReadFile when the source path does not exist.
	ErrSourceMissing = errors.New("source file does not exist")

	// ErrDestinationExists is returned by WriteFile when the destination path
	// already exists. Files are never overwritten.
	ErrDestinationExists = errors.New("destination file already exists")

	// ErrTooManyLines is returned when the input exceeds the configured line limit.
	ErrTooManyLines = errors.New("too many lines in input")

	// ErrInvalidLineBreak is returned when a line break token is empty.
	ErrInvalidLineBreak = errors.New("line break must not be empty")

	// ErrStackNotFound is returned when a stack number is out of range.
	ErrStackNotFound = errors.New("stack not found")
)

// ConfigurationError reports an invalid or duplicate record type, an invalid
// recognition pattern, or a missing body record type.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NoMatchingTypeError reports a line that no configured record type accepts.
// Line and Stack are 1-based.
type NoMatchingTypeError struct {
	Line   int
	Stack  int
	Length int
}

func (e *NoMatchingTypeError) Error() string {
	return fmt.Sprintf("no matching record type for line %d in stack %d (length %d)", e.Line, e.Stack, e.Length)
}

// AmbiguousMatchError is returned in strict mode when a line satisfies more
// than one body record type.
type AmbiguousMatchError struct {
	Line  int
	Stack int
	Kinds []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous record type for line %d in stack %d: matches %s",
		e.Line, e.Stack, strings.Join(e.Kinds, ", "))
}

// DecodeError wraps a codec failure with the position of the offending line.
type DecodeError struct {
	Line  int
	Stack int
	Kind  string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s record at line %d in stack %d: %v", e.Kind, e.Line, e.Stack, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UniqueConstraintViolation reports a record whose unique key duplicates one
// already present in the comparison scope. Index and Conflict are 1-based:
// body positions within a stack for body records, stack numbers for headers
// and footers.
type UniqueConstraintViolation struct {
	Key      UniqueKey
	Kind     string
	Index    int
	Conflict int
}

func (e *UniqueConstraintViolation) Error() string {
	return fmt.Sprintf("unique constraint violation on %s (%s): record %d duplicates record %d",
		e.Key, e.Kind, e.Index, e.Conflict)
}

// PositionError adds read position context to a unique violation.
type PositionError struct {
	Line  int
	Stack int
	Err   error
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("line %d in stack %d: %v", e.Line, e.Stack, e.Err)
}

func (e *PositionError) Unwrap() error { return e.Err }

// IsUniqueViolation reports whether err is or wraps a UniqueConstraintViolation.
func IsUniqueViolation(err error) bool {
	var uv *UniqueConstraintViolation
	return errors.As(err, &uv)
}

func configErr(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
