package core

// # Error Codes Reference
//
// Errors shown to users carry a code they can quote when asking for help.
// Typed errors are matched first with errors.Is / errors.As; anything else
// falls back to substring patterns on the error text.
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Invalid record layout configuration
//	         Action: Check record types, patterns and lengths in the schema
//	CFG002 - Unsupported character encoding
//	         Action: Use an IANA encoding name such as UTF-8 or ISO-8859-1
//	CFG003 - Schema not found
//	         Action: Check the schema name against the list of schemas
//
// # Format Errors (FLR001-FLR099)
//
//	FLR001 - Line matches no record type
//	FLR002 - Line matches more than one record type
//	FLR003 - Field cannot be decoded
//	FLR004 - Duplicate unique key
//	FLR005 - Too many lines
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Source file does not exist
//	FILE002 - Destination file already exists
//	FILE003 - File too large
//	FILE004 - No file provided
//
// # Storage Errors (DB001-DB099)
//
//	DB001 - Unable to connect to database
//	DB002 - Storage not configured
//	DB003 - Operation timed out
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request was cancelled
//	REQ002 - Request timed out
//	REQ003 - Too many concurrent requests
//	REQ004 - Rate limit exceeded (written by the HTTP middleware)
//
// # Auth Errors (AUTH001-AUTH099, written by the HTTP middleware)
//
//	AUTH001 - Missing API key
//	AUTH002 - Invalid API key

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage is a user-facing rendering of an error.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgConfig = UserMessage{
		Message: "The record layout configuration is invalid",
		Action:  "Check record types, patterns and lengths in the schema",
		Code:    "CFG001",
	}
	msgEncoding = UserMessage{
		Message: "Unsupported character encoding",
		Action:  "Use an IANA encoding name such as UTF-8 or ISO-8859-1",
		Code:    "CFG002",
	}
	msgNoMatch = UserMessage{
		Message: "A line does not match any record type",
		Action:  "Check the line at the reported position against the schema",
		Code:    "FLR001",
	}
	msgAmbiguous = UserMessage{
		Message: "A line matches more than one record type",
		Action:  "Make record type patterns or lengths distinct",
		Code:    "FLR002",
	}
	msgDecode = UserMessage{
		Message: "A field could not be read",
		Action:  "Check the field value at the reported line",
		Code:    "FLR003",
	}
	msgUnique = UserMessage{
		Message: "A unique key value appears more than once",
		Action:  "Remove the duplicate record or enable ignore_unique",
		Code:    "FLR004",
	}
	msgTooManyLines = UserMessage{
		Message: "The file has too many lines",
		Action:  "Split the file or raise the line limit",
		Code:    "FLR005",
	}
	msgSourceMissing = UserMessage{
		Message: "The source file does not exist",
		Action:  "Check the path and try again",
		Code:    "FILE001",
	}
	msgDestinationExists = UserMessage{
		Message: "The destination file already exists",
		Action:  "Choose a new output path; files are never overwritten",
		Code:    "FILE002",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}
	msgDeadline = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "REQ002",
	}
)

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Configuration Errors
	// =========================================================================
	{pattern: "unsupported encoding", msg: msgEncoding},
	{
		pattern: "schema not found",
		msg: UserMessage{
			Message: "Schema not found",
			Action:  "Check the schema name against the list of schemas",
			Code:    "CFG003",
		},
	},

	// =========================================================================
	// File Errors
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was provided",
			Action:  "Please select a file to upload",
			Code:    "FILE004",
		},
	},

	// =========================================================================
	// Request Errors
	// =========================================================================
	{
		pattern: "too many concurrent",
		msg: UserMessage{
			Message: "The server is busy processing other files",
			Action:  "Please try again in a few moments",
			Code:    "REQ003",
		},
	},

	// =========================================================================
	// Storage Errors
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "storage not configured",
		msg: UserMessage{
			Message: "No database is configured",
			Action:  "Set DATABASE_URL to enable imports",
			Code:    "DB002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB003",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error into a UserMessage.
// Returns an empty UserMessage for nil errors.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	var (
		ce  *ConfigurationError
		nm  *NoMatchingTypeError
		am  *AmbiguousMatchError
		de  *DecodeError
		uv  *UniqueConstraintViolation
		msg UserMessage
	)
	switch {
	case errors.As(err, &ce):
		msg = msgConfig
	case errors.As(err, &nm):
		msg = msgNoMatch
	case errors.As(err, &am):
		msg = msgAmbiguous
	case errors.As(err, &uv):
		msg = msgUnique
	case errors.As(err, &de):
		msg = msgDecode
	case errors.Is(err, ErrTooManyLines):
		msg = msgTooManyLines
	case errors.Is(err, ErrSourceMissing):
		msg = msgSourceMissing
	case errors.Is(err, ErrDestinationExists):
		msg = msgDestinationExists
	case errors.Is(err, context.Canceled):
		msg = msgCancelled
	case errors.Is(err, context.DeadlineExceeded):
		msg = msgDeadline
	default:
		return UserMessage{}, false
	}
	return msg, true
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
