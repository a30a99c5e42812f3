// Package report turns parsed files and parse failures into JSON documents
// for the CLI and the HTTP API.
package report

import (
	"errors"

	"github.com/JonMunkholm/flr/internal/core"
)

// Document is the JSON form of a parsed file.
type Document struct {
	Schema    string  `json:"schema"`
	LineBreak string  `json:"line_break"`
	Records   int     `json:"records"`
	Stacks    []Stack `json:"stacks"`
	Warnings  []Issue `json:"warnings,omitempty"`
}

// Stack is the JSON form of one stack.
type Stack struct {
	Header *Record  `json:"header,omitempty"`
	Body   []Record `json:"body"`
	Footer *Record  `json:"footer,omitempty"`
}

// Record is the JSON form of one record.
type Record struct {
	Kind   string         `json:"kind"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Issue is an error or warning with its support code. Line and Stack are
// 1-based and omitted when unknown.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Stack   int    `json:"stack,omitempty"`
}

// Validation is the result of checking a file against its schema.
type Validation struct {
	Schema   string  `json:"schema"`
	Valid    bool    `json:"valid"`
	Stacks   int     `json:"stacks"`
	Records  int     `json:"records"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

type fieldValuer interface {
	Values() map[string]any
}

// Build converts f into a document.
func Build(schemaName string, f *core.File) *Document {
	doc := &Document{
		Schema:    schemaName,
		LineBreak: f.LineBreak(),
		Stacks:    make([]Stack, 0, f.Len()),
		Warnings:  Issues(f.Warnings()),
	}
	for _, s := range f.Stacks() {
		st := Stack{Body: make([]Record, 0, len(s.Body))}
		if s.Header != nil {
			r := record(s.Header)
			st.Header = &r
		}
		for i := range s.Body {
			st.Body = append(st.Body, record(&s.Body[i]))
		}
		if s.Footer != nil {
			r := record(s.Footer)
			st.Footer = &r
		}
		doc.Records += s.Len()
		doc.Stacks = append(doc.Stacks, st)
	}
	return doc
}

func record(e *core.Entry) Record {
	r := Record{Kind: e.Kind()}
	if v, ok := e.Record.(fieldValuer); ok {
		r.Fields = v.Values()
	}
	return r
}

// Validate builds the validation result for a file. readErr is the error
// returned by reading it; when nil, f is checked with the write pre-pass.
func Validate(schemaName string, f *core.File, readErr error) *Validation {
	v := &Validation{Schema: schemaName}
	if readErr != nil {
		v.Errors = []Issue{NewIssue(readErr)}
		return v
	}

	v.Stacks = f.Len()
	for _, s := range f.Stacks() {
		v.Records += s.Len()
	}
	v.Warnings = Issues(f.Warnings())
	if err := f.Validate(); err != nil {
		v.Errors = []Issue{NewIssue(err)}
		return v
	}
	v.Valid = true
	return v
}

// NewIssue describes err with its mapped support code and position.
func NewIssue(err error) Issue {
	msg := core.MapError(err)
	line, stack := Position(err)
	return Issue{Code: msg.Code, Message: err.Error(), Line: line, Stack: stack}
}

// Issues converts a list of errors.
func Issues(errs []error) []Issue {
	if len(errs) == 0 {
		return nil
	}
	out := make([]Issue, len(errs))
	for i, err := range errs {
		out[i] = NewIssue(err)
	}
	return out
}

// Position returns the 1-based line and stack carried by err, or zeros.
func Position(err error) (line, stack int) {
	var (
		pe *core.PositionError
		nm *core.NoMatchingTypeError
		am *core.AmbiguousMatchError
		de *core.DecodeError
	)
	switch {
	case errors.As(err, &pe):
		return pe.Line, pe.Stack
	case errors.As(err, &nm):
		return nm.Line, nm.Stack
	case errors.As(err, &am):
		return am.Line, am.Stack
	case errors.As(err, &de):
		return de.Line, de.Stack
	}
	return 0, 0
}
