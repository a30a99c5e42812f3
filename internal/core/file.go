package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/JonMunkholm/flr/internal/lineio"
)

// ContextCheckInterval is how often, in lines, reads and writes check for
// context cancellation.
const ContextCheckInterval = 100

// DefaultLineBreak is used when no line break was set or detected.
const DefaultLineBreak = "\n"

// File holds the stacks of one FLR file and the registry used to read and
// write it. A File is not safe for concurrent use.
type File struct {
	registry *Registry
	stacks   []*Stack

	lineBreak      string
	forceLineBreak bool
	encoding       string
	ignoreUnique   bool
	maxLines       int
	maxLineSize    int
	logger         *slog.Logger

	warnings []error
}

// Option configures a File.
type Option func(*File)

// WithIgnoreUniqueConstraint downgrades unique violations found while reading
// or adding records to logged warnings. Records are kept either way. It has
// no effect on the write pre-pass.
func WithIgnoreUniqueConstraint(ignore bool) Option {
	return func(f *File) { f.ignoreUnique = ignore }
}

// WithLogger sets the logger that receives unique constraint warnings.
func WithLogger(l *slog.Logger) Option {
	return func(f *File) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMaxLines bounds the number of lines a read accepts. Zero means no limit.
func WithMaxLines(n int) Option {
	return func(f *File) { f.maxLines = n }
}

// WithMaxLineSize bounds the size of one line in bytes for ReadFile. Zero
// means lineio.DefaultMaxLineSize.
func WithMaxLineSize(n int) Option {
	return func(f *File) { f.maxLineSize = n }
}

// WithLineBreak forces the line break used for reading and writing.
// An empty value keeps detection on read.
func WithLineBreak(lb string) Option {
	return func(f *File) {
		if lb != "" {
			f.lineBreak = lb
			f.forceLineBreak = true
		}
	}
}

// WithEncoding sets the character encoding of files read and written by
// ReadFile and WriteFile, e.g. "ISO-8859-1" or "windows-1252".
func WithEncoding(name string) Option {
	return func(f *File) { f.encoding = name }
}

// NewFile creates an empty file bound to reg.
func NewFile(reg *Registry, opts ...Option) (*File, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	f := &File{
		registry:  reg,
		lineBreak: DefaultLineBreak,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Registry returns the registry the file was created with.
func (f *File) Registry() *Registry { return f.registry }

// Len returns the number of stacks.
func (f *File) Len() int { return len(f.stacks) }

// Stacks returns the stacks in order.
func (f *File) Stacks() []*Stack {
	out := make([]*Stack, len(f.stacks))
	copy(out, f.stacks)
	return out
}

// Stack returns stack n (0-based).
func (f *File) Stack(n int) (*Stack, error) {
	if n < 0 || n >= len(f.stacks) {
		return nil, fmt.Errorf("%w: %d", ErrStackNotFound, n+1)
	}
	return f.stacks[n], nil
}

// Warnings returns the unique violations ignored since the last read or reset.
func (f *File) Warnings() []error {
	out := make([]error, len(f.warnings))
	copy(out, f.warnings)
	return out
}

// LineBreak returns the line break token used for writing.
func (f *File) LineBreak() string { return f.lineBreak }

// SetLineBreak sets the line break token used for writing.
func (f *File) SetLineBreak(lb string) error {
	if lb == "" {
		return ErrInvalidLineBreak
	}
	f.lineBreak = lb
	f.forceLineBreak = true
	return nil
}

// Encoding returns the character encoding used by ReadFile and WriteFile.
func (f *File) Encoding() string { return f.encoding }

// SetEncoding changes the character encoding used by ReadFile and WriteFile.
func (f *File) SetEncoding(name string) error {
	if err := lineio.ValidEncoding(name); err != nil {
		return err
	}
	f.encoding = name
	return nil
}

// Reset removes all stacks and warnings.
func (f *File) Reset() {
	f.stacks = nil
	f.warnings = nil
}

// NewStack appends an empty stack and returns its 0-based number.
func (f *File) NewStack() int {
	f.stacks = append(f.stacks, &Stack{})
	return len(f.stacks) - 1
}

// SetHeader sets the header record of stack n. Uniqueness across stacks is
// checked when the file is validated or written.
func (f *File) SetHeader(n int, rec Record) error {
	if f.registry.header == nil {
		return configErr("no header record type configured")
	}
	s, err := f.Stack(n)
	if err != nil {
		return err
	}
	s.Header = &Entry{Type: f.registry.header, Record: rec}
	return nil
}

// SetFooter sets the footer record of stack n. Uniqueness across stacks is
// checked when the file is validated or written.
func (f *File) SetFooter(n int, rec Record) error {
	if f.registry.footer == nil {
		return configErr("no footer record type configured")
	}
	s, err := f.Stack(n)
	if err != nil {
		return err
	}
	s.Footer = &Entry{Type: f.registry.footer, Record: rec}
	return nil
}

// AddRecord appends a body record of type rt to stack n after checking its
// unique keys against the stack.
func (f *File) AddRecord(n int, rt *RecordType, rec Record) error {
	if !f.isBodyType(rt) {
		return configErr("record type is not a registered body type")
	}
	s, err := f.Stack(n)
	if err != nil {
		return err
	}
	e := Entry{Type: rt, Record: rec}
	if verr := ValidateBody(s, e); verr != nil {
		wrapped := fmt.Errorf("stack %d: %w", n+1, verr)
		if !f.ignoreUnique {
			return wrapped
		}
		f.warn(wrapped)
	}
	s.Body = append(s.Body, e)
	return nil
}

func (f *File) isBodyType(rt *RecordType) bool {
	for _, b := range f.registry.body {
		if b == rt {
			return true
		}
	}
	return false
}

func (f *File) warn(err error) {
	f.warnings = append(f.warnings, err)

	attrs := []any{"error", err.Error()}
	var pe *PositionError
	if errors.As(err, &pe) {
		attrs = append(attrs, "line", pe.Line, "stack", pe.Stack)
	}
	var uv *UniqueConstraintViolation
	if errors.As(err, &uv) {
		attrs = append(attrs, "key", uv.Key.String(), "kind", uv.Kind, "index", uv.Index, "conflict", uv.Conflict)
	}
	f.logger.Warn("unique constraint ignored", attrs...)
}

// Read replaces the file's stacks with the records read from r. On failure
// the file is left empty.
func (f *File) Read(ctx context.Context, r LineReader) error {
	if err := f.registry.Validate(); err != nil {
		return err
	}
	f.Reset()
	f.registry.ResetUniqueCaches()

	a := newAssembler(f)
	for {
		line, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			f.Reset()
			return fmt.Errorf("read line %d: %w", a.line+1, err)
		}
		if f.maxLines > 0 && a.line >= f.maxLines {
			f.Reset()
			return fmt.Errorf("%w: limit is %d", ErrTooManyLines, f.maxLines)
		}
		if a.line%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				f.Reset()
				return err
			}
		}
		if err := a.feed(line); err != nil {
			f.Reset()
			return err
		}
	}
	f.stacks = a.finish()

	if d, ok := r.(LineBreakDetector); ok && !f.forceLineBreak && d.LineBreak() != "" {
		f.lineBreak = d.LineBreak()
	}
	return nil
}

// ReadFile reads the file at path. It fails with ErrSourceMissing when the
// path does not exist.
func (f *File) ReadFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSourceMissing, path)
		}
		return fmt.Errorf("stat source: %w", err)
	}

	opts := lineio.Options{Encoding: f.encoding, MaxLineSize: f.maxLineSize}
	if f.forceLineBreak {
		opts.LineBreak = f.lineBreak
	}
	r, err := lineio.Open(path, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	return f.Read(ctx, r)
}

// Validate checks every header and footer against the headers and footers
// of the same kind in the other stacks.
func (f *File) Validate() error {
	for i, s := range f.stacks {
		if s.Header != nil {
			if err := ValidateGroupRecord(f.stacks, i, *s.Header); err != nil {
				return fmt.Errorf("stack %d header: %w", i+1, err)
			}
		}
		if s.Footer != nil {
			if err := ValidateGroupRecord(f.stacks, i, *s.Footer); err != nil {
				return fmt.Errorf("stack %d footer: %w", i+1, err)
			}
		}
	}
	return nil
}

// Lines validates the file and encodes every record in output order: for
// each stack the header, the body records, then the footer.
func (f *File) Lines(ctx context.Context) ([]string, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var lines []string
	encode := func(stackNo int, role string, e *Entry) error {
		line, err := e.Type.Codec().Encode(e.Record)
		if err != nil {
			return fmt.Errorf("encode %s %s record in stack %d: %w", role, e.Kind(), stackNo+1, err)
		}
		lines = append(lines, line)
		if len(lines)%ContextCheckInterval == 0 {
			return ctx.Err()
		}
		return nil
	}

	for i, s := range f.stacks {
		if s.Header != nil {
			if err := encode(i, "header", s.Header); err != nil {
				return nil, err
			}
		}
		for j := range s.Body {
			if err := encode(i, "body", &s.Body[j]); err != nil {
				return nil, err
			}
		}
		if s.Footer != nil {
			if err := encode(i, "footer", s.Footer); err != nil {
				return nil, err
			}
		}
	}
	return lines, nil
}

// Write validates the file and writes every line to w. Nothing is written
// when validation or encoding fails.
func (f *File) Write(ctx context.Context, w LineWriter) error {
	lines, err := f.Lines(ctx)
	if err != nil {
		return err
	}
	for i, line := range lines {
		if err := w.WriteLine(line); err != nil {
			return fmt.Errorf("write line %d: %w", i+1, err)
		}
	}
	return nil
}

// WriteFile writes the file to path. It fails with ErrDestinationExists when
// path already exists, and creates no file when validation fails.
func (f *File) WriteFile(ctx context.Context, path string) (err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, path)
	}

	lines, err := f.Lines(ctx)
	if err != nil {
		return err
	}

	w, err := lineio.Create(path, lineio.Options{Encoding: f.encoding, LineBreak: f.lineBreak})
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrDestinationExists, path)
		}
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	for i, line := range lines {
		if err := w.WriteLine(line); err != nil {
			return fmt.Errorf("write line %d: %w", i+1, err)
		}
	}
	return nil
}
