package lineio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/transform"
)

// Writer writes lines, each followed by the line break token.
type Writer struct {
	file      *os.File
	buf       *bufio.Writer
	enc       *transform.Writer
	out       io.Writer
	lineBreak string
	lines     int
}

// Create creates the file at path for writing. It fails with an error
// wrapping fs.ErrExist when the file already exists.
func Create(path string, opts Options) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}
	w, err := NewWriter(f, opts)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	w.file = f
	return w, nil
}

// NewWriter writes lines to w.
func NewWriter(w io.Writer, opts Options) (*Writer, error) {
	enc, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	lineBreak := opts.LineBreak
	if lineBreak == "" {
		lineBreak = "\n"
	}

	lw := &Writer{buf: bufio.NewWriterSize(w, 64*1024), lineBreak: lineBreak}
	lw.out = lw.buf
	if enc != nil {
		lw.enc = transform.NewWriter(lw.buf, enc.NewEncoder())
		lw.out = lw.enc
	}
	return lw, nil
}

// WriteLine writes line and the line break.
func (w *Writer) WriteLine(line string) error {
	if _, err := io.WriteString(w.out, line); err != nil {
		return fmt.Errorf("line %d: %w", w.lines+1, err)
	}
	if _, err := io.WriteString(w.out, w.lineBreak); err != nil {
		return fmt.Errorf("line %d: %w", w.lines+1, err)
	}
	w.lines++
	return nil
}

// Lines returns the number of lines written.
func (w *Writer) Lines() int { return w.lines }

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.buf.Flush()
}

// Close flushes pending output and closes the file, if the writer created one.
func (w *Writer) Close() error {
	var err error
	if w.enc != nil {
		err = w.enc.Close()
	}
	if ferr := w.buf.Flush(); err == nil {
		err = ferr
	}
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
