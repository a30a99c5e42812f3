package lineio

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// Reader yields the lines of a text stream without their line breaks.
type Reader struct {
	closer    io.Closer
	counter   *CountingReader
	scanner   *bufio.Scanner
	lineBreak string
	lines     int
}

// Open opens the file at path for reading.
func Open(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	var total int64
	if info, err := f.Stat(); err == nil {
		total = info.Size()
	}

	r, err := newReader(f, total, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader reads lines from r.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	return newReader(r, 0, opts)
}

func newReader(src io.Reader, total int64, opts Options) (*Reader, error) {
	enc, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	maxLine := opts.MaxLineSize
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}

	counter := NewCountingReader(src, total)
	// room for the longest accepted line and a two byte break
	br := bufio.NewReaderSize(decodeSource(counter, enc), max(detectWindow, maxLine+2))

	lineBreak := opts.LineBreak
	if lineBreak == "" {
		lineBreak = detectLineBreak(br)
	}

	scanner := bufio.NewScanner(br)
	limit := maxLine + len(lineBreak)
	scanner.Buffer(make([]byte, 0, min(64*1024, limit)), limit)
	scanner.Split(splitOn([]byte(lineBreak)))

	return &Reader{
		counter:   counter,
		scanner:   scanner,
		lineBreak: lineBreak,
	}, nil
}

// ReadLine returns the next line, or io.EOF after the last one.
func (r *Reader) ReadLine() (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", fmt.Errorf("line %d: %w", r.lines+1, err)
		}
		return "", io.EOF
	}
	r.lines++
	return r.scanner.Text(), nil
}

// LineBreak returns the line break token in use.
func (r *Reader) LineBreak() string { return r.lineBreak }

// Lines returns the number of lines read so far.
func (r *Reader) Lines() int { return r.lines }

// BytesRead returns the number of source bytes consumed so far.
func (r *Reader) BytesRead() int64 { return r.counter.BytesRead }

// Progress returns the read progress as a percentage, or 0 when the source
// size is unknown.
func (r *Reader) Progress() int { return r.counter.Progress() }

// Close closes the underlying file, if the reader opened one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// detectLineBreak inspects the start of the stream for "\r\n", "\n" or "\r".
// The window doubles until a break is found or the buffer is full. It falls
// back to "\n" when no break is found.
func detectLineBreak(br *bufio.Reader) string {
	for n := detectWindow; ; n *= 2 {
		n = min(n, br.Size())
		head, err := br.Peek(n)
		i := bytes.IndexAny(head, "\r\n")
		switch {
		case i >= 0 && head[i] == '\n':
			return "\n"
		case i >= 0 && i+1 < len(head):
			if head[i+1] == '\n' {
				return "\r\n"
			}
			return "\r"
		}
		if err != nil || n == br.Size() {
			if i >= 0 {
				// "\r" is the last byte seen
				return "\r"
			}
			return "\n"
		}
	}
}

// splitOn returns a split function that cuts tokens at sep. A final token
// without a trailing separator is returned as is.
func splitOn(sep []byte) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.Index(data, sep); i >= 0 {
			return i + len(sep), data[:i], nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}
