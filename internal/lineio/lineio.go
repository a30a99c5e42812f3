// Package lineio reads and writes line-oriented text files.
//
// Readers decode a named character encoding to UTF-8, skip a UTF-8 byte
// order mark, and split the stream on a line break token that is either
// given or detected from the first lines. Writers encode lines back to the
// named encoding and refuse to overwrite existing files.
package lineio

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultMaxLineSize is the longest line a Reader accepts by default.
const DefaultMaxLineSize = 1024 * 1024

// detectWindow is how many bytes are first inspected to detect the line
// break. Detection looks further, up to the line size limit, when the first
// line is longer.
const detectWindow = 64 * 1024

// ErrUnsupportedEncoding is returned for encoding names that are unknown or
// have no implementation.
var ErrUnsupportedEncoding = errors.New("unsupported encoding")

// Options configure readers and writers.
type Options struct {
	// Encoding is an IANA character set name such as "ISO-8859-1" or
	// "windows-1252". Empty means UTF-8.
	Encoding string

	// LineBreak is the line separator. Empty means detect on read and "\n"
	// on write.
	LineBreak string

	// MaxLineSize bounds the length of one line in bytes. Zero means
	// DefaultMaxLineSize.
	MaxLineSize int
}

// lookupEncoding resolves an encoding name. A nil encoding means UTF-8
// without transformation.
func lookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, name)
	}
	if enc == nil {
		return nil, fmt.Errorf("%w: %s has no implementation", ErrUnsupportedEncoding, name)
	}
	if enc == unicode.UTF8 {
		return nil, nil
	}
	return enc, nil
}

// decodeSource wraps r so that it yields UTF-8 text without a BOM.
func decodeSource(r io.Reader, enc encoding.Encoding) io.Reader {
	if enc == nil {
		return newSanitizer(newBOMReader(r))
	}
	return newBOMReader(transform.NewReader(r, enc.NewDecoder()))
}

// ValidEncoding reports whether name can be used in Options.Encoding.
func ValidEncoding(name string) error {
	_, err := lookupEncoding(name)
	return err
}
