package core

// Record is one decoded line. Its concrete shape belongs to the codec that
// produced it; the engine only reaches into it through Codec.FieldValue.
type Record interface{}

// Codec converts between one record kind and its text line.
type Codec interface {
	// Kind names the concrete record kind. Records of the same kind are
	// compared against each other for uniqueness.
	Kind() string

	// Decode parses a line. When only the codec's unique cache rejects the
	// line, Decode returns the record together with a
	// *UniqueConstraintViolation so the caller can decide whether to keep it.
	Decode(line string) (Record, error)

	// Encode formats a record back into a line.
	Encode(rec Record) (string, error)

	// FieldValue returns the value of a named field. ok is false when the
	// record has no such field.
	FieldValue(rec Record, name string) (value any, ok bool)

	// UniqueKeys lists key specs: a field name, or field names joined by ';'.
	UniqueKeys() []string

	// AllowEmptyUniqueFields exempts mutually empty values from uniqueness.
	AllowEmptyUniqueFields() bool

	// ResetUniqueCache clears values remembered for uniqueness checks.
	ResetUniqueCache()
}

// LineReader supplies the lines of a file in order. ReadLine returns io.EOF
// after the last line.
type LineReader interface {
	ReadLine() (string, error)
}

// LineWriter accepts the lines of a file in order.
type LineWriter interface {
	WriteLine(line string) error
}

// LineBreakDetector is implemented by line readers that know which line
// break token the source uses.
type LineBreakDetector interface {
	LineBreak() string
}

// Entry is a decoded record with the record type that produced it.
type Entry struct {
	Type   *RecordType
	Record Record
}

// Kind returns the record kind of the entry.
func (e Entry) Kind() string {
	if e.Type == nil {
		return ""
	}
	return e.Type.Kind()
}

// Stack is one group of records: an optional header, the body records in
// order, and an optional footer.
type Stack struct {
	Header *Entry
	Body   []Entry
	Footer *Entry
}

// IsEmpty reports whether the stack holds no records at all.
func (s *Stack) IsEmpty() bool {
	return s.Header == nil && s.Footer == nil && len(s.Body) == 0
}

// Len returns the number of records in the stack, header and footer included.
func (s *Stack) Len() int {
	n := len(s.Body)
	if s.Header != nil {
		n++
	}
	if s.Footer != nil {
		n++
	}
	return n
}

// Class is the result of classifying a line.
type Class int

const (
	ClassHeader Class = iota
	ClassBody
	ClassFooter
)

func (c Class) String() string {
	switch c {
	case ClassHeader:
		return "header"
	case ClassFooter:
		return "footer"
	default:
		return "body"
	}
}
