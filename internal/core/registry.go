package core

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// NoLength marks a record type that is not recognized by line length.
const NoLength = -1

// RecordType describes how to recognize and decode one record kind.
type RecordType struct {
	codec   Codec
	pattern *regexp.Regexp
	length  int
}

// NewRecordType creates a record type recognized by pattern, by exact line
// length, or both. An empty pattern means no pattern; a negative length
// means no length. At least one of the two is required.
func NewRecordType(codec Codec, pattern string, length int) (*RecordType, error) {
	if codec == nil {
		return nil, configErr("record type has no codec")
	}
	if length < 0 {
		length = NoLength
	}
	rt := &RecordType{codec: codec, length: length}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &ConfigurationError{
				Reason: fmt.Sprintf("invalid pattern %q for %s", pattern, codec.Kind()),
				Err:    err,
			}
		}
		rt.pattern = re
	}
	if rt.pattern == nil && rt.length == NoLength {
		return nil, configErr("record type %s needs a pattern or a fixed length", codec.Kind())
	}
	return rt, nil
}

// MustRecordType is like NewRecordType but panics on error.
// Use it only for static configuration.
func MustRecordType(codec Codec, pattern string, length int) *RecordType {
	rt, err := NewRecordType(codec, pattern, length)
	if err != nil {
		panic(err)
	}
	return rt
}

// Codec returns the record type's codec.
func (rt *RecordType) Codec() Codec { return rt.codec }

// Kind returns the kind of records this type decodes.
func (rt *RecordType) Kind() string { return rt.codec.Kind() }

// Pattern returns the recognition pattern source, or "" when none is set.
func (rt *RecordType) Pattern() string {
	if rt.pattern == nil {
		return ""
	}
	return rt.pattern.String()
}

// Length returns the fixed line length, or NoLength.
func (rt *RecordType) Length() int { return rt.length }

func (rt *RecordType) sameCriteria(other *RecordType) bool {
	return rt.Pattern() == other.Pattern() && rt.length == other.length
}

// acceptsAny reports whether either configured criterion accepts the line.
// Header and footer types are recognized this way.
func (rt *RecordType) acceptsAny(line string, n int) bool {
	if rt.pattern != nil && rt.pattern.MatchString(line) {
		return true
	}
	return rt.length != NoLength && rt.length == n
}

// acceptsAll reports whether every configured criterion accepts the line.
// Body types are recognized this way.
func (rt *RecordType) acceptsAll(line string, n int) bool {
	if rt.pattern != nil && !rt.pattern.MatchString(line) {
		return false
	}
	return rt.length == NoLength || rt.length == n
}

// Registry holds the configured record types: at most one header type, at
// most one footer type and one or more body types.
type Registry struct {
	header *RecordType
	footer *RecordType
	body   []*RecordType

	rejectAmbiguous bool
}

// NewRegistry creates a registry with the given body types.
func NewRegistry(body ...*RecordType) (*Registry, error) {
	r := &Registry{}
	for _, rt := range body {
		if err := r.Register(rt); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a body record type. It fails if an existing record type has
// the same kind, or the same pattern and length.
func (r *Registry) Register(rt *RecordType) error {
	if err := r.admit(rt); err != nil {
		return err
	}
	rt.codec.ResetUniqueCache()
	r.body = append(r.body, rt)
	return nil
}

// SetHeader configures the header record type. It may be called once.
func (r *Registry) SetHeader(rt *RecordType) error {
	if r.header != nil {
		return configErr("header record type already set")
	}
	if err := r.admit(rt); err != nil {
		return err
	}
	rt.codec.ResetUniqueCache()
	r.header = rt
	return nil
}

// SetFooter configures the footer record type. It may be called once.
func (r *Registry) SetFooter(rt *RecordType) error {
	if r.footer != nil {
		return configErr("footer record type already set")
	}
	if err := r.admit(rt); err != nil {
		return err
	}
	rt.codec.ResetUniqueCache()
	r.footer = rt
	return nil
}

// SetRejectAmbiguous switches body classification from last-match-wins to
// rejecting lines that satisfy more than one body type.
func (r *Registry) SetRejectAmbiguous(reject bool) { r.rejectAmbiguous = reject }

func (r *Registry) admit(rt *RecordType) error {
	if rt == nil || rt.codec == nil {
		return configErr("nil record type")
	}
	if rt.pattern == nil && rt.length == NoLength {
		return configErr("record type %s needs a pattern or a fixed length", rt.Kind())
	}
	for _, existing := range r.all() {
		if existing.Kind() == rt.Kind() {
			return configErr("duplicate record kind %s: unique keys are scoped by kind", rt.Kind())
		}
		if existing.sameCriteria(rt) {
			return configErr("duplicate record type %s: pattern %q and length %d already used by %s",
				rt.Kind(), rt.Pattern(), rt.length, existing.Kind())
		}
	}
	return nil
}

// Header returns the header record type, or nil.
func (r *Registry) Header() *RecordType { return r.header }

// Footer returns the footer record type, or nil.
func (r *Registry) Footer() *RecordType { return r.footer }

// Body returns the body record types in registration order.
func (r *Registry) Body() []*RecordType {
	out := make([]*RecordType, len(r.body))
	copy(out, r.body)
	return out
}

// Validate checks that the registry can be used to read or write files.
func (r *Registry) Validate() error {
	if r == nil {
		return configErr("no registry")
	}
	if len(r.body) == 0 {
		return configErr("missing body record type")
	}
	return nil
}

// ResetUniqueCaches clears the unique cache of every record type.
func (r *Registry) ResetUniqueCaches() {
	for _, rt := range r.all() {
		rt.codec.ResetUniqueCache()
	}
}

func (r *Registry) all() []*RecordType {
	out := make([]*RecordType, 0, len(r.body)+2)
	if r.header != nil {
		out = append(out, r.header)
	}
	if r.footer != nil {
		out = append(out, r.footer)
	}
	return append(out, r.body...)
}

// lineLength counts characters, not bytes.
func lineLength(line string) int {
	return utf8.RuneCountInString(line)
}
