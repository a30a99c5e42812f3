// Package schema loads FLR file layouts from YAML.
//
// A schema names the record types of one file format: an optional header
// and footer and one or more body records, each with a recognition pattern
// and/or line length and an ordered list of fixed-width fields. A schema is
// turned into a fresh core.Registry for every file it reads or writes, so
// unique caches are never shared between files.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JonMunkholm/flr/internal/codec"
	"github.com/JonMunkholm/flr/internal/core"
	"github.com/JonMunkholm/flr/internal/lineio"
	"gopkg.in/yaml.v3"
)

// Schema is the YAML form of a file format.
type Schema struct {
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description,omitempty"`
	Encoding        string   `yaml:"encoding,omitempty"`
	LineBreak       string   `yaml:"line_break,omitempty"`
	RejectAmbiguous bool     `yaml:"reject_ambiguous,omitempty"`
	Header          *Record  `yaml:"header,omitempty"`
	Footer          *Record  `yaml:"footer,omitempty"`
	Body            []Record `yaml:"body"`
}

// Record is the YAML form of one record type. An omitted length means the
// record is recognized by pattern only; "length: 0" matches empty lines.
type Record struct {
	Name             string   `yaml:"name"`
	Pattern          string   `yaml:"pattern,omitempty"`
	Length           *int     `yaml:"length,omitempty"`
	UniqueKeys       []string `yaml:"unique_keys,omitempty"`
	AllowEmptyUnique bool     `yaml:"allow_empty_unique,omitempty"`
	Fields           []Field  `yaml:"fields"`
}

// Field is the YAML form of one fixed-width field.
type Field struct {
	Name     string `yaml:"name"`
	Length   int    `yaml:"length"`
	Type     string `yaml:"type,omitempty"`
	Align    string `yaml:"align,omitempty"`
	Pad      string `yaml:"pad,omitempty"`
	Format   string `yaml:"format,omitempty"`
	Required bool   `yaml:"required,omitempty"`
}

// Parse decodes one YAML schema document. Unknown keys are rejected.
func Parse(data []byte) (*Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Schema
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty schema document")
		}
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); err == nil {
		return nil, errors.New("multiple YAML documents are not supported")
	} else if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses the schema file at path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks the schema by building its registry once.
func (s *Schema) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("schema has no name")
	}
	if len(s.Body) == 0 {
		return fmt.Errorf("schema %s: %w", s.Name, &core.ConfigurationError{Reason: "missing body record type"})
	}
	if err := lineio.ValidEncoding(s.Encoding); err != nil {
		return fmt.Errorf("schema %s: %w", s.Name, err)
	}
	if _, err := ParseLineBreak(s.LineBreak); err != nil {
		return fmt.Errorf("schema %s: %w", s.Name, err)
	}
	if _, err := s.Registry(); err != nil {
		return fmt.Errorf("schema %s: %w", s.Name, err)
	}
	return nil
}

// Registry builds a new registry with fresh codecs.
func (s *Schema) Registry() (*core.Registry, error) {
	reg, err := core.NewRegistry()
	if err != nil {
		return nil, err
	}
	reg.SetRejectAmbiguous(s.RejectAmbiguous)

	for i := range s.Body {
		rt, err := s.Body[i].recordType()
		if err != nil {
			return nil, err
		}
		if err := reg.Register(rt); err != nil {
			return nil, err
		}
	}
	if s.Header != nil {
		rt, err := s.Header.recordType()
		if err != nil {
			return nil, err
		}
		if err := reg.SetHeader(rt); err != nil {
			return nil, err
		}
	}
	if s.Footer != nil {
		rt, err := s.Footer.recordType()
		if err != nil {
			return nil, err
		}
		if err := reg.SetFooter(rt); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

// NewFile builds a registry and returns an empty file using the schema's
// encoding and line break. opts are applied after the schema's own options.
func (s *Schema) NewFile(opts ...core.Option) (*core.File, error) {
	reg, err := s.Registry()
	if err != nil {
		return nil, err
	}
	lb, err := ParseLineBreak(s.LineBreak)
	if err != nil {
		return nil, err
	}
	base := []core.Option{core.WithEncoding(s.Encoding), core.WithLineBreak(lb)}
	return core.NewFile(reg, append(base, opts...)...)
}

// Layout builds the codec for r.
func (r *Record) Layout() (*codec.Layout, error) {
	spec := codec.LayoutSpec{
		Name:                   r.Name,
		UniqueKeys:             r.UniqueKeys,
		AllowEmptyUniqueFields: r.AllowEmptyUnique,
		Fields:                 make([]codec.FieldSpec, 0, len(r.Fields)),
	}
	for _, f := range r.Fields {
		fs, err := f.spec()
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.Name, err)
		}
		spec.Fields = append(spec.Fields, fs)
	}
	return codec.NewLayout(spec)
}

// LineLength returns the declared line length, or core.NoLength.
func (r *Record) LineLength() int {
	if r.Length == nil {
		return core.NoLength
	}
	return *r.Length
}

// Width returns the sum of the field lengths.
func (r *Record) Width() int {
	w := 0
	for _, f := range r.Fields {
		w += f.Length
	}
	return w
}

func (r *Record) recordType() (*core.RecordType, error) {
	l, err := r.Layout()
	if err != nil {
		return nil, &core.ConfigurationError{Reason: "invalid record " + r.Name, Err: err}
	}
	return core.NewRecordType(l, r.Pattern, r.LineLength())
}

func (f Field) spec() (codec.FieldSpec, error) {
	typ, err := codec.ParseFieldType(f.Type)
	if err != nil {
		return codec.FieldSpec{}, fmt.Errorf("field %s: %w", f.Name, err)
	}
	align, err := codec.ParseAlign(f.Align)
	if err != nil {
		return codec.FieldSpec{}, fmt.Errorf("field %s: %w", f.Name, err)
	}
	var pad rune
	switch p := []rune(f.Pad); len(p) {
	case 0:
	case 1:
		pad = p[0]
	default:
		return codec.FieldSpec{}, fmt.Errorf("field %s: pad must be one character", f.Name)
	}
	return codec.FieldSpec{
		Name:     f.Name,
		Length:   f.Length,
		Type:     typ,
		Align:    align,
		Pad:      pad,
		Format:   f.Format,
		Required: f.Required,
	}, nil
}

// ParseLineBreak converts a schema line break name to its token. It accepts
// "lf", "crlf", "cr", an escaped form such as "\r\n", or any literal
// token. Empty means detect on read.
func ParseLineBreak(s string) (string, error) {
	switch strings.ToLower(s) {
	case "":
		return "", nil
	case "lf", `\n`:
		return "\n", nil
	case "crlf", `\r\n`:
		return "\r\n", nil
	case "cr", `\r`:
		return "\r", nil
	}
	if strings.TrimSpace(s) == "" && !strings.ContainsAny(s, "\r\n") {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidLineBreak, s)
	}
	return s, nil
}

// Summary describes a schema for listings.
type Summary struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Encoding    string   `json:"encoding,omitempty"`
	Header      string   `json:"header,omitempty"`
	Footer      string   `json:"footer,omitempty"`
	Body        []string `json:"body"`
}

// Summary returns the record kinds of s.
func (s *Schema) Summary() Summary {
	sum := Summary{
		Name:        s.Name,
		Description: s.Description,
		Encoding:    s.Encoding,
		Body:        make([]string, 0, len(s.Body)),
	}
	if s.Header != nil {
		sum.Header = s.Header.Name
	}
	if s.Footer != nil {
		sum.Footer = s.Footer.Name
	}
	for _, r := range s.Body {
		sum.Body = append(sum.Body, r.Name)
	}
	return sum
}
