// Package codec implements fixed-width record layouts.
//
// A Layout describes one record kind as an ordered list of fields, each
// with a width in characters, a value type and padding rules. Layouts
// satisfy core.Codec: they decode a line into a Record of typed values,
// encode a Record back into a line of exactly the layout's width, and
// expose field values by name for unique key checks.
package codec

import (
	"fmt"
	"strings"
)

// FieldType is the value type of a field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldNumeric
	FieldInteger
	FieldDate
	FieldBool
	FieldUUID
)

var fieldTypeNames = map[FieldType]string{
	FieldText:    "text",
	FieldNumeric: "numeric",
	FieldInteger: "integer",
	FieldDate:    "date",
	FieldBool:    "bool",
	FieldUUID:    "uuid",
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return "value"
}

// ParseFieldType parses a type name. An empty name is text.
func ParseFieldType(s string) (FieldType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FieldText, nil
	}
	for t, name := range fieldTypeNames {
		if name == s {
			return t, nil
		}
	}
	switch s {
	case "string":
		return FieldText, nil
	case "int", "number":
		return FieldInteger, nil
	case "decimal":
		return FieldNumeric, nil
	case "boolean":
		return FieldBool, nil
	}
	return FieldText, fmt.Errorf("unknown field type %q", s)
}

// Align is the side a value is pushed to within its field.
type Align int

const (
	// AlignDefault aligns numbers right and everything else left.
	AlignDefault Align = iota
	AlignLeft
	AlignRight
)

// ParseAlign parses "left", "right" or "".
func ParseAlign(s string) (Align, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return AlignDefault, nil
	case "left":
		return AlignLeft, nil
	case "right":
		return AlignRight, nil
	}
	return AlignDefault, fmt.Errorf("unknown alignment %q", s)
}

// FieldSpec describes one fixed-width field.
type FieldSpec struct {
	Name     string    // Field name, unique within the layout
	Length   int       // Width in characters
	Type     FieldType // Value type
	Align    Align     // Padding side
	Pad      rune      // Padding character (default: space)
	Format   string    // Date layout, or two characters for bool true/false
	Required bool      // Empty values are rejected
}

func (f FieldSpec) align() Align {
	if f.Align != AlignDefault {
		return f.Align
	}
	if f.Type == FieldNumeric || f.Type == FieldInteger {
		return AlignRight
	}
	return AlignLeft
}

func (f FieldSpec) pad() rune {
	if f.Pad == 0 {
		return ' '
	}
	return f.Pad
}

// LayoutSpec is the definition a Layout is built from.
type LayoutSpec struct {
	Name                   string      // Record kind name
	Fields                 []FieldSpec // Fields in line order
	UniqueKeys             []string    // Key specs: "field" or "a;b" for a composite key
	AllowEmptyUniqueFields bool        // Mutually empty values never collide
}
