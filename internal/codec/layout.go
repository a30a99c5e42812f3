package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/flr/internal/core"
	"github.com/jackc/pgx/v5/pgtype"
)

// ErrWrongLayout is returned when a record is encoded with a layout of a
// different kind.
var ErrWrongLayout = errors.New("record belongs to a different layout")

// Layout is a fixed-width record codec. It implements core.Codec.
type Layout struct {
	name       string
	fields     []FieldSpec
	offsets    []int
	index      map[string]int
	width      int
	uniqueKeys []string
	keys       []core.UniqueKey
	allowEmpty bool
	cache      *core.UniqueCache
}

var _ core.Codec = (*Layout)(nil)

// NewLayout validates spec and builds a layout with its own unique cache.
func NewLayout(spec LayoutSpec) (*Layout, error) {
	return NewLayoutWithCache(spec, core.NewUniqueCache())
}

// NewLayoutWithCache is like NewLayout but uses the given unique cache.
func NewLayoutWithCache(spec LayoutSpec, cache *core.UniqueCache) (*Layout, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, errors.New("layout has no name")
	}
	if len(spec.Fields) == 0 {
		return nil, fmt.Errorf("layout %s has no fields", name)
	}
	if cache == nil {
		cache = core.NewUniqueCache()
	}

	l := &Layout{
		name:       name,
		fields:     make([]FieldSpec, len(spec.Fields)),
		offsets:    make([]int, len(spec.Fields)),
		index:      make(map[string]int, len(spec.Fields)),
		allowEmpty: spec.AllowEmptyUniqueFields,
		cache:      cache,
	}
	copy(l.fields, spec.Fields)

	for i, f := range l.fields {
		if f.Name == "" {
			return nil, fmt.Errorf("layout %s: field %d has no name", name, i+1)
		}
		if _, dup := l.index[f.Name]; dup {
			return nil, fmt.Errorf("layout %s: duplicate field %q", name, f.Name)
		}
		if f.Length <= 0 {
			return nil, fmt.Errorf("layout %s: field %q needs a positive length", name, f.Name)
		}
		if f.Type == FieldBool && f.Format != "" && utf8.RuneCountInString(f.Format) != 2 {
			return nil, fmt.Errorf("layout %s: bool field %q format must be two characters", name, f.Name)
		}
		l.index[f.Name] = i
		l.offsets[i] = l.width
		l.width += f.Length
	}

	for _, ks := range spec.UniqueKeys {
		key := core.ParseUniqueKey(ks)
		if len(key) == 0 {
			continue
		}
		for _, field := range key {
			if _, ok := l.index[field]; !ok {
				return nil, fmt.Errorf("layout %s: unique key %q names unknown field %q", name, ks, field)
			}
		}
		l.uniqueKeys = append(l.uniqueKeys, key.String())
		l.keys = append(l.keys, key)
	}
	return l, nil
}

// MustLayout is like NewLayout but panics on error.
func MustLayout(spec LayoutSpec) *Layout {
	l, err := NewLayout(spec)
	if err != nil {
		panic(err)
	}
	return l
}

// Kind returns the layout name.
func (l *Layout) Kind() string { return l.name }

// Width returns the total width of a line in characters.
func (l *Layout) Width() int { return l.width }

// Fields returns the field specs in line order.
func (l *Layout) Fields() []FieldSpec {
	out := make([]FieldSpec, len(l.fields))
	copy(out, l.fields)
	return out
}

// UniqueKeys returns the key specs.
func (l *Layout) UniqueKeys() []string {
	out := make([]string, len(l.uniqueKeys))
	copy(out, l.uniqueKeys)
	return out
}

// AllowEmptyUniqueFields reports whether mutually empty values are exempt
// from uniqueness.
func (l *Layout) AllowEmptyUniqueFields() bool { return l.allowEmpty }

// ResetUniqueCache clears the unique cache.
func (l *Layout) ResetUniqueCache() { l.cache.Reset() }

// NewRecord returns a record of this layout with every field empty.
func (l *Layout) NewRecord() *Record {
	return &Record{layout: l, values: make([]any, len(l.fields))}
}

// FieldValue returns the value of field name in rec.
func (l *Layout) FieldValue(rec core.Record, name string) (any, bool) {
	r, ok := rec.(*Record)
	if !ok || r == nil {
		return nil, false
	}
	return r.Get(name)
}

// Decode parses line into a Record. When the line only fails because a
// unique key value was already seen since the last cache reset, the record
// is returned together with a *core.UniqueConstraintViolation.
func (l *Layout) Decode(line string) (core.Record, error) {
	runes := []rune(line)
	rec := l.NewRecord()

	for i, f := range l.fields {
		start := l.offsets[i]
		raw := ""
		if start < len(runes) {
			end := min(start+f.Length, len(runes))
			raw = string(runes[start:end])
		}
		v, err := parseField(f, raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		rec.values[i] = v
	}

	if len(runes) > l.width {
		if extra := strings.TrimSpace(string(runes[l.width:])); extra != "" {
			return nil, fmt.Errorf("unexpected data after column %d: %q", l.width, extra)
		}
	}

	if err := l.checkCache(rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// checkCache remembers rec's unique key values and reports the first value
// already seen.
func (l *Layout) checkCache(rec *Record) error {
	if len(l.keys) == 0 {
		return nil
	}
	pos := l.cache.Next()
	for _, key := range l.keys {
		value, ok := l.cacheValue(rec, key)
		if !ok {
			continue
		}
		if first, fresh := l.cache.Check(key.String(), value, pos); !fresh {
			return &core.UniqueConstraintViolation{
				Key:      key,
				Kind:     l.name,
				Index:    pos,
				Conflict: first,
			}
		}
	}
	return nil
}

// cacheValue joins the key's field values. ok is false when an empty value
// makes the key exempt.
func (l *Layout) cacheValue(rec *Record, key core.UniqueKey) (string, bool) {
	parts := make([]string, len(key))
	for i, field := range key {
		v, _ := rec.Get(field)
		s, null := core.NormalizeValue(v)
		if l.allowEmpty && core.IsEmptyValue(v) {
			return "", false
		}
		if null {
			s = "\x00"
		}
		parts[i] = s
	}
	return strings.Join(parts, "\x1f"), true
}

// Encode formats rec as a line of exactly Width characters.
func (l *Layout) Encode(rec core.Record) (string, error) {
	r, ok := rec.(*Record)
	if !ok || r == nil {
		return "", fmt.Errorf("%w: %T", ErrWrongLayout, rec)
	}
	if r.layout != l && r.layout.name != l.name {
		return "", fmt.Errorf("%w: %s, want %s", ErrWrongLayout, r.layout.name, l.name)
	}

	var b strings.Builder
	b.Grow(l.width)
	for i, f := range l.fields {
		text, err := formatField(f, r.values[i])
		if err != nil {
			return "", fmt.Errorf("field %q: %w", f.Name, err)
		}
		cell, err := padField(f, text)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", f.Name, err)
		}
		b.WriteString(cell)
	}
	return b.String(), nil
}

// parseField trims padding from raw and converts it to the field type.
func parseField(f FieldSpec, raw string) (any, error) {
	text := trimField(f, raw)
	if text == "" && f.Required {
		return nil, errors.New("required field is empty")
	}

	switch f.Type {
	case FieldNumeric:
		return ToNumeric(text)
	case FieldInteger:
		return ToInt8(text)
	case FieldDate:
		if strings.Trim(text, "0") == "" {
			return pgtype.Date{}, nil
		}
		return ToDate(text, f.Format)
	case FieldBool:
		return ToBool(text, f.Format)
	case FieldUUID:
		return ToUUID(text)
	default:
		return ToText(text), nil
	}
}

// trimField removes padding from the aligned side of raw.
func trimField(f FieldSpec, raw string) string {
	pad := string(f.pad())
	if f.align() == AlignLeft {
		return strings.TrimRight(raw, pad)
	}

	trimmed := strings.TrimLeft(raw, pad)
	if f.pad() == '0' {
		// keep the sign in front of zero padding: "-0012" -> "-12"
		if sign := strings.IndexAny(trimmed, "+-"); sign == 0 && len(trimmed) > 1 {
			rest := strings.TrimLeft(trimmed[1:], "0")
			if rest == "" {
				rest = "0"
			}
			trimmed = trimmed[:1] + rest
		}
		if trimmed == "" && raw != "" {
			trimmed = "0"
		}
	}
	return strings.TrimSpace(trimmed)
}

// formatField converts a typed value to its text form.
func formatField(f FieldSpec, v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case pgtype.Text:
		if !x.Valid {
			return "", nil
		}
		return x.String, nil
	case pgtype.Numeric:
		return NumericString(x), nil
	case pgtype.Int8:
		if !x.Valid {
			return "", nil
		}
		return strconv.FormatInt(x.Int64, 10), nil
	case pgtype.Date:
		if !x.Valid {
			return "", nil
		}
		layout := f.Format
		if layout == "" {
			layout = DefaultDateFormat
		}
		return x.Time.Format(layout), nil
	case pgtype.Bool:
		if !x.Valid {
			return "", nil
		}
		tf := []rune(f.Format)
		if len(tf) != 2 {
			tf = []rune("YN")
		}
		if x.Bool {
			return string(tf[0]), nil
		}
		return string(tf[1]), nil
	case pgtype.UUID:
		return UUIDString(x), nil
	case string:
		return x, nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// padField pads text to the field width on the side opposite its alignment.
func padField(f FieldSpec, text string) (string, error) {
	n := utf8.RuneCountInString(text)
	if n > f.Length {
		return "", fmt.Errorf("value %q exceeds width %d", text, f.Length)
	}
	fill := strings.Repeat(string(f.pad()), f.Length-n)
	if f.align() == AlignLeft {
		return text + fill, nil
	}
	if f.pad() == '0' && (strings.HasPrefix(text, "-") || strings.HasPrefix(text, "+")) {
		return text[:1] + fill + text[1:], nil
	}
	return fill + text, nil
}
