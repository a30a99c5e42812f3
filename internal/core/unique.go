package core

// unique.go checks unique keys declared by record codecs.
//
// Two scopes exist:
//  1. Body records are compared with records of the same kind already in the
//     same stack.
//  2. Header and footer records are compared with header and footer records
//     of the same kind in every other stack.
//
// The check holds no state between calls and rescans its scope every time.

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// UniqueKey is an ordered list of field names whose combined value must not
// repeat within a scope. A single-field key has one element.
type UniqueKey []string

// ParseUniqueKey parses a key spec: a field name or field names joined by ';'.
func ParseUniqueKey(spec string) UniqueKey {
	parts := strings.Split(spec, ";")
	key := make(UniqueKey, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			key = append(key, p)
		}
	}
	return key
}

// String joins the key back into its spec form.
func (k UniqueKey) String() string { return strings.Join(k, ";") }

// IsComposite reports whether the key has more than one field.
func (k UniqueKey) IsComposite() bool { return len(k) > 1 }

// UniqueKeysOf parses every key spec a codec declares, dropping empty ones.
func UniqueKeysOf(c Codec) []UniqueKey {
	specs := c.UniqueKeys()
	keys := make([]UniqueKey, 0, len(specs))
	for _, spec := range specs {
		if k := ParseUniqueKey(spec); len(k) > 0 {
			keys = append(keys, k)
		}
	}
	return keys
}

// candidate is an existing record in the comparison scope together with its
// 1-based index for error reporting.
type candidate struct {
	entry Entry
	index int
}

// ValidateBody checks e against the body records of the same kind already in
// stack. The returned violation numbers records by body position.
func ValidateBody(stack *Stack, e Entry) error {
	kind := e.Kind()
	scope := make([]candidate, 0, len(stack.Body))
	for i, existing := range stack.Body {
		if existing.Kind() == kind {
			scope = append(scope, candidate{entry: existing, index: i + 1})
		}
	}
	return validate(e, len(stack.Body)+1, scope)
}

// ValidateGroupRecord checks a header or footer entry belonging to stack n
// against the header and footer records of the same kind in every other
// stack. The returned violation numbers records by 1-based stack number.
func ValidateGroupRecord(stacks []*Stack, n int, e Entry) error {
	kind := e.Kind()
	var scope []candidate
	for i, s := range stacks {
		if i == n || s == nil {
			continue
		}
		if s.Header != nil && s.Header.Kind() == kind {
			scope = append(scope, candidate{entry: *s.Header, index: i + 1})
		}
		if s.Footer != nil && s.Footer.Kind() == kind {
			scope = append(scope, candidate{entry: *s.Footer, index: i + 1})
		}
	}
	return validate(e, n+1, scope)
}

func validate(e Entry, index int, scope []candidate) error {
	if e.Type == nil || len(scope) == 0 {
		return nil
	}
	codec := e.Type.Codec()
	allowEmpty := codec.AllowEmptyUniqueFields()
	for _, key := range UniqueKeysOf(codec) {
		for _, c := range scope {
			if keyEqual(key, e, c.entry, allowEmpty) {
				return &UniqueConstraintViolation{
					Key:      key,
					Kind:     e.Kind(),
					Index:    index,
					Conflict: c.index,
				}
			}
		}
	}
	return nil
}

// keyEqual reports whether every field of key is equal in a and b.
func keyEqual(key UniqueKey, a, b Entry, allowEmpty bool) bool {
	for _, field := range key {
		av, _ := a.Type.Codec().FieldValue(a.Record, field)
		bv, _ := b.Type.Codec().FieldValue(b.Record, field)
		if !FieldValuesEqual(av, bv, allowEmpty) {
			return false
		}
	}
	return true
}

// FieldValuesEqual compares two field values for uniqueness purposes. When
// allowEmpty is set, two empty values are never equal.
func FieldValuesEqual(a, b any, allowEmpty bool) bool {
	as, aNull := NormalizeValue(a)
	bs, bNull := NormalizeValue(b)
	if allowEmpty && isEmpty(as, aNull) && isEmpty(bs, bNull) {
		return false
	}
	if aNull || bNull {
		return aNull == bNull
	}
	return as == bs
}

// IsEmptyValue reports whether v is null, an empty string, or a string that
// parses as integer zero.
func IsEmptyValue(v any) bool {
	s, null := NormalizeValue(v)
	return isEmpty(s, null)
}

func isEmpty(s string, null bool) bool {
	if null || s == "" {
		return true
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil && n == 0
}

// NormalizeValue converts a field value to its comparable string form.
// null is true for nil values and for invalid (SQL NULL) typed values.
func NormalizeValue(v any) (s string, null bool) {
	if v == nil {
		return "", true
	}
	if valuer, ok := v.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil || dv == nil {
			return "", true
		}
		v = dv
	}
	switch x := v.(type) {
	case string:
		return x, false
	case []byte:
		return string(x), false
	case fmt.Stringer:
		return x.String(), false
	default:
		return fmt.Sprint(x), false
	}
}
