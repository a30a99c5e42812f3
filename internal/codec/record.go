package codec

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Record holds the typed field values of one line. Values are pgtype values
// (Text, Numeric, Int8, Date, Bool, UUID); an invalid value means the field
// is empty.
type Record struct {
	layout *Layout
	values []any
}

// Kind returns the name of the record's layout.
func (r *Record) Kind() string { return r.layout.name }

// Layout returns the layout the record belongs to.
func (r *Record) Layout() *Layout { return r.layout }

// Get returns the value of field name.
func (r *Record) Get(name string) (any, bool) {
	i, ok := r.layout.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Text returns the text form of field name as it would be encoded, without
// padding.
func (r *Record) Text(name string) (string, error) {
	i, ok := r.layout.index[name]
	if !ok {
		return "", fmt.Errorf("unknown field %q", name)
	}
	return formatField(r.layout.fields[i], r.values[i])
}

// Set parses raw with the field's type and stores the result.
func (r *Record) Set(name, raw string) error {
	i, ok := r.layout.index[name]
	if !ok {
		return fmt.Errorf("unknown field %q", name)
	}
	f := r.layout.fields[i]
	v, err := parseField(f, raw)
	if err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	r.values[i] = v
	return nil
}

// SetValue stores a typed value. Go values are converted to the matching
// pgtype value for the field type.
func (r *Record) SetValue(name string, v any) error {
	i, ok := r.layout.index[name]
	if !ok {
		return fmt.Errorf("unknown field %q", name)
	}
	f := r.layout.fields[i]
	converted, err := toFieldValue(f, v)
	if err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	r.values[i] = converted
	return nil
}

// Values returns field values keyed by name in a JSON-friendly form: empty
// fields are nil, dates are formatted with the field format, numbers keep
// their exact text.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for i, f := range r.layout.fields {
		out[f.Name] = jsonValue(f, r.values[i])
	}
	return out
}

func jsonValue(f FieldSpec, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case pgtype.Text:
		if !x.Valid {
			return nil
		}
		return x.String
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		return NumericString(x)
	case pgtype.Int8:
		if !x.Valid {
			return nil
		}
		return x.Int64
	case pgtype.Bool:
		if !x.Valid {
			return nil
		}
		return x.Bool
	case pgtype.Date:
		if !x.Valid {
			return nil
		}
		return x.Time.Format("2006-01-02")
	case pgtype.UUID:
		if !x.Valid {
			return nil
		}
		return UUIDString(x)
	default:
		return fmt.Sprint(v)
	}
}

func toFieldValue(f FieldSpec, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case string:
		return parseField(f, x)
	case pgtype.Text, pgtype.Numeric, pgtype.Int8, pgtype.Date, pgtype.Bool, pgtype.UUID:
		return v, nil
	case int:
		return toFieldValue(f, int64(x))
	case int64:
		switch f.Type {
		case FieldInteger:
			return pgtype.Int8{Int64: x, Valid: true}, nil
		case FieldNumeric:
			return ToNumeric(fmt.Sprint(x))
		}
	case bool:
		if f.Type == FieldBool {
			return pgtype.Bool{Bool: x, Valid: true}, nil
		}
	case time.Time:
		if f.Type == FieldDate {
			return pgtype.Date{Time: x, Valid: true}, nil
		}
	}
	return nil, fmt.Errorf("cannot store %T in %s field", v, f.Type)
}
