package codec

// convert.go converts fixed-width field text to typed values and back.
//
// Parsing is forgiving in the same places a hand-maintained record file is
// messy: multiple date formats when no layout is given, thousands separators
// and accounting negatives in numbers, and several boolean spellings.
//
// All To* functions return pgtype values with Valid=false for empty input,
// which is how a field records "no value".

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates a numeric string after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// TwoDigitYearPivot decides the century of 2-digit years: years more than
// this many years in the future belong to the previous century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06", "060102",
	}
	fourDigitYearLayouts = []string{
		"20060102",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
	}
)

// DefaultDateFormat is used to encode dates when a field has no format.
const DefaultDateFormat = "20060102"

// ToText converts a string to pgtype.Text. Empty input is invalid.
func ToText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToDate parses s with layout, or with the known layouts when layout is empty.
func ToDate(s, layout string) (pgtype.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{}, nil
	}
	if layout != "" {
		t, err := time.Parse(layout, s)
		if err != nil {
			return pgtype.Date{}, fmt.Errorf("invalid date %q for layout %q", s, layout)
		}
		return pgtype.Date{Time: t, Valid: true}, nil
	}

	for _, l := range fourDigitYearLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return pgtype.Date{Time: t, Valid: true}, nil
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, l := range twoDigitYearLayouts {
		if t, err := time.Parse(l, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Date{Time: t, Valid: true}, nil
		}
	}
	return pgtype.Date{}, fmt.Errorf("invalid date %q", s)
}

// ToNumeric converts s to pgtype.Numeric. It accepts thousands separators
// and the accounting negative format "(123.45)".
func ToNumeric(s string) (pgtype.Numeric, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{}, nil
	}
	orig := s

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, ",", "")
	if negative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{}, fmt.Errorf("invalid number %q", orig)
	}
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("invalid number %q: %w", orig, err)
	}
	return n, nil
}

// ToInt8 converts s to pgtype.Int8.
func ToInt8(s string) (pgtype.Int8, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Int8{}, nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return pgtype.Int8{}, fmt.Errorf("invalid integer %q", s)
	}
	return pgtype.Int8{Int64: i, Valid: true}, nil
}

// ToBool converts s to pgtype.Bool. trueFalse, when two characters long,
// names the characters used for true and false; otherwise the usual
// spellings are accepted: true/false, yes/no, t/f, y/n, 1/0.
func ToBool(s, trueFalse string) (pgtype.Bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Bool{}, nil
	}
	if tf := []rune(trueFalse); len(tf) == 2 {
		switch s {
		case string(tf[0]):
			return pgtype.Bool{Bool: true, Valid: true}, nil
		case string(tf[1]):
			return pgtype.Bool{Bool: false, Valid: true}, nil
		}
	}
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y", "1":
		return pgtype.Bool{Bool: true, Valid: true}, nil
	case "false", "f", "no", "n", "0":
		return pgtype.Bool{Bool: false, Valid: true}, nil
	}
	return pgtype.Bool{}, fmt.Errorf("invalid bool %q", s)
}

// ToUUID converts s to pgtype.UUID.
func ToUUID(s string) (pgtype.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.UUID{}, nil
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid uuid %q", s)
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

// UUIDString formats a pgtype.UUID, or returns "" when it is invalid.
func UUIDString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// NumericString formats a pgtype.Numeric in plain decimal notation, or
// returns "" when it is invalid.
func NumericString(n pgtype.Numeric) string {
	if !n.Valid || n.Int == nil {
		return ""
	}
	digits := n.Int.String()
	negative := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	switch {
	case n.Exp > 0:
		digits += strings.Repeat("0", int(n.Exp))
	case n.Exp < 0:
		scale := int(-n.Exp)
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	}
	if negative {
		digits = "-" + digits
	}
	return digits
}
