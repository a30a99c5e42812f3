package core

import (
	"errors"
	"testing"
)

// mapCodec is a minimal codec that stores the whole line under "line" and
// splits it on '|' into fields f0, f1, ...
type mapCodec struct {
	kind       string
	keys       []string
	allowEmpty bool
	resets     int
}

func (c *mapCodec) Kind() string { return c.kind }

func (c *mapCodec) Decode(line string) (Record, error) {
	rec := map[string]any{"line": line}
	start, n := 0, 0
	for i := 0; i <= len(line); i++ {
		if i == len(line) || line[i] == '|' {
			rec["f"+string(rune('0'+n))] = line[start:i]
			start, n = i+1, n+1
		}
	}
	return rec, nil
}

func (c *mapCodec) Encode(rec Record) (string, error) {
	return rec.(map[string]any)["line"].(string), nil
}

func (c *mapCodec) FieldValue(rec Record, name string) (any, bool) {
	v, ok := rec.(map[string]any)[name]
	return v, ok
}

func (c *mapCodec) UniqueKeys() []string         { return c.keys }
func (c *mapCodec) AllowEmptyUniqueFields() bool { return c.allowEmpty }
func (c *mapCodec) ResetUniqueCache()            { c.resets++ }

func TestNewRecordType_Errors(t *testing.T) {
	c := &mapCodec{kind: "x"}

	if _, err := NewRecordType(nil, "^A", NoLength); err == nil {
		t.Error("nil codec: expected error")
	}
	if _, err := NewRecordType(c, "", NoLength); err == nil {
		t.Error("no pattern and no length: expected error")
	}

	_, err := NewRecordType(c, "([", NoLength)
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("invalid pattern error = %v, want ConfigurationError", err)
	}
	if ce.Err == nil {
		t.Error("ConfigurationError should wrap the regexp error")
	}
}

func TestRegistry_DuplicateCriteria(t *testing.T) {
	a := MustRecordType(&mapCodec{kind: "a"}, "^A", 5)
	b := MustRecordType(&mapCodec{kind: "b"}, "^A", 5)

	_, err := NewRegistry(a, b)
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Errorf("NewRegistry error = %v, want ConfigurationError", err)
	}
}

func TestRegistry_DuplicateKind(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Registry) error
	}{
		{"two bodies", func(r *Registry) error {
			return r.Register(MustRecordType(&mapCodec{kind: "row"}, "^B", NoLength))
		}},
		{"header shares body kind", func(r *Registry) error {
			return r.SetHeader(MustRecordType(&mapCodec{kind: "row"}, "^H", NoLength))
		}},
		{"footer shares body kind", func(r *Registry) error {
			return r.SetFooter(MustRecordType(&mapCodec{kind: "row"}, "^F", NoLength))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := NewRegistry(MustRecordType(&mapCodec{kind: "row", keys: []string{"f0"}}, "^A", NoLength))
			if err != nil {
				t.Fatal(err)
			}
			err = tt.setup(reg)
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("error = %v, want ConfigurationError", err)
			}
			if len(reg.Body()) != 1 || reg.Header() != nil || reg.Footer() != nil {
				t.Error("rejected record type was registered")
			}
		})
	}
}

func TestRegistry_HeaderAndFooterOnce(t *testing.T) {
	reg, err := NewRegistry(MustRecordType(&mapCodec{kind: "body"}, "", 3))
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.SetHeader(MustRecordType(&mapCodec{kind: "h"}, "^H", NoLength)); err != nil {
		t.Fatalf("SetHeader: %v", err)
	}
	if err := reg.SetHeader(MustRecordType(&mapCodec{kind: "h2"}, "^X", NoLength)); err == nil {
		t.Error("second SetHeader: expected error")
	}
	if err := reg.SetFooter(MustRecordType(&mapCodec{kind: "f"}, "^H", NoLength)); err == nil {
		t.Error("footer with header criteria: expected error")
	}
	if err := reg.SetFooter(MustRecordType(&mapCodec{kind: "f"}, "^F", NoLength)); err != nil {
		t.Fatalf("SetFooter: %v", err)
	}
	if err := reg.SetFooter(MustRecordType(&mapCodec{kind: "f2"}, "^Y", NoLength)); err == nil {
		t.Error("second SetFooter: expected error")
	}
}

func TestRegistry_ValidateMissingBody(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	var ce *ConfigurationError
	if err := reg.Validate(); !errors.As(err, &ce) {
		t.Errorf("Validate error = %v, want ConfigurationError", err)
	}
	if _, err := NewFile(reg); !errors.As(err, &ce) {
		t.Errorf("NewFile error = %v, want ConfigurationError", err)
	}
}

func TestRegistry_ResetUniqueCaches(t *testing.T) {
	body := &mapCodec{kind: "body"}
	head := &mapCodec{kind: "head"}
	reg, err := NewRegistry(MustRecordType(body, "", 3))
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.SetHeader(MustRecordType(head, "^H", NoLength)); err != nil {
		t.Fatal(err)
	}
	body.resets, head.resets = 0, 0

	reg.ResetUniqueCaches()
	if body.resets != 1 || head.resets != 1 {
		t.Errorf("resets = body %d head %d, want 1 each", body.resets, head.resets)
	}
}

func TestClassify(t *testing.T) {
	reg, err := NewRegistry(
		MustRecordType(&mapCodec{kind: "short"}, "", 3),
		MustRecordType(&mapCodec{kind: "tagged"}, "^T", 3),
		MustRecordType(&mapCodec{kind: "any-d"}, "^D", NoLength),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.SetHeader(MustRecordType(&mapCodec{kind: "head"}, "^HDR", 10)); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetFooter(MustRecordType(&mapCodec{kind: "foot"}, "^END", NoLength)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		line      string
		wantClass Class
		wantKind  string
		wantErr   bool
	}{
		{line: "HDR", wantClass: ClassHeader, wantKind: "head"},
		{line: "0123456789", wantClass: ClassHeader, wantKind: "head"},
		{line: "END of file", wantClass: ClassFooter, wantKind: "foot"},
		{line: "abc", wantClass: ClassBody, wantKind: "short"},
		{line: "Tab", wantClass: ClassBody, wantKind: "tagged"},
		{line: "Tabc", wantErr: true},
		{line: "D", wantClass: ClassBody, wantKind: "any-d"},
		{line: "Dxy", wantClass: ClassBody, wantKind: "any-d"},
		{line: "äöü", wantClass: ClassBody, wantKind: "short"},
		{line: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			class, rt, err := reg.Classify(tt.line)
			if tt.wantErr {
				var nm *NoMatchingTypeError
				if !errors.As(err, &nm) {
					t.Errorf("Classify(%q) error = %v, want NoMatchingTypeError", tt.line, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Classify(%q): %v", tt.line, err)
			}
			if class != tt.wantClass || rt.Kind() != tt.wantKind {
				t.Errorf("Classify(%q) = %v/%s, want %v/%s", tt.line, class, rt.Kind(), tt.wantClass, tt.wantKind)
			}
		})
	}
}
