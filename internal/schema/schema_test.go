package schema

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/flr/internal/codec"
	"github.com/JonMunkholm/flr/internal/core"
	"github.com/google/go-cmp/cmp"
)

type lines struct {
	in  []string
	pos int
	out []string
}

func (l *lines) ReadLine() (string, error) {
	if l.pos >= len(l.in) {
		return "", io.EOF
	}
	l.pos++
	return l.in[l.pos-1], nil
}

func (l *lines) WriteLine(s string) error {
	l.out = append(l.out, s)
	return nil
}

func TestBuiltin(t *testing.T) {
	c, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	if diff := cmp.Diff([]string{"ledger", "payments"}, c.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}

	s, err := c.Get("payments")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for _, r := range s.Body {
		if r.Width() != r.LineLength() {
			t.Errorf("record %s: fields are %d wide, line length is %d", r.Name, r.Width(), r.LineLength())
		}
	}
	if _, err := c.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestPayments_ReadWrite(t *testing.T) {
	c, err := Builtin()
	if err != nil {
		t.Fatal(err)
	}
	s, _ := c.Get("payments")

	f, err := s.NewFile()
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if f.LineBreak() != "\r\n" {
		t.Errorf("LineBreak() = %q, want CRLF", f.LineBreak())
	}

	in := []string{
		"HB000000001" + "20240315" + pad("ACME BANK", 21),
		"P" + pad("REF000000001", 12) + pad("NL01BANK0123456789", 18) + "000012.50",
		"R" + pad("REF000000002", 12) + pad("NL01BANK0123456789", 18) + "000002.00",
		"TB000000001" + "000002" + "0000000014.50" + pad("", 10),
	}
	src := &lines{in: in}
	if err := f.Read(context.Background(), src); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", f.Len())
	}
	stack, _ := f.Stack(0)
	if got := stack.Body[1].Kind(); got != "reversal" {
		t.Errorf("second body kind = %q, want reversal", got)
	}
	amount, _ := stack.Body[0].Record.(*codec.Record).Text("amount")
	if amount != "12.50" {
		t.Errorf("amount = %q, want 12.50", amount)
	}

	if err := f.Write(context.Background(), src); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if diff := cmp.Diff(in, src.out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "", "empty schema"},
		{"unknown key", "name: x\nbodies: []\n", "field bodies not found"},
		{"no name", "body:\n  - {name: a, length: 1, fields: [{name: f, length: 1}]}\n", "no name"},
		{"no body", "name: x\n", "missing body"},
		{"bad encoding", "name: x\nencoding: klingon-8\nbody:\n  - {name: a, length: 1, fields: [{name: f, length: 1}]}\n", "unsupported encoding"},
		{"bad pattern", "name: x\nbody:\n  - {name: a, pattern: \"([\", fields: [{name: f, length: 1}]}\n", "invalid pattern"},
		{"no criteria", "name: x\nbody:\n  - {name: a, fields: [{name: f, length: 1}]}\n", "pattern or a fixed length"},
		{"bad type", "name: x\nbody:\n  - {name: a, length: 1, fields: [{name: f, length: 1, type: blob}]}\n", "unknown field type"},
		{"duplicate criteria", "name: x\nbody:\n  - {name: a, length: 1, fields: [{name: f, length: 1}]}\n  - {name: b, length: 1, fields: [{name: f, length: 1}]}\n", "duplicate record type"},
		{"duplicate name", "name: x\nbody:\n  - {name: row, pattern: \"^A\", fields: [{name: id, length: 4}], unique_keys: [id]}\n  - {name: row, pattern: \"^B\", fields: [{name: id, length: 4}], unique_keys: [id]}\n", "duplicate record kind row"},
		{"header shares body name", "name: x\nheader: {name: row, pattern: \"^H\", fields: [{name: f, length: 1}]}\nbody:\n  - {name: row, length: 1, fields: [{name: f, length: 1}]}\n", "duplicate record kind row"},
		{"two documents", "name: x\nbody:\n  - {name: a, length: 1, fields: [{name: f, length: 1}]}\n---\nname: y\n", "multiple YAML documents"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestRecord_LineLength(t *testing.T) {
	s, err := Parse([]byte(`
name: spacing
body:
  - name: blank
    length: 0
    fields: [{name: f, length: 1}]
  - name: line
    pattern: "^L"
    fields: [{name: f, length: 1}]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	reg, err := s.Registry()
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	body := reg.Body()
	if got := body[0].Length(); got != 0 {
		t.Errorf("blank length = %d, want 0", got)
	}
	if got := body[1].Length(); got != core.NoLength {
		t.Errorf("line length = %d, want NoLength", got)
	}
}

func TestParse_ConfigurationErrorIsTyped(t *testing.T) {
	_, err := Parse([]byte("name: x\n"))
	var ce *core.ConfigurationError
	if !errors.As(err, &ce) {
		t.Errorf("error = %v, want ConfigurationError", err)
	}
}

func TestParseLineBreak(t *testing.T) {
	tests := map[string]string{
		"":     "",
		"lf":   "\n",
		"CRLF": "\r\n",
		`\r\n`: "\r\n",
		"cr":   "\r",
		"||":   "||",
		"\r\n": "\r\n",
	}
	for in, want := range tests {
		got, err := ParseLineBreak(in)
		if err != nil || got != want {
			t.Errorf("ParseLineBreak(%q) = %q, %v, want %q", in, got, err, want)
		}
	}
	if _, err := ParseLineBreak("  "); !errors.Is(err, core.ErrInvalidLineBreak) {
		t.Errorf("ParseLineBreak(spaces) error = %v, want ErrInvalidLineBreak", err)
	}
}

func TestCatalog_LoadDirAndResolve(t *testing.T) {
	dir := t.TempDir()
	doc := "name: custom\nbody:\n  - {name: row, length: 4, fields: [{name: v, length: 4}]}\n"
	path := filepath.Join(dir, "custom.yml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewCatalog()
	if err := c.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if diff := cmp.Diff([]string{"custom"}, c.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}

	if s, err := c.Resolve("custom"); err != nil || s.Name != "custom" {
		t.Errorf("Resolve(custom) = %v, %v", s, err)
	}
	if s, err := NewCatalog().Resolve(path); err != nil || s.Name != "custom" {
		t.Errorf("Resolve(path) = %v, %v", s, err)
	}
	if _, err := c.Resolve("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve(nope) error = %v, want ErrNotFound", err)
	}
}

func pad(s string, n int) string {
	return s + strings.Repeat(" ", n-len(s))
}

func TestSummary(t *testing.T) {
	c, err := Builtin()
	if err != nil {
		t.Fatal(err)
	}
	s, _ := c.Get("payments")

	got := s.Summary()
	want := Summary{
		Name:        "payments",
		Description: s.Description,
		Encoding:    "ISO-8859-1",
		Header:      "batch_header",
		Footer:      "batch_trailer",
		Body:        []string{"payment", "reversal"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
}
