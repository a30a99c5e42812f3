package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/JonMunkholm/flr/internal/codec"
	"github.com/JonMunkholm/flr/internal/core"
	"github.com/google/go-cmp/cmp"
)

type sliceReader []string

func (r *sliceReader) ReadLine() (string, error) {
	if len(*r) == 0 {
		return "", io.EOF
	}
	line := (*r)[0]
	*r = (*r)[1:]
	return line, nil
}

// newFile has header "H" + 3-char name (unique) and body "I" + 3-digit qty.
func newFile(t *testing.T, opts ...core.Option) *core.File {
	t.Helper()
	head := codec.MustLayout(codec.LayoutSpec{
		Name:       "head",
		Fields:     []codec.FieldSpec{{Name: "tag", Length: 1}, {Name: "name", Length: 3}},
		UniqueKeys: []string{"name"},
	})
	item := codec.MustLayout(codec.LayoutSpec{
		Name:       "item",
		Fields:     []codec.FieldSpec{{Name: "tag", Length: 1}, {Name: "qty", Length: 3, Type: codec.FieldInteger, Pad: '0'}},
		UniqueKeys: []string{"qty"},
	})
	reg, err := core.NewRegistry(core.MustRecordType(item, "^I", 4))
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.SetHeader(core.MustRecordType(head, "^H", core.NoLength)); err != nil {
		t.Fatal(err)
	}
	f, err := core.NewFile(reg, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func read(t *testing.T, f *core.File, lines ...string) error {
	t.Helper()
	r := sliceReader(lines)
	return f.Read(context.Background(), &r)
}

func TestBuild(t *testing.T) {
	f := newFile(t)
	if err := read(t, f, "HABC", "I001", "I002", "HDEF"); err != nil {
		t.Fatalf("Read: %v", err)
	}

	got := Build("test", f)
	want := &Document{
		Schema:    "test",
		LineBreak: "\n",
		Records:   4,
		Stacks: []Stack{
			{
				Header: &Record{Kind: "head", Fields: map[string]any{"tag": "H", "name": "ABC"}},
				Body: []Record{
					{Kind: "item", Fields: map[string]any{"tag": "I", "qty": int64(1)}},
					{Kind: "item", Fields: map[string]any{"tag": "I", "qty": int64(2)}},
				},
			},
			{
				Header: &Record{Kind: "head", Fields: map[string]any{"tag": "H", "name": "DEF"}},
				Body:   []Record{},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_Warnings(t *testing.T) {
	f := newFile(t, core.WithIgnoreUniqueConstraint(true), core.WithLogger(discardLogger()))
	if err := read(t, f, "HABC", "I001", "I001"); err != nil {
		t.Fatalf("Read: %v", err)
	}

	doc := Build("test", f)
	if len(doc.Warnings) != 1 {
		t.Fatalf("warnings = %v, want 1", doc.Warnings)
	}
	w := doc.Warnings[0]
	if w.Code != "FLR004" || w.Line != 3 || w.Stack != 1 {
		t.Errorf("warning = %+v, want FLR004 at line 3 stack 1", w)
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		f := newFile(t)
		err := read(t, f, "HABC", "I001", "HDEF", "I001")
		got := Validate("test", f, err)
		want := &Validation{Schema: "test", Valid: true, Stacks: 2, Records: 4}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Validate mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("read error", func(t *testing.T) {
		f := newFile(t)
		err := read(t, f, "HABC", "X")
		got := Validate("test", f, err)
		if got.Valid || len(got.Errors) != 1 {
			t.Fatalf("Validate = %+v, want one error", got)
		}
		if e := got.Errors[0]; e.Code != "FLR001" || e.Line != 2 || e.Stack != 1 {
			t.Errorf("error = %+v, want FLR001 at line 2 stack 1", e)
		}
	})

	t.Run("duplicate header", func(t *testing.T) {
		f := newFile(t)
		err := read(t, f, "HABC", "I001", "HABC")
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		got := Validate("test", f, err)
		if got.Valid || len(got.Errors) != 1 || got.Errors[0].Code != "FLR004" {
			t.Errorf("Validate = %+v, want FLR004 error", got)
		}
	})
}

func TestPosition(t *testing.T) {
	tests := []struct {
		name              string
		err               error
		wantLine, wantStk int
	}{
		{"no match", &core.NoMatchingTypeError{Line: 5, Stack: 2}, 5, 2},
		{"ambiguous", &core.AmbiguousMatchError{Line: 3, Stack: 1}, 3, 1},
		{"decode wrapped", fmt.Errorf("read: %w", &core.DecodeError{Line: 7, Stack: 4}), 7, 4},
		{"position", &core.PositionError{Line: 9, Stack: 3, Err: io.ErrUnexpectedEOF}, 9, 3},
		{"plain", io.EOF, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, stack := Position(tt.err)
			if line != tt.wantLine || stack != tt.wantStk {
				t.Errorf("Position() = %d, %d, want %d, %d", line, stack, tt.wantLine, tt.wantStk)
			}
		})
	}
}
