package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/JonMunkholm/flr/internal/schema"
	"github.com/a-h/templ"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestErrorAlert_Escapes(t *testing.T) {
	out := render(t, ErrorAlert("bad <line>", "", "FLR001"))

	if !strings.Contains(out, "bad &lt;line&gt;") {
		t.Errorf("message not escaped: %s", out)
	}
	if strings.Contains(out, "alert-action") {
		t.Errorf("empty action rendered: %s", out)
	}
	if !strings.Contains(out, "Code: FLR001") {
		t.Errorf("code missing: %s", out)
	}
}

func TestIndex(t *testing.T) {
	out := render(t, Index([]schema.Summary{
		{Name: "payments", Header: "batch_header", Footer: "batch_trailer", Body: []string{"payment", "reversal"}},
	}))

	for _, want := range []string{"<td title=\"\">payments</td>", "payment, reversal", "UTF-8", "</html>"} {
		if !strings.Contains(out, want) {
			t.Errorf("index missing %q: %s", want, out)
		}
	}
}
