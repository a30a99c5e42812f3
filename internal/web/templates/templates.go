// Package templates holds the HTML components served by the web package.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/flr/internal/schema"
	"github.com/a-h/templ"
)

// ErrorAlert renders an error fragment for HTMX and browser clients.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert alert-error" role="alert">`)
		fmt.Fprintf(&b, `<p class="alert-message">%s</p>`, templ.EscapeString(message))
		if action != "" {
			fmt.Fprintf(&b, `<p class="alert-action">%s</p>`, templ.EscapeString(action))
		}
		fmt.Fprintf(&b, `<p class="alert-code">Code: %s</p>`, templ.EscapeString(code))
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// SchemaTable lists schemas with their record kinds.
func SchemaTable(schemas []schema.Summary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<table class="schemas"><thead><tr><th>Schema</th><th>Header</th><th>Body</th><th>Footer</th><th>Encoding</th></tr></thead><tbody>`)
		for _, s := range schemas {
			encoding := s.Encoding
			if encoding == "" {
				encoding = "UTF-8"
			}
			fmt.Fprintf(&b, `<tr><td title="%s">%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				templ.EscapeString(s.Description),
				templ.EscapeString(s.Name),
				templ.EscapeString(s.Header),
				templ.EscapeString(strings.Join(s.Body, ", ")),
				templ.EscapeString(s.Footer),
				templ.EscapeString(encoding),
			)
		}
		b.WriteString(`</tbody></table>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// Index is the landing page.
func Index(schemas []schema.Summary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>FLR</title></head><body><h1>Fixed-length record schemas</h1>`); err != nil {
			return err
		}
		if err := SchemaTable(schemas).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `<p>POST a file to <code>/api/parse/{schema}</code> or <code>/api/validate/{schema}</code>.</p></body></html>`)
		return err
	})
}
