// Package templates holds the HTML components of the web UI.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// IndexData drives the upload page.
type IndexData struct {
	DefaultThreshold     int
	MinThreshold         int
	MaxThreshold         int
	MaxFileSizeMB        int64
	CorrectOnlyWhenWrong bool
}

const styles = `body{font-family:system-ui,sans-serif;margin:2rem auto;max-width:56rem;color:#1f2933}
section{border:1px solid #d9e2ec;border-radius:.5rem;padding:1.25rem;margin-bottom:1.5rem}
label{display:block;margin:.5rem 0 .25rem;font-weight:600}
button{margin-top:1rem;padding:.5rem 1rem}
.alert{border-left:4px solid #cf1124;background:#ffe3e3;padding:.75rem 1rem}
.hint{color:#627d98;font-size:.875rem}`

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			"<!doctype html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>%s</title><style>%s</style></head><body>",
			templ.EscapeString(title), styles); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}

// Index is the upload page with the Clear & Match and Compare forms.
func Index(d IndexData) templ.Component {
	return Layout("Table configuration", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<h1>Table configuration</h1>`); err != nil {
			return err
		}
		if err := clearForm(d).Render(ctx, w); err != nil {
			return err
		}
		return compareForm(d).Render(ctx, w)
	}))
}

func fileInput(name, label, accept string) string {
	return fmt.Sprintf(`<label for="%[1]s">%[2]s</label><input id="%[1]s" name="%[1]s" type="file" accept="%[3]s" required>`,
		templ.EscapeString(name), templ.EscapeString(label), templ.EscapeString(accept))
}

func clearForm(d IndexData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<section><h2>Clear &amp; Match</h2>
<p class="hint">Identifier list (UTF-8 CSV) and the four tier exports (UTF-16). Up to %d MB per file. Skipped tiers are listed on the Warnings sheet.</p>
<form method="post" action="/api/clear" enctype="multipart/form-data">%s%s%s%s%s
<button type="submit">Download clear_result.xlsx</button></form></section>`,
			d.MaxFileSizeMB,
			fileInput("ids", "Table IDs", ".csv,text/csv"),
			fileInput("large", "Large tier", ".csv,.txt"),
			fileInput("medium", "Medium tier", ".csv,.txt"),
			fileInput("small", "Small tier", ".csv,.txt"),
			fileInput("xsmall", "XSmall tier", ".csv,.txt"),
		)
		return err
	})
}

func compareForm(d IndexData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		checked := ""
		if d.CorrectOnlyWhenWrong {
			checked = " checked"
		}
		_, err := fmt.Fprintf(w, `<section><h2>Compare</h2>
<p class="hint">Reference sheet (A) and submission (B), both .xlsx with TableID, Large, Medium, Small and XSmall columns. Duplicate and unmatched table IDs are listed on the Warnings sheet.</p>
<form method="post" action="/api/compare" enctype="multipart/form-data">%s%s
<label for="threshold">Wrong threshold (per size)</label><input id="threshold" name="threshold" type="number" min="%d" max="%d" value="%d">
<label><input name="correct_only_when_wrong" type="checkbox" value="true"%s> Full Correct only for tiers with wrong entries</label>
<input name="correct_only_when_wrong" type="hidden" value="false">
<button type="submit">Download comparison_result.xlsx</button></form></section>`,
			fileInput("file_a", "Sheet A (reference)", ".xlsx"),
			fileInput("file_b", "Sheet B (submission)", ".xlsx"),
			d.MinThreshold, d.MaxThreshold, d.DefaultThreshold, checked,
		)
		return err
	})
}

// ErrorAlert renders an operator-facing error.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="alert" role="alert"><strong>%s</strong> <span class="hint">(Code: %s)</span><p>%s</p></div>`,
			templ.EscapeString(message), templ.EscapeString(code), templ.EscapeString(action))
		return err
	})
}

// ErrorPage is a full page around ErrorAlert with a link back to the forms.
func ErrorPage(message, action, code string) templ.Component {
	return Layout("Run failed", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ErrorAlert(message, action, code).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `<p><a href="/">Back</a></p>`)
		return err
	}))
}
