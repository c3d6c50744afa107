// Package render turns prompt markdown into HTML for export and chat.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"log/slog"

	"github.com/leonid-shevtsov/telegold"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/user/promptengine/internal/types"
)

var (
	htmlMarkdown     = goldmark.New(goldmark.WithExtensions(extension.GFM))
	telegramMarkdown = goldmark.New(goldmark.WithRenderer(telegold.NewRenderer()))
)

// Markdown converts md to HTML. Raw HTML in md is escaped.
func Markdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := htmlMarkdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

// HTML renders the prompt's flattened text.
func HTML(p types.Prompt) (string, error) {
	return Markdown(p.GeneratedPromptText)
}

// Telegram converts md to the HTML subset Telegram accepts. On failure the
// input is returned unchanged.
func Telegram(md string) string {
	var buf bytes.Buffer
	if err := telegramMarkdown.Convert([]byte(md), &buf); err != nil {
		slog.Warn("telegram markdown conversion failed", "error", err)
		return md
	}
	return buf.String()
}

type pageEntry struct {
	Prompt types.Prompt
	Body   template.HTML
}

type pageData struct {
	Theme   types.Theme
	Entries []pageEntry
}

// Page writes a standalone HTML document listing prompts in the given
// order, styled for theme.
func Page(w io.Writer, prompts []types.Prompt, theme types.Theme) error {
	data := pageData{Theme: theme, Entries: make([]pageEntry, 0, len(prompts))}
	for _, p := range prompts {
		body, err := HTML(p)
		if err != nil {
			return err
		}
		// goldmark escapes raw HTML, so its output is safe to embed.
		data.Entries = append(data.Entries, pageEntry{Prompt: p, Body: template.HTML(body)})
	}

	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"ratingLabel": ratingLabel,
}).Parse(`<!DOCTYPE html>
<html lang="en" data-theme="{{.Theme}}">
<head>
<meta charset="UTF-8">
<title>Prompt history</title>
<style>
  body { font-family: 'Segoe UI', Arial, sans-serif; line-height: 1.6; max-width: 860px; margin: 0 auto; padding: 32px 20px; }
  [data-theme="dark"] body { background: #111827; color: #e5e7eb; }
  [data-theme="light"] body { background: #ffffff; color: #1f2937; }
  article { border: 1px solid #6b7280; border-radius: 8px; padding: 16px 20px; margin-bottom: 24px; }
  .meta { font-size: 0.85em; opacity: 0.75; }
  code { padding: 2px 6px; border-radius: 3px; background: rgba(127, 127, 127, 0.2); }
</style>
</head>
<body>
<h1>Prompt history</h1>
{{- range .Entries}}
<article id="{{.Prompt.ID}}">
  <h2>{{.Prompt.OriginalIdea}}</h2>
  <p class="meta">{{.Prompt.CreatedAt.Format "2006-01-02 15:04"}} &middot; {{ratingLabel .Prompt.Rating}}
  {{- range .Prompt.ContextFiles}} &middot; {{.Name}}{{end}}</p>
  {{.Body}}
</article>
{{- else}}
<p>No prompts saved.</p>
{{- end}}
</body>
</html>
`))

func ratingLabel(r types.Rating) string {
	switch r {
	case types.RatingUp:
		return "👍"
	case types.RatingDown:
		return "👎"
	}
	return "unrated"
}
