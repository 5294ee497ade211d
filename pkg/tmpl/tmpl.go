// Package tmpl provides text template rendering for model prompts.
package tmpl

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// indent prefixes every non-empty line of s with n spaces.
func indent(n int, s string) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}

// bullets renders items as a "- " list, one per line.
func bullets(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(item)
	}
	return sb.String()
}

var funcs = template.FuncMap{
	"join":    strings.Join,
	"trim":    strings.TrimSpace,
	"indent":  indent,
	"bullets": bullets,
}

// Template is a parsed prompt template.
type Template struct {
	t *template.Template
}

// Parse compiles a template. Missing keys are errors at execution time.
func Parse(name, text string) (*Template, error) {
	t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return &Template{t: t}, nil
}

// MustParse is Parse for package-level templates.
func MustParse(name, text string) *Template {
	t, err := Parse(name, text)
	if err != nil {
		panic(err)
	}
	return t
}

// Execute renders the template with data.
func (t *Template) Execute(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", t.t.Name(), err)
	}
	return buf.String(), nil
}

// Render executes a Go template string with the given data.
// Returns an error if the template is invalid or references undefined keys.
//
// Available template functions:
//   - join: Join string slice with separator (e.g., join .Paths ", ")
//   - trim: Trim surrounding whitespace
//   - indent: Indent every non-empty line (e.g., indent 4 .Structure)
//   - bullets: Render a string slice as a "- " list
func Render(text string, data any) (string, error) {
	t, err := Parse("", text)
	if err != nil {
		return "", err
	}
	return t.Execute(data)
}
