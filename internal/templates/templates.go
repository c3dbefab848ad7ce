// Package templates provides HTML template rendering for the quotes app.
package templates

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"github.com/LucaVano/app-oferte-10-05/internal/models"
	"github.com/LucaVano/app-oferte-10-05/internal/pricing"
)

// Engine is an HTML template rendering engine.
type Engine struct {
	templates map[string]*template.Template
	baseFS    fs.FS
}

// templateFuncs returns the common template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"plus": func(a, b int) int {
			return a + b
		},
		"minus": func(a, b int) int {
			return a - b
		},
		"formatPrice": pricing.FormatPrice,
		"singleTotal": func(p *models.SingleProduct) string {
			return pricing.Format(pricing.SingleTotal(p))
		},
		"rowTotal": func(r models.ProductRow) string {
			return pricing.Format(pricing.RowTotal(r))
		},
		"tabTotal": func(t models.Tab) string {
			return pricing.Format(pricing.TabTotal(t))
		},
		"recordTotal": func(r *models.Record) string {
			return pricing.Format(pricing.RecordTotal(r))
		},
		"statusLabel": func(s models.Status) string {
			return s.Label()
		},
		"accepted": func(s models.Status) bool {
			return models.NormalizeStatus(s) == models.StatusAccepted
		},
		// toJSON hands a value to page scripts
		"toJSON": func(v any) (template.JS, error) {
			b, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return template.JS(b), nil
		},
	}
}

// New creates a new template engine using the provided filesystem.
// It expects a base.html template and other templates that extend it.
func New(fsys fs.FS) (*Engine, error) {
	engine := &Engine{
		templates: make(map[string]*template.Template),
		baseFS:    fsys,
	}

	baseContent, err := fs.ReadFile(fsys, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("failed to read base template: %w", err)
	}

	entries, err := fs.ReadDir(fsys, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == "base.html" || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".html")
		pageContent, err := fs.ReadFile(fsys, "templates/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", entry.Name(), err)
		}

		// Combine base + page template
		combined := string(baseContent) + "\n" + string(pageContent)
		tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(combined)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", entry.Name(), err)
		}

		engine.templates[name] = tmpl
	}

	return engine, nil
}

// Render renders the named template with the given data.
func (e *Engine) Render(w io.Writer, name string, data any) error {
	tmpl, ok := e.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	return tmpl.Execute(w, data)
}

// Has reports whether a page template was loaded.
func (e *Engine) Has(name string) bool {
	_, ok := e.templates[name]
	return ok
}

// PageData provides common data for page templates.
type PageData struct {
	Title     string
	ActiveNav string
	User      *User
	Flash     *Flash
	Data      any
}

// User represents a logged-in user for template rendering.
type User struct {
	Username string
}

// Flash represents a flash message to display.
type Flash struct {
	Type    string // "success", "error"
	Message string
}
