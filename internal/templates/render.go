// Package templates handles HTML template rendering for Datastar SSE responses.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"sync"
	"time"
)

//go:embed fragments/*.html pages/*.html
var embedded embed.FS

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs, useful for passing multiple values to nested templates
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	// hectares formats square meters.
	"hectares": func(sqm float64) string {
		return fmt.Sprintf("%.2f ha", sqm/10_000)
	},
	// date shortens an RFC 3339 timestamp for display.
	"date": func(ts string) string {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return ts
		}
		return t.Local().Format("2006-01-02 15:04")
	},
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New creates a renderer from webDir/templates when it exists, falling
// back to the embedded templates.
func New(webDir string) (*Renderer, error) {
	tmpl, err := parse(source(webDir))
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// Embedded creates a renderer from the built-in templates only.
func Embedded() (*Renderer, error) {
	return New("")
}

func source(webDir string) fs.FS {
	if webDir != "" {
		dir := os.DirFS(webDir)
		if _, err := fs.Stat(dir, "templates/fragments"); err == nil {
			sub, err := fs.Sub(dir, "templates")
			if err == nil {
				return sub
			}
		}
	}
	return embedded
}

func parse(fsys fs.FS) (*template.Template, error) {
	tmpl := template.New("").Funcs(funcMap)
	tmpl, err := tmpl.ParseFS(fsys, "fragments/*.html")
	if err != nil {
		return nil, err
	}
	if matches, _ := fs.Glob(fsys, "pages/*.html"); len(matches) > 0 {
		if tmpl, err = tmpl.ParseFS(fsys, "pages/*.html"); err != nil {
			return nil, err
		}
	}
	return tmpl, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(buf, name, data)
}

// Has reports whether a template is defined.
func (r *Renderer) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates.Lookup(name) != nil
}

// Reload re-reads templates (useful for dev hot-reload).
func (r *Renderer) Reload(webDir string) error {
	tmpl, err := parse(source(webDir))
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}
