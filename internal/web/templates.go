package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/popis/internal/inventory"
	"github.com/erazemk/popis/internal/model"
	webembed "github.com/erazemk/popis/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

var conditionNames = map[model.ConditionKind]string{
	model.ConditionRefurbished: "Refurbished",
	model.ConditionBrandNew:    "Brand New",
	model.ConditionScrap:       "Scrap",
	model.ConditionDefective:   "Defective",
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"statusClass": func(status model.Status) string {
			switch status {
			case model.StatusAvailable, model.StatusReserved, model.StatusUsed, model.StatusExcess, model.StatusNew:
				return "status-" + strings.ToLower(string(status))
			default:
				return "status-unknown"
			}
		},
		"conditionName": func(kind model.ConditionKind) string {
			if name, ok := conditionNames[kind]; ok {
				return name
			}
			return string(kind)
		},
		"noticeClass": func(level inventory.NoticeLevel) string {
			return "notice-" + string(level)
		},
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"index.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	Notices []inventory.Notice
}
