// Package handler contains the HTTP handlers of teamboard: server-rendered
// account pages, the landing page and a small JSON API.
//
// Handlers parse requests, call the service layer and write responses. Page
// handlers answer form validation errors with 200 and a re-rendered form;
// JSON handlers map apperror sentinels to status codes in writeError.
package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/model"
	"github.com/sakif/teamboard/internal/service"
)

// pageData is the single data shape every template receives. Pages use the
// fields they need; the zero value of the rest renders as empty.
type pageData struct {
	User   *model.User
	Values url.Values
	Errors apperror.FieldErrors

	// login
	Next         string
	InvalidLogin bool
	GitHub       bool

	// profile and registration
	Countries []model.Country
	Genders   []model.GenderChoice
	Missing   bool

	// password reset confirm
	ValidLink bool
	Token     string

	// landing page
	Home *service.HomeView

	// error page
	Status     int
	StatusText string
	Message    string
}

// Pages holds one parsed template set per page, each a clone of base.html
// plus the page file, parsed once at startup.
type Pages struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewPages parses templates/base.html and every other templates/*.html of
// fsys. The page name is the file name without extension.
func NewPages(fsys fs.FS, logger *slog.Logger) (*Pages, error) {
	base, err := template.New("base").ParseFS(fsys, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}

	p := &Pages{pages: make(map[string]*template.Template), logger: logger}
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		if name == "base" {
			continue
		}
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(fsys, file); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}
		p.pages[name] = clone
	}
	return p, nil
}

// Render executes page into a buffer first, so a template error still
// produces a clean 500 instead of half a page.
func (p *Pages) Render(w http.ResponseWriter, status int, page string, data pageData) {
	tmpl, ok := p.pages[page]
	if !ok {
		p.logger.Error("unknown page template", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		p.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Error renders the generic error page.
func (p *Pages) Error(w http.ResponseWriter, status int, message string, user *model.User) {
	p.Render(w, status, "error", pageData{
		User:       user,
		Status:     status,
		StatusText: http.StatusText(status),
		Message:    message,
	})
}

// ServerError logs err and renders a 500 page without exposing it.
func (p *Pages) ServerError(w http.ResponseWriter, r *http.Request, err error) {
	p.logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	p.Error(w, http.StatusInternalServerError, "Something went wrong on our side. Please try again later.", nil)
}

// pickValues copies the listed form fields. Anything else in the request,
// including privilege flags, never reaches a template or a service.
func pickValues(form url.Values, fields ...string) url.Values {
	out := make(url.Values, len(fields))
	for _, f := range fields {
		if v, ok := form[f]; ok {
			out[f] = v
		}
	}
	return out
}

// safeNext returns next if it is a local absolute path, otherwise "/".
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}
