package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Tiliavir/rally-results/internal/timecalc"
)

//go:embed templates/*.html
var templateFS embed.FS

const dateLayout = "2 Jan 2006"

var templateFuncs = template.FuncMap{
	"formatSeconds": timecalc.FormatSeconds,
	"formatGap":     timecalc.FormatGap,
	"formatDate":    func(t time.Time) string { return t.Format(dateLayout) },
	"ago":           humanize.Time,
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}

// render executes a template fully before writing, so a template failure
// still produces a clean 500.
func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.Error("render template", "template", name, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorPage struct {
	Title   string
	Message string
}

func (h *Handler) renderError(w http.ResponseWriter, status int, message string) {
	h.render(w, status, "error", errorPage{Title: http.StatusText(status), Message: message})
}
