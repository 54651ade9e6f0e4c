// Package web serves the rally results site, its JSON views and metrics.
package web

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Tiliavir/rally-results/internal/chart"
	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/protocol"
	"github.com/Tiliavir/rally-results/internal/results"
	"github.com/Tiliavir/rally-results/internal/storage"
	"github.com/Tiliavir/rally-results/internal/timecalc"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler holds the dependencies of every route.
type Handler struct {
	store   storage.Store
	agg     *results.Aggregator
	log     *slog.Logger
	metrics *Metrics
	tmpl    *template.Template
}

// NewHandler returns the site's root handler: a gorilla/mux router wrapped
// in request logging. metrics may be shared with other components.
func NewHandler(store storage.Store, log *slog.Logger, metrics *Metrics) (http.Handler, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	h := &Handler{
		store:   store,
		agg:     results.NewAggregator(store),
		log:     log,
		metrics: metrics,
		tmpl:    tmpl,
	}
	return loggingMiddleware(log)(h.router()), nil
}

func (h *Handler) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.metrics.Middleware)

	r.HandleFunc("/", h.index).Methods(http.MethodGet)
	r.HandleFunc("/rally/{id:[0-9]+}", h.rally).Methods(http.MethodGet)
	r.HandleFunc("/rally/{id:[0-9]+}/protocol.xlsx", h.protocol).Methods(http.MethodGet)
	r.HandleFunc("/plot/{id:[0-9]+}", h.plot).Methods(http.MethodGet)

	for _, f := range []formSpec{driverForm, stageForm, carForm, rallyForm, timeForm} {
		r.HandleFunc(f.path, h.showForm(f)).Methods(http.MethodGet)
		r.HandleFunc(f.path, h.submitForm(f)).Methods(http.MethodPost)
	}

	r.HandleFunc("/api/rallies/{id:[0-9]+}/results", h.apiResults).Methods(http.MethodGet)
	r.HandleFunc("/api/rallies/{id:[0-9]+}/series", h.apiSeries).Methods(http.MethodGet)

	r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	return r
}

// readStatus maps an error from a read path to an HTTP status.
func readStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, timecalc.ErrFormat):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeStatus maps an error from a create to an HTTP status.
func writeStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// pathID extracts the numeric {id} variable. The route regexp already
// guarantees digits; overflow is treated as not found.
func pathID(r *http.Request) (int64, bool) {
	n, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return n, err == nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		msg = "internal error"
	}
	h.renderError(w, status, msg)
}

type indexPage struct {
	Title   string
	Rallies []model.Rally
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	rallies, err := h.store.ListRallies(r.Context())
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	h.render(w, http.StatusOK, "index", indexPage{Title: "Rallies", Rallies: rallies})
}

type rallyPage struct {
	Title   string
	Results results.RallyResults
}

func (h *Handler) rally(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.renderError(w, http.StatusNotFound, "rally not found")
		return
	}
	res, err := h.agg.RallyResults(r.Context(), id)
	if err != nil {
		h.fail(w, r, readStatus(err), err)
		return
	}
	h.render(w, http.StatusOK, "rally", rallyPage{Title: res.Rally.Name, Results: res})
}

func (h *Handler) plot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.renderError(w, http.StatusNotFound, "rally not found")
		return
	}
	rally, err := h.store.GetRally(r.Context(), id)
	if err != nil {
		h.fail(w, r, readStatus(err), err)
		return
	}
	series, err := h.agg.DriverTimeSeries(r.Context(), id)
	if err != nil {
		h.fail(w, r, readStatus(err), err)
		return
	}

	var buf bytes.Buffer
	if err := chart.Render(&buf, rally.Name+": times by driver", series); err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *Handler) protocol(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.renderError(w, http.StatusNotFound, "rally not found")
		return
	}
	res, err := h.agg.RallyResults(r.Context(), id)
	if err != nil {
		h.fail(w, r, readStatus(err), err)
		return
	}
	f, err := protocol.Build(res)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=rally-%d-protocol.xlsx", id))
	_, _ = buf.WriteTo(w)
}

func (h *Handler) showForm(f formSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := f.page(r.Context(), h.store, nil)
		if err != nil {
			h.fail(w, r, http.StatusInternalServerError, err)
			return
		}
		h.render(w, http.StatusOK, "form", page)
	}
}

// submitForm creates the record and redirects to the index. On failure the
// form is shown again with the submitted values and the error.
func (h *Handler) submitForm(f formSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			h.renderError(w, http.StatusBadRequest, "malformed form submission")
			return
		}

		newID, err := f.create(r.Context(), h.store, r.PostForm)
		if err != nil {
			status := writeStatus(err)
			if status == http.StatusInternalServerError {
				h.fail(w, r, status, err)
				return
			}
			page, pageErr := f.page(r.Context(), h.store, r.PostForm)
			if pageErr != nil {
				h.fail(w, r, http.StatusInternalServerError, pageErr)
				return
			}
			page.Error = err.Error()
			h.render(w, status, "form", page)
			return
		}

		h.metrics.Created(f.kind)
		h.log.InfoContext(r.Context(), "record created", "kind", f.kind, "id", newID)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
