package cli

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/spacegraph/pkg/buildinfo"
	"github.com/matzehuels/spacegraph/pkg/document"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	sgio "github.com/matzehuels/spacegraph/pkg/io"
	"github.com/matzehuels/spacegraph/pkg/observability"
	"github.com/matzehuels/spacegraph/pkg/pipeline"
	"github.com/matzehuels/spacegraph/pkg/store"
)

// server is the read-only HTTP API over the graph store.
type server struct {
	store  store.Store
	runner *pipeline.Runner
	logger *log.Logger
}

// contentTypes maps export formats to response types.
var contentTypes = map[string]string{
	pipeline.FormatTSV:   "text/tab-separated-values; charset=utf-8",
	pipeline.FormatLinks: "text/csv; charset=utf-8",
	pipeline.FormatDOT:   "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatSVG:   "image/svg+xml",
	pipeline.FormatPNG:   "image/png",
	pipeline.FormatPDF:   "application/pdf",
}

// routes builds the router. metrics may be nil.
func (s *server) routes(metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.health)
	r.Route("/graphs", func(r chi.Router) {
		r.Get("/", s.listGraphs)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.getGraph)
			r.Get("/summary", s.graphSummary)
			r.Get("/export/{format}", s.exportGraph)
		})
	})
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	return r
}

// observe reports every request to the HTTP hooks under its route pattern.
func (s *server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, route, status, time.Since(start))
		s.logger.Debug("request", "method", r.Method, "route", route, "status", status, "duration", time.Since(start))
	})
}

// fail writes err as a JSON error with a status derived from its code.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	err = sgerrors.FromDomain(err, "%s %s", r.Method, r.URL.Path)
	code := sgerrors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case sgerrors.ErrCodeNotFound, sgerrors.ErrCodeFileNotFound, sgerrors.ErrCodeMapNotFound:
		status = http.StatusNotFound
	case sgerrors.ErrCodeInvalidInput, sgerrors.ErrCodeInvalidOptions, sgerrors.ErrCodeInvalidFormat,
		sgerrors.ErrCodeInvalidPath, sgerrors.ErrCodeInvalidName:
		status = http.StatusBadRequest
	case sgerrors.ErrCodeNotAGraph, sgerrors.ErrCodeMalformedGraph:
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		observability.HTTP().OnError(r.Context(), r.Method, route, err)
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = writeJSON(w, map[string]string{"code": string(code), "error": err.Error()})
}

func (s *server) ok(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = writeJSON(w, v)
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	s.ok(w, map[string]any{"status": "ok", "build": buildinfo.Get()})
}

func (s *server) listGraphs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	s.ok(w, entries)
}

func (s *server) getGraph(w http.ResponseWriter, r *http.Request) {
	data, e, err := s.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("ETag", `"`+e.Hash+`"`)
	if e.Compressed {
		w.Header().Set("Content-Encoding", "zstd")
	}
	_, _ = w.Write(data)
}

func (s *server) graphSummary(w http.ResponseWriter, r *http.Request) {
	data, _, err := s.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, _, err := sgio.ReadGraph(bytes.NewReader(data))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, summarise(d))
}

// exportGraph serves one artifact. The query takes family, map, column
// and select like the export command.
func (s *server) exportGraph(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	format := chi.URLParam(r, "format")
	q := r.URL.Query()

	opts := pipeline.Options{
		Input:   name,
		Map:     q.Get("map"),
		Formats: []string{format},
		Column:  q.Get("column"),
		Target:  document.FamilyAxial,
	}
	if f := q.Get("family"); f != "" {
		fam, err := parseFamily(f)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		opts.Target = fam
	}
	if sel := q.Get("select"); sel != "" {
		keys, err := parseKeys(sel)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		opts.Selection = keys
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		s.fail(w, r, err)
		return
	}

	data, _, err := s.store.Get(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.runner.ExportBytes(r.Context(), data, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Content-Disposition", `inline; filename="`+strings.ReplaceAll(name, `"`, "")+artifactExt[format]+`"`)
	_, _ = w.Write(res.Artifacts[format])
}
