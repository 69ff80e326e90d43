// Package server exposes timeline analysis over HTTP: a JSON API and HTML
// pages for stored analyses.
package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/TobiSchelling/histline/internal/database"
	"github.com/TobiSchelling/histline/internal/logging"
	"github.com/TobiSchelling/histline/internal/report"
	"github.com/TobiSchelling/histline/internal/timeline"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

const serviceName = "histline"

// Error codes carried in the error_code field of failed API responses.
const (
	CodeMissingText    = "MISSING_TEXT"
	CodeEmptyText      = "EMPTY_TEXT"
	CodeInvalidOptions = "INVALID_OPTIONS"
	CodeTimelineError  = "TIMELINE_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeInternal       = "INTERNAL_ERROR"
)

// Analyzer runs a timeline analysis.
type Analyzer interface {
	Analyze(text string, opts timeline.Options) (*timeline.Result, error)
}

// Options configures a Server.
type Options struct {
	Version string
	// Timeline is the base for per-request options.
	Timeline timeline.Options
}

// Server is the HTTP server for timeline analysis.
type Server struct {
	db       *database.DB
	analyzer Analyzer
	opts     Options
	logger   *zap.SugaredLogger
	pages    map[string]*template.Template
	mux      *http.ServeMux
	now      func() time.Time
}

// New creates a new Server.
func New(db *database.DB, analyzer Analyzer, opts Options, logger *zap.SugaredLogger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	funcMap := template.FuncMap{
		"markdown":   renderMarkdown,
		"formatYear": report.FormatYear,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"derefInt": func(v *int) int {
			if v == nil {
				return 0
			}
			return *v
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, errors.Wrap(err, "parsing base template")
	}

	// Each page gets its own clone so its "title" and "content" blocks
	// don't collide.
	pageNames := []string{"index.html", "analysis.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, errors.Wrapf(err, "cloning base for %s", name)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, errors.Wrapf(err, "parsing template %s", name)
		}
		pages[name] = clone
	}

	s := &Server{
		db:       db,
		analyzer: analyzer,
		opts:     opts,
		logger:   logger,
		pages:    pages,
		mux:      http.NewServeMux(),
		now:      time.Now,
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/analyze/timeline", s.handleAnalyzeTimeline)
	s.mux.HandleFunc("GET /api/analyses", s.handleListAnalyses)
	s.mux.HandleFunc("GET /api/analyses/{id}", s.handleGetAnalysis)
	s.mux.HandleFunc("/api/", s.handleAPINotFound)

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /analysis/{id}", s.handleAnalysis)
}

// --- JSON API ---

type envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Timestamp string `json:"timestamp"`
}

type analyzeRequest struct {
	Text    *string         `json:"text"`
	Options json.RawMessage `json:"options,omitempty"`
	Save    bool            `json:"save,omitempty"`
}

type analyzeResponse struct {
	*timeline.Result
	AnalysisID string `json:"analysis_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   serviceName,
		"version":   s.opts.Version,
		"timestamp": s.timestamp(),
	})
}

func (s *Server) handleAnalyzeTimeline(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == nil {
		s.writeError(w, http.StatusBadRequest, CodeMissingText, "request body must contain text", nil)
		return
	}
	if strings.TrimSpace(*req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, CodeEmptyText, "text must not be empty", nil)
		return
	}

	opts := s.opts.Timeline
	if len(req.Options) > 0 {
		if err := json.Unmarshal(req.Options, &opts); err != nil {
			s.writeError(w, http.StatusBadRequest, CodeInvalidOptions, "options could not be decoded", err)
			return
		}
	}

	start := s.now()
	result, err := s.analyzer.Analyze(*req.Text, opts)
	if err != nil {
		if errors.Is(err, timeline.ErrConfiguration) {
			s.writeError(w, http.StatusBadRequest, CodeInvalidOptions, "invalid analysis options", err)
			return
		}
		s.logger.Warnw("Timeline analysis failed", logging.FieldError, err)
		s.writeError(w, http.StatusInternalServerError, CodeTimelineError, "timeline analysis failed", err)
		return
	}
	s.logger.Infow("Timeline analysis complete",
		"runes", len([]rune(*req.Text)),
		"events", result.Summary.EventsCount,
		logging.FieldDurationMS, s.now().Sub(start).Milliseconds(),
	)

	resp := analyzeResponse{Result: result}
	if req.Save {
		normalized, _ := opts.Normalize()
		id, err := s.db.SaveAnalysis(nil, normalized, result)
		if err != nil {
			s.logger.Warnw("Saving analysis failed", logging.FieldError, err)
			s.writeError(w, http.StatusInternalServerError, CodeInternal, "saving analysis failed", err)
			return
		}
		resp.AnalysisID = id
	}

	s.writeJSON(w, http.StatusOK, envelope{
		Success:   true,
		Message:   "timeline analysis complete",
		Data:      resp,
		Timestamp: s.timestamp(),
	})
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, CodeInvalidOptions, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	items, err := s.db.ListAnalyses(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, CodeInternal, "listing analyses failed", err)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, a := range items {
		out = append(out, map[string]any{
			"id":                    a.ID,
			"document_id":           a.DocumentID,
			"document_title":        a.DocumentTitle,
			"group_by":              a.GroupBy,
			"time_expression_count": a.TimeExpressionCount,
			"event_count":           a.EventCount,
			"period_count":          a.PeriodCount,
			"created_at":            a.CreatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, envelope{
		Success:   true,
		Message:   fmt.Sprintf("%d analyses", len(out)),
		Data:      out,
		Timestamp: s.timestamp(),
	})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.db.GetAnalysis(r.PathValue("id"))
	if errors.Is(err, database.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, CodeNotFound, "analysis not found", nil)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, CodeInternal, "loading analysis failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "analysis loaded",
		Data: map[string]any{
			"id":          a.ID,
			"document_id": a.DocumentID,
			"options":     a.Options,
			"result":      a.Result,
			"created_at":  a.CreatedAt,
		},
		Timestamp: s.timestamp(),
	})
}

func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, CodeNotFound, "no such endpoint", nil)
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string, err error) {
	e := envelope{
		Message:   message,
		ErrorCode: code,
		Timestamp: s.timestamp(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	s.writeJSON(w, status, e)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warnw("Encoding response failed", logging.FieldError, err)
	}
}

func (s *Server) timestamp() string {
	return s.now().Format(time.RFC3339)
}

// --- HTML pages ---

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.db.ListAnalyses(100)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	stats, _ := s.db.GetStats()

	s.render(w, "index.html", map[string]any{
		"Analyses": analyses,
		"Stats":    stats,
	})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	a, err := s.db.GetAnalysis(id)
	if errors.Is(err, database.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	title := "Analysis " + id
	if a.DocumentID != nil {
		if doc, err := s.db.GetDocument(*a.DocumentID); err == nil {
			title = doc.Title
		}
	}

	s.render(w, "analysis.html", map[string]any{
		"Analysis": a,
		"Title":    title,
		"Report":   report.Markdown(title, a.Result),
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Warnw("Template not found", "template", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		s.logger.Warnw("Rendering template failed", "template", name, logging.FieldError, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(srv *Server, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	srv.logger.Infow("Server listening", "addr", "http://"+addr)
	return http.ListenAndServe(addr, srv.Handler())
}
