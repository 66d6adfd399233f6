// Package server exposes offer generation, PDF export and the strategy
// reference table over HTTP, and serves the web form.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joelkehle/offerdraft/internal/ledger"
	"github.com/joelkehle/offerdraft/internal/offer"
	"github.com/joelkehle/offerdraft/internal/render"
	"github.com/joelkehle/offerdraft/internal/strategy"
)

const maxBodyBytes = 1 << 20

// Runner is the generation pipeline as seen by the HTTP layer.
type Runner interface {
	Run(ctx context.Context, raw map[string]any) (offer.PipelineResult, error)
}

type Renderer interface {
	Render(ctx context.Context, b offer.OfferBundle, target render.Target) (render.Output, error)
}

type StatsSource interface {
	Summary(ctx context.Context, since time.Time) (ledger.Summary, error)
}

type Server struct {
	runner   Runner
	renderer Renderer
	stats    StatsSource
	limiter  *RateLimiter
	webDir   string
	logger   *zap.Logger
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStats enables GET /api/stats.
func WithStats(src StatsSource) Option {
	return func(s *Server) { s.stats = src }
}

// WithRateLimiter limits the generation and export routes per client and route.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) { s.limiter = rl }
}

func WithWebDir(dir string) Option {
	return func(s *Server) { s.webDir = dir }
}

func New(runner Runner, renderer Renderer, opts ...Option) http.Handler {
	s := &Server{
		runner:   runner,
		renderer: renderer,
		webDir:   "web",
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/strategies", s.handleStrategies)
	mux.HandleFunc("/api/generate", rateLimit(s.limiter, "generate", s.handleGenerate))
	mux.HandleFunc("/api/export-pdf", rateLimit(s.limiter, "export", s.handleExportPDF))
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{"error": msg, "code": code})
}

func writeOfferError(w http.ResponseWriter, err error) {
	writeError(w, offer.HTTPStatus(err), offer.ErrorCode(err), offer.UserMessage(err))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	if r.URL.Path == "/" || r.URL.Path == "/index.html" {
		http.ServeFile(w, r, filepath.Join(s.webDir, "index.html"))
		return
	}
	rel := strings.TrimPrefix(filepath.Clean(r.URL.Path), "/")
	if _, err := fs.Stat(os.DirFS(s.webDir), rel); err == nil {
		http.ServeFile(w, r, filepath.Join(s.webDir, rel))
		return
	}
	http.NotFound(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"strategies": strategy.All()})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var form map[string]any
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, offer.CodeValidation, "request body must be a JSON object")
		return
	}

	format := r.URL.Query().Get("format")
	if v, ok := form["format"].(string); ok {
		if format == "" {
			format = v
		}
		delete(form, "format")
	}
	target, err := render.ParseTarget(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, offer.CodeValidation, err.Error())
		return
	}

	res, err := s.runner.Run(r.Context(), form)
	if err != nil {
		writeOfferError(w, err)
		return
	}
	s.respond(w, r, res.Bundle, target)
}

type exportRequest struct {
	Bundle *offer.OfferBundle `json:"bundle"`
	Format string             `json:"format"`
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req exportRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, offer.CodeValidation, "request body must be {bundle, format}")
		return
	}
	if req.Bundle == nil {
		writeError(w, http.StatusBadRequest, offer.CodeValidation, "bundle is required")
		return
	}
	if req.Format == "" {
		req.Format = string(render.BrandedPdf)
	}
	target, err := render.ParseTarget(req.Format)
	if err != nil || !target.IsPDF() {
		writeError(w, http.StatusBadRequest, offer.CodeValidation, fmt.Sprintf("format must be %q or %q", render.BrandedPdf, render.ProPdf))
		return
	}
	if err := offer.ValidateBundle(*req.Bundle); err != nil {
		writeOfferError(w, err)
		return
	}
	s.respond(w, r, *req.Bundle, target)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, b offer.OfferBundle, target render.Target) {
	out, err := s.renderer.Render(r.Context(), b, target)
	if err != nil {
		s.logger.Error("render failed",
			zap.String("generation_id", b.GenerationID),
			zap.String("target", string(target)),
			zap.Error(err))
		if errors.Is(err, render.ErrNoPrinter) {
			writeError(w, http.StatusServiceUnavailable, offer.CodeInternal, "PDF export is not available on this server.")
			return
		}
		writeError(w, http.StatusInternalServerError, offer.CodeInternal, "Failed to render offers.")
		return
	}

	w.Header().Set("X-Generation-ID", b.GenerationID)
	if len(out.Degraded) > 0 {
		w.Header().Set("X-Render-Degraded", "true")
	}
	if !target.IsPDF() {
		writeJSON(w, http.StatusOK, map[string]any{
			"generation_id": b.GenerationID,
			"view":          out.View,
			"bundle":        b,
			"degraded":      len(out.Degraded) > 0,
		})
		return
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Document)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.stats == nil {
		writeError(w, http.StatusNotFound, "not_enabled", "generation ledger is not enabled")
		return
	}
	var since time.Time
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, offer.CodeValidation, "window must be a positive duration such as 24h")
			return
		}
		since = time.Now().Add(-d)
	}
	sum, err := s.stats.Summary(r.Context(), since)
	if err != nil {
		s.logger.Error("ledger summary failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, offer.CodeInternal, "failed to read generation stats")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
