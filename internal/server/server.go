package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/depscan/internal/config"
	"github.com/nao1215/depscan/internal/metrics"
	"github.com/nao1215/depscan/internal/model"
)

const (
	// maxRequestBody bounds the request body of POST /analyze.
	maxRequestBody = 1 << 20

	// DefaultShutdownTimeout is how long in-flight requests get to finish.
	DefaultShutdownTimeout = 10 * time.Second
)

// Analyzer scans a repository. *pipeline.Service implements it.
type Analyzer interface {
	AnalyzeRepository(ctx context.Context, repoURL string) (*model.ScanReport, error)
}

// Server is the HTTP API.
type Server struct {
	analyzer        Analyzer
	addr            string
	allowedOrigins  []string
	metrics         *metrics.Metrics
	scanTimeout     time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithAllowedOrigins sets the CORS origin allow-list. "*" allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithMetrics enables request metrics and the /metrics endpoint.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithScanTimeout bounds each analysis. Zero means no limit beyond the
// client's own connection.
func WithScanTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.scanTimeout = d
	}
}

// WithShutdownTimeout sets how long Run waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server.
func New(analyzer Analyzer, opts ...Option) *Server {
	s := &Server{
		analyzer:        analyzer,
		addr:            config.DefaultServerAddr,
		allowedOrigins:  []string{config.DefaultAllowedOrigin},
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Handler returns the API handler with CORS and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	var h http.Handler = mux
	if s.metrics != nil {
		h = s.metrics.RequestTrackingMiddleware(h)
	}
	return s.cors(h)
}

// Run listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type analyzeRequest struct {
	RepoURL string `json:"repo_url"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	repoURL, err := repoURLFrom(r)
	if err != nil || repoURL == "" {
		s.logger.Debug("rejecting analyze request", "error", err)
		s.noDependencies(w)
		return
	}

	ctx := r.Context()
	if s.scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.scanTimeout)
		defer cancel()
	}

	report, err := s.analyzer.AnalyzeRepository(ctx, repoURL)
	if err != nil {
		s.logger.Info("analysis failed", "repo_url", repoURL, "error", err)
		s.noDependencies(w)
		return
	}
	if len(report.Packages) == 0 {
		s.noDependencies(w)
		return
	}

	writeJSON(w, http.StatusOK, model.NewAnalyzeResponse(report))
}

// repoURLFrom reads repo_url from a JSON body, a url-encoded or multipart
// form, or the query string.
func repoURLFrom(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")) //nolint:errcheck // empty type falls through to form parsing
	if mediaType == "application/json" {
		var body analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", err
		}
		return strings.TrimSpace(body.RepoURL), nil
	}

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxRequestBody); err != nil {
			return "", err
		}
	} else if err := r.ParseForm(); err != nil {
		return "", err
	}
	return strings.TrimSpace(r.FormValue("repo_url")), nil
}

func (s *Server) noDependencies(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, model.MessageResponse{Message: model.NoDependenciesMessage})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}
