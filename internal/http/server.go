// Package http serves the dashboard pages and their JSON view models.
package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"grovq/internal/amqp"
	"grovq/internal/cache"
	"grovq/internal/dataset"
	"grovq/internal/metrics"
	appweb "grovq/web"
)

// ExportPublisher queues asynchronous export requests.
type ExportPublisher interface {
	PublishExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error
}

// Options configures the dashboard server.
type Options struct {
	Addr   string
	Source dataset.Source
	Origin string
	CACMap metrics.CACMap

	// Optional async export queue; nil disables POST /api/export/async.
	Publisher ExportPublisher

	// Assumption fed into the annual-impact projection.
	MonthlyNewCustomers int

	CacheSize int
	CacheTTL  time.Duration
}

type Server struct {
	http.Server
	templates *template.Template

	source dataset.Source
	origin string
	holder dataset.Holder
	cacMap metrics.CACMap

	publisher           ExportPublisher
	monthlyNewCustomers int

	rateLimiter *rateLimiter
	security    *securityMetrics

	// Derived rows per snapshot; the key is the snapshot load time so a
	// refresh naturally invalidates older entries.
	rowsCache    *cache.LRUCache[[]metrics.Row]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	cacheSize := opts.CacheSize
	if cacheSize < 1 {
		cacheSize = 4
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	monthly := opts.MonthlyNewCustomers
	if monthly <= 0 {
		monthly = 1000
	}

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		source:              opts.Source,
		origin:              opts.Origin,
		cacMap:              opts.CACMap,
		publisher:           opts.Publisher,
		monthlyNewCustomers: monthly,
		rateLimiter:         newRateLimiter(),
		security:            &securityMetrics{},
		rowsCache:           cache.NewLRUCache[[]metrics.Row](cacheSize, cacheTTL),
		cacheManager:        cache.NewManager(),
	}
	if s.cacMap == nil {
		s.cacMap = metrics.DefaultCACMap()
	}

	s.cacheManager.Register(s.rowsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/api/intro", s.withSecurityHeaders(s.handleIntro))
	mux.HandleFunc("/api/summary", s.withSecurityHeaders(s.handleSummary))
	mux.HandleFunc("/api/explore", s.withSecurityHeaders(s.handleExplore))
	mux.HandleFunc("/api/funnel", s.withSecurityHeaders(s.handleFunnel))
	mux.HandleFunc("/api/roi", s.withSecurityHeaders(s.handleROI))
	mux.HandleFunc("/api/strategy", s.withSecurityHeaders(s.handleStrategy))
	mux.HandleFunc("/api/scenario", s.withSecurityHeaders(s.handleScenario))
	mux.HandleFunc("/api/conclusion", s.withSecurityHeaders(s.handleConclusion))

	mux.HandleFunc("/api/export", s.withSecurityHeaders(s.handleExport))
	mux.HandleFunc("/api/export/async", s.withSecurityHeaders(s.handleExportAsync))
	mux.HandleFunc("/api/refresh", s.withSecurityHeaders(s.handleRefresh))

	return s
}

// Shutdown stops the background cleanup goroutines and then the HTTP
// server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Mutating requests are rate limited per client.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.security) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready only once a snapshot is loadable, so load
// balancers never route to an instance serving from nothing.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.holder.Current() == nil {
		if _, err := s.holder.Refresh(r.Context(), s.source, s.origin); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("dataset unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		Origin string
		Pages  []string
	}{
		Origin: s.origin,
		Pages: []string{
			"intro", "summary", "explore", "funnel",
			"roi", "strategy", "scenario", "conclusion",
		},
	}
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RefreshSnapshot reloads the dataset snapshot outside the request
// path, for callers running on a timer.
func (s *Server) RefreshSnapshot(ctx context.Context) error {
	_, err := s.holder.Refresh(ctx, s.source, s.origin)
	return err
}

// handleRefresh reloads the dataset snapshot on demand.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap, err := s.holder.Refresh(r.Context(), s.source, s.origin)
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"origin":    snap.Origin(),
		"records":   snap.Len(),
		"loaded_at": snap.LoadedAt(),
	})
}

// table returns the current snapshot and its derived rows, loading the
// snapshot and deriving on first use.
func (s *Server) table(ctx context.Context) (*dataset.Snapshot, []metrics.Row, error) {
	snap := s.holder.Current()
	if snap == nil {
		loaded, err := s.holder.Refresh(ctx, s.source, s.origin)
		if err != nil {
			return nil, nil, err
		}
		snap = loaded
	}

	key := snap.LoadedAt().Format(time.RFC3339Nano)
	if rows, ok := s.rowsCache.Get(key); ok {
		return snap, rows, nil
	}

	rows, err := metrics.Derive(snap.Records(), s.cacMap)
	if err != nil {
		return nil, nil, fmt.Errorf("derive metrics: %w", err)
	}
	s.rowsCache.Set(key, rows)
	return snap, rows, nil
}

// tableWith derives rows with per-request CAC overrides merged over the
// configured mapping. The cache key carries the override fingerprint so
// different overrides never collide.
func (s *Server) tableWith(ctx context.Context, overrides metrics.CACMap) (*dataset.Snapshot, []metrics.Row, error) {
	if len(overrides) == 0 {
		return s.table(ctx)
	}

	snap := s.holder.Current()
	if snap == nil {
		loaded, err := s.holder.Refresh(ctx, s.source, s.origin)
		if err != nil {
			return nil, nil, err
		}
		snap = loaded
	}

	cacMap := make(metrics.CACMap, len(s.cacMap)+len(overrides))
	for segment, cac := range s.cacMap {
		cacMap[segment] = cac
	}
	fingerprint := make([]string, 0, len(overrides))
	for segment, cac := range overrides {
		cacMap[segment] = cac
		fingerprint = append(fingerprint, fmt.Sprintf("%s=%d", segment, cac.Cents))
	}
	sort.Strings(fingerprint)

	key := snap.LoadedAt().Format(time.RFC3339Nano) + "|" + strings.Join(fingerprint, ",")
	if rows, ok := s.rowsCache.Get(key); ok {
		return snap, rows, nil
	}

	rows, err := metrics.Derive(snap.Records(), cacMap)
	if err != nil {
		return nil, nil, fmt.Errorf("derive metrics: %w", err)
	}
	s.rowsCache.Set(key, rows)
	return snap, rows, nil
}

// writeDatasetError maps data availability to 503, bad CAC mappings to
// 422, and everything else to 500.
func (s *Server) writeDatasetError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "Dataset error", "error", err, "url", r.URL.Path)
	switch {
	case errors.Is(err, dataset.ErrDataUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "dataset unavailable"})
	case errors.Is(err, metrics.ErrUnmappedSegment), errors.Is(err, metrics.ErrNonPositiveCAC):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "dataset unavailable"})
	}
}
