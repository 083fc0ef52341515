// Package api - Thin, deterministic API layer
// The API is ONLY responsible for: input decoding, engine orchestration, output serialization.
// The API NEVER performs pricing logic.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pricing-calculator/core/output"
	"pricing-calculator/internal/logging"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

type contextKey struct{}

// RequestID returns the request id stored in ctx
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// Server is the API server
type Server struct {
	handler  *Handler
	mux      *http.ServeMux
	version  string
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	requests *prometheus.CounterVec
}

// Options configures a Server
type Options struct {
	// Version is reported by /health and /version
	Version string

	// Logger defaults to the global logger
	Logger *zap.Logger

	// Registry receives HTTP metrics and backs /metrics; nil disables both
	Registry *prometheus.Registry
}

// NewServer creates a new API server
func NewServer(handler *Handler, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Logger
	}

	s := &Server{
		handler: handler,
		mux:     http.NewServeMux(),
		version: opts.Version,
		logger:  logger.Named("api"),
	}

	if opts.Registry != nil {
		s.gatherer = opts.Registry
		s.requests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecalc_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		)
		opts.Registry.MustRegister(s.requests)
	}

	s.registerRoutes()
	return s
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	// Core endpoints
	s.mux.HandleFunc("POST /quote", s.handleQuote)
	s.mux.HandleFunc("POST /evaluate", s.handleEvaluate)
	s.mux.HandleFunc("GET /catalog", s.handleCatalog)
	s.mux.HandleFunc("GET /entities/{id}/range", s.handleRange)

	// Supporting endpoints
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /version", s.handleVersion)
	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// handleQuote handles POST /quote
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	// Price (NO PRICING LOGIC HERE)
	q, err := s.handler.quote(&req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !q.Complete {
		s.logger.Warn("quote incomplete",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("plan", q.PlanID),
			zap.Int("failed", len(q.Failed())),
		)
	}

	s.writeJSON(w, &QuoteResponse{
		RequestID: RequestID(r.Context()),
		QuoteView: output.NewQuoteView(q),
	}, http.StatusOK)
}

// handleEvaluate handles POST /evaluate
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.handler.evaluate(&req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp.RequestID = RequestID(r.Context())
	s.writeJSON(w, resp, http.StatusOK)
}

// handleCatalog handles GET /catalog
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	resp := s.handler.catalogInfo()
	etag := strconv.Quote(resp.Fingerprint)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	s.writeJSON(w, resp, http.StatusOK)
}

// handleRange handles GET /entities/{id}/range
func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	resp, err := s.handler.entityRange(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, resp, http.StatusOK)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":  "healthy",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"version": s.version,
		"engine":  "pricecalc",
		"vendor":  s.handler.catalog.Vendor,
	}, http.StatusOK)
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
	}
	s.writeJSON(w, &ErrorBody{Error: ErrorDetail{
		Code:      code,
		Message:   err.Error(),
		RequestID: RequestID(r.Context()),
		Details:   errorDetails(err),
	}}, status)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// ServeHTTP implements http.Handler.
// Every response carries a request id; incoming ids are kept.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id := r.Header.Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)
	r = r.WithContext(context.WithValue(r.Context(), contextKey{}, id))

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)

	_, route := s.mux.Handler(r)
	if route == "" {
		route = "unmatched"
	}
	if s.requests != nil {
		s.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	}

	s.logger.Info("request",
		zap.String("request_id", id),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("duration", time.Since(start)),
	)
}

// ListenAndServe starts the server and stops it when ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
