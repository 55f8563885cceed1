package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	applog "relief/internal/log"
	"relief/internal/metrics"
	"relief/internal/middleware/ratelimit"
	"relief/internal/middleware/security"
	"relief/internal/middleware/trace"
	"relief/internal/services"
)

// Options configures the server's middleware. Zero values fall back to defaults.
type Options struct {
	Logger    *applog.Logger
	Metrics   *metrics.Metrics // nil disables /metrics and request observation
	RateLimit ratelimit.Config
	Headers   *security.HeadersConfig
}

type Server struct {
	http.Server
	engine   *services.Engine
	logger   *applog.Logger
	metrics  *metrics.Metrics
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

func NewServer(addr string, engine *services.Engine, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	s := &Server{
		engine:  engine,
		logger:  logger.WithComponent(applog.ComponentHTTP),
		metrics: opts.Metrics,
		limiter: ratelimit.NewLimiter(opts.RateLimit),
	}

	var (
		observer     trace.Observer
		onSuspicious func()
	)
	if s.metrics != nil {
		observer = s.metrics
		onSuspicious = s.metrics.SuspiciousRequest
	}
	s.detector = security.NewDetector(onSuspicious)

	headers := security.DefaultHeadersConfig()
	if opts.Headers != nil {
		headers = *opts.Headers
	}

	r := chi.NewRouter()
	r.Use(trace.NewMiddleware(logger, s.detector.ExtractClientIP, observer).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(headers).Middleware)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		NotFoundError(CodeNotFound, "route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		MethodNotAllowedError("").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited))
		r.Get("/state", s.handleState)
		r.Get("/donations", s.handleListDonations)
		r.Post("/donations", s.handleCreateDonation)
		r.Get("/proposals", s.handleListProposals)
		r.Get("/proposals/{id}", s.handleGetProposal)
		r.Post("/proposals/{id}/votes", s.handleVote)
	})

	s.Server = http.Server{
		Addr:           addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}
	return s
}

// Shutdown stops background middleware work and then drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
	})
	return s.Server.Shutdown(ctx)
}
