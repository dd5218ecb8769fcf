package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finx/internal/log"
	"finx/internal/middleware/ratelimit"
	"finx/internal/middleware/security"
	"finx/internal/middleware/trace"
	"finx/internal/services"
)

// ReadyCheck reports whether a dependency can serve requests.
type ReadyCheck func(ctx context.Context) error

// Server is the JSON API over a FinanceService.
type Server struct {
	http.Server
	svc    *services.FinanceService
	logger *log.Logger

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	readyChecks map[string]ReadyCheck
	started     time.Time

	shutdownOnce sync.Once
}

// Options configures a Server.
type Options struct {
	RequestsPerMinute int
	ReadyChecks       map[string]ReadyCheck
	Logger            *log.Logger
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.FinanceService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		svc:         svc,
		logger:      logger,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		detector:    security.NewDetector(),
		readyChecks: opts.ReadyChecks,
		started:     time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/snapshot", s.handleGetSnapshot)
	mux.HandleFunc("PATCH /api/snapshot", s.handlePatchSnapshot)
	mux.HandleFunc("POST /api/onboarding", s.handleOnboarding)
	mux.HandleFunc("POST /api/reset", s.handleReset)

	mux.HandleFunc("POST /api/loans", s.handleAddLoan)
	mux.HandleFunc("DELETE /api/loans/{id}", s.handleRemoveLoan)
	mux.HandleFunc("POST /api/expenses", s.handleAddExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleRemoveExpense)

	mux.HandleFunc("GET /api/projection", s.handleProjection)
	mux.HandleFunc("POST /api/simulate", s.handleSimulate)
	mux.HandleFunc("POST /api/simulate/compare", s.handleCompare)
	mux.HandleFunc("GET /api/deposit-calculator", s.handleDepositCalculator)

	mux.HandleFunc("GET /api/achievements", s.handleAchievements)
	mux.HandleFunc("POST /api/achievements/{id}/unlock", s.handleUnlockAchievement)

	mux.HandleFunc("GET /api/advisor/context", s.handleAdvisorContext)
	mux.HandleFunc("POST /api/advisor/chat", s.handleAdvisorChat)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no route for " + r.Method + " " + r.URL.Path).Write(w)
	})

	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r))
		TooManyRequestsError().Write(w)
	})(mux)

	var handler http.Handler = limited
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and the limiter cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady runs every readiness check under one timeout.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string, len(s.readyChecks)+1)

	for name, check := range s.readyChecks {
		if err := check(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	if s.svc.AdvisorEnabled() {
		checks["advisor"] = "configured"
	} else {
		checks["advisor"] = "not_configured"
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"checks":    checks,
		"rateLimit": s.rateLimiter.GetMetrics(),
		"requests":  s.tracer.GetMetrics(),
	}).Write(w)
}
