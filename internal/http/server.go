package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"moneymanager/internal/cache"
	"moneymanager/internal/ledger"
	"moneymanager/internal/log"
	"moneymanager/internal/middleware/ratelimit"
	"moneymanager/internal/middleware/security"
	"moneymanager/internal/middleware/trace"
	"moneymanager/internal/services"
)

const (
	cacheTTL             = 5 * time.Minute
	cacheCleanupInterval = time.Minute
)

type Server struct {
	http.Server
	svc    *services.LedgerService
	bg     *services.Background
	logger *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	// Derived views keyed by query, purged on every mutation and refresh.
	reportCache *cache.LRUCache[ledger.Report]
	seriesCache *cache.LRUCache[ledger.Series]

	rateLimit        ratelimit.Config
	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithBackground lets the settings endpoint reschedule auto-refresh.
func WithBackground(bg *services.Background) ServerOption {
	return func(s *Server) { s.bg = bg }
}

func WithRateLimit(cfg ratelimit.Config) ServerOption {
	return func(s *Server) { s.rateLimit = cfg }
}

// WithTrustedProxy trusts X-Forwarded-For from cidr when resolving client IPs.
func WithTrustedProxy(cidr string) ServerOption {
	return func(s *Server) {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
}

func NewServer(addr string, svc *services.LedgerService, logger *log.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:           addr,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 16, // 64KB
		},
		svc:              svc,
		logger:           logger.WithComponent(log.ComponentHTTP),
		detector:         security.NewDetector(),
		tracer:           trace.NewMiddleware(),
		reportCache:      cache.NewLRUCache[ledger.Report](100, cacheTTL),
		seriesCache:      cache.NewLRUCache[ledger.Series](24, cacheTTL),
		rateLimit:        ratelimit.DefaultConfig(),
		stopCacheCleanup: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.limiter = ratelimit.NewLimiter(s.rateLimit)

	s.routes(mux)
	s.Handler = s.middleware(mux)

	go s.startCacheCleanup()
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/series", s.handleSeries)
	mux.HandleFunc("GET /api/breakdown", s.handleBreakdown)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/report", s.handleReport)

	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("DELETE /api/data", s.handleClear)
	mux.HandleFunc("GET /api/backups", s.handleBackups)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
}

// middleware wraps h outermost first: tracing, logging, security headers,
// suspicious request rejection, CORS, rate limiting.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ClientIP(r), log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	})(h)
	h = withCORS(h)
	h = s.detector.Middleware(s.logger)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.Middleware(s.logger)(h)
	return s.tracer.Middleware(h)
}

// Invalidate drops every cached view. Call it whenever the ledger changes
// outside a request, e.g. after a background refresh.
func (s *Server) Invalidate() {
	s.reportCache.Purge()
	s.seriesCache.Purge()
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(cacheCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			expired := s.reportCache.CleanExpired() + s.seriesCache.CleanExpired()
			if expired > 0 {
				s.logger.Debug("Cache cleanup completed", log.FieldCount, expired)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
