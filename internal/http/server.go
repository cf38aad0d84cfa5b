// Package http serves the remote store API over a storage.Repository.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgeting/internal/cache"
	applog "budgeting/internal/log"
	"budgeting/internal/middleware/ratelimit"
	"budgeting/internal/middleware/security"
	"budgeting/internal/middleware/trace"
	"budgeting/internal/storage"
)

// APIPrefix is the path every store route lives under.
const APIPrefix = "/api"

// Options tunes the server. Zero values pick defaults.
type Options struct {
	RateLimitPerMinute int
	CacheTTL           time.Duration
	CacheScopes        int
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	repo    storage.Repository
	logger  *applog.Logger
	lists   *cache.ListCache
	caches  *cache.Manager
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	shutdownOnce sync.Once
}

func NewServer(addr string, repo storage.Repository, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	if opts.CacheScopes <= 0 {
		opts.CacheScopes = 256
	}
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		repo:   repo,
		logger: logger,
		lists:  cache.NewListCache(opts.CacheScopes, opts.CacheTTL),
		caches: cache.NewManager(opts.Logger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}
	s.caches.Register(s.lists)
	s.caches.StartCleanup(10 * time.Minute)

	clientIP := security.NewClientIP()
	s.tracer = trace.NewMiddleware(opts.Logger, clientIP.Extract)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireBearer(h))
	}
	api("GET "+APIPrefix+"/{category}", s.handleList)
	api("POST "+APIPrefix+"/{category}", s.handleCreate)
	api("PUT "+APIPrefix+"/{category}/{userId}/{month}/{key}", s.handleUpdate)
	api("DELETE "+APIPrefix+"/{category}/{userId}/{month}/{key}", s.handleDelete)

	var h http.Handler = mux
	h = s.limiter.Middleware(clientIP.Extract, func(w http.ResponseWriter, _ *http.Request) {
		TooManyRequestsError("rate limit exceeded, try again later").Write(w)
	})(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	s.Handler = h

	return s
}

// requireBearer rejects requests without a credential. Validating the
// credential is the job of whatever fronts the store.
func requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := bearerToken(r); err != nil {
			UnauthorizedError(err.Error()).Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.repo == nil {
		ErrorResponse(http.StatusServiceUnavailable, "storage not configured").Write(w)
		return
	}
	NewJSONResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}

// CacheStats reports the list cache usage.
func (s *Server) CacheStats() cache.Stats {
	return s.lists.Stats()
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
