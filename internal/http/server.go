// Package http exposes the ledger as a small JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ledgerbook/internal/ledger"
	"ledgerbook/internal/log"
	"ledgerbook/internal/middleware/ratelimit"
	"ledgerbook/internal/middleware/security"
)

// Server is an http.Server bound to one ledger.
type Server struct {
	http.Server

	ledger *ledger.Store
	logger *log.Logger
	token  string
	now    func() time.Time

	writesPerMinute int
	limiter         *ratelimit.Limiter
}

type Option func(*Server)

func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithToken requires "Authorization: Token <token>" on API routes.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithRateLimit caps mutating API requests per client IP and minute. Zero
// disables the limit.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.writesPerMinute = perMinute }
}

// WithClock overrides the clock used to default missing dates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer configures routes, returning a ready-to-run server.
func NewServer(addr string, store *ledger.Store, opts ...Option) *Server {
	s := &Server{
		ledger: store,
		logger: log.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	apiMux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	apiMux.HandleFunc("DELETE /api/expenses/{index}", s.handleDeleteExpense)
	apiMux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	var apiHandler http.Handler = apiMux
	if s.writesPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: s.writesPerMinute})
		apiHandler = s.limiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		})(apiHandler)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("/api/", requireToken(s.token, apiHandler))

	var handler http.Handler = s.withRecover(mux)
	handler = withRequestLogging(handler)
	handler = log.RequestIDMiddleware(func(r *http.Request) string {
		return r.Header.Get("X-Request-ID")
	})(handler)
	handler = log.Middleware(s.logger)(handler)
	handler = withRequestID(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

// withRequestID makes sure every request carries an X-Request-ID and echoes
// it on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set("X-Request-ID", requestID)
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r)
	})
}

// withRequestLogging logs every completed request with the request-scoped
// logger.
func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		ctx := r.Context()
		fields := log.NewFields().
			With(log.FieldMethod, r.Method).
			With(log.FieldPath, r.URL.Path).
			With(log.FieldStatusCode, rw.statusCode).
			With(log.FieldDuration, time.Since(start).Milliseconds()).
			With(log.FieldClientIP, extractClientIP(r))
		logger := log.FromContext(ctx)
		if rw.statusCode >= 500 {
			logger.ErrorContext(ctx, "Request completed", fields.ToSlice()...)
			return
		}
		logger.InfoContext(ctx, "Request completed", fields.ToSlice()...)
	})
}

func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				log.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panic",
					log.FieldErrorType, log.ErrorTypeInternal,
					"panic", v)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
