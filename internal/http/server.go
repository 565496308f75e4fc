// Package http exposes the JSON API: auth, transactions, recurring series,
// summaries, savings, goals and currency conversion.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"tally/internal/core"
	"tally/internal/currency"
	"tally/internal/services"
)

type Server struct {
	http.Server

	auth         *services.AuthService
	transactions *services.TransactionService
	recurring    *services.RecurringService
	summaries    *services.SummaryService
	savings      *services.SavingsService
	users        *services.UserService
	converter    *currency.Converter

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

func NewServer(addr string,
	auth *services.AuthService,
	transactions *services.TransactionService,
	recurring *services.RecurringService,
	summaries *services.SummaryService,
	savings *services.SavingsService,
	users *services.UserService,
	converter *currency.Converter,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		auth:         auth,
		transactions: transactions,
		recurring:    recurring,
		summaries:    summaries,
		savings:      savings,
		users:        users,
		converter:    converter,
		rateLimiter:  newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/register", s.withRequestLog(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.withRequestLog(s.handleLogin))
	mux.HandleFunc("POST /api/auth/logout", s.withRequestLog(s.requireUser(s.handleLogout)))

	mux.HandleFunc("POST /api/transactions", s.withRequestLog(s.requireUser(s.handleCreateTransaction)))
	mux.HandleFunc("GET /api/transactions", s.withRequestLog(s.requireUser(s.handleFilterTransactions)))
	mux.HandleFunc("GET /api/transactions/{id}", s.withRequestLog(s.requireUser(s.handleGetTransaction)))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withRequestLog(s.requireUser(s.handleUpdateTransaction)))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withRequestLog(s.requireUser(s.handleDeleteTransaction)))

	mux.HandleFunc("POST /api/recurring", s.withRequestLog(s.requireUser(s.handleCreateRecurring)))
	mux.HandleFunc("GET /api/recurring", s.withRequestLog(s.requireUser(s.handleListRecurring)))
	mux.HandleFunc("PUT /api/recurring/{id}", s.withRequestLog(s.requireUser(s.handleUpdateRecurring)))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.withRequestLog(s.requireUser(s.handleDeleteRecurring)))

	mux.HandleFunc("GET /api/summary/monthly", s.withRequestLog(s.requireUser(s.handleMonthlySummary)))
	mux.HandleFunc("GET /api/summary/yearly", s.withRequestLog(s.requireUser(s.handleYearlySummary)))

	mux.HandleFunc("POST /api/savings", s.withRequestLog(s.requireUser(s.handleCreateSavings)))
	mux.HandleFunc("GET /api/savings", s.withRequestLog(s.requireUser(s.handleListSavings)))
	mux.HandleFunc("GET /api/savings/{id}", s.withRequestLog(s.requireUser(s.handleGetSavings)))
	mux.HandleFunc("PUT /api/savings/{id}", s.withRequestLog(s.requireUser(s.handleUpdateSavings)))
	mux.HandleFunc("DELETE /api/savings/{id}", s.withRequestLog(s.requireUser(s.handleDeleteSavings)))

	mux.HandleFunc("POST /api/goals", s.withRequestLog(s.requireUser(s.handleCreateGoal)))
	mux.HandleFunc("GET /api/goals", s.withRequestLog(s.requireUser(s.handleListGoals)))
	mux.HandleFunc("GET /api/goals/{id}", s.withRequestLog(s.requireUser(s.handleGetGoal)))
	mux.HandleFunc("PATCH /api/goals/{id}/status", s.withRequestLog(s.requireUser(s.handleGoalStatus)))
	mux.HandleFunc("DELETE /api/goals/{id}", s.withRequestLog(s.requireUser(s.handleDeleteGoal)))

	mux.HandleFunc("GET /api/currency/convert", s.withRequestLog(s.requireUser(s.handleConvertCurrency)))

	mux.HandleFunc("GET /api/users/me", s.withRequestLog(s.requireUser(s.handleCurrentUser)))
	mux.HandleFunc("PUT /api/users/me/currency", s.withRequestLog(s.requireUser(s.handleSetFavoriteCurrency)))

	return s
}

// Shutdown stops the HTTP server and the rate limiter cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user *core.User)

// requireUser resolves the bearer token into a user before invoking next.
func (s *Server) requireUser(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.auth.CurrentUser(r.Context(), bearerToken(r))
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		next(w, r, user)
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// withRequestLog adds a request id, request logging and rate limiting on
// writes.
func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
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

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
