// Package http exposes the ledger as a JSON API. Handlers stay thin:
// they decode the request, call one service operation as the
// authenticated user, and encode the result. All access decisions live
// in the services.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tally/internal/log"
	"tally/internal/services"
	"tally/internal/session"
)

type Server struct {
	http.Server

	users    *services.UserService
	budgets  *services.BudgetService
	ledger   *services.LedgerService
	resets   ResetFlow
	sessions *session.Manager

	rateLimiter  *rateLimiter
	logger       *log.Logger
	shutdownOnce sync.Once
}

// ResetFlow is the password-reset surface the auth handlers call.
type ResetFlow interface {
	Request(ctx context.Context, username string) error
	Reset(ctx context.Context, tokenID, newPassword string) error
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, users *services.UserService, budgets *services.BudgetService,
	ledger *services.LedgerService, resets ResetFlow, sessions *session.Manager, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		users:       users,
		budgets:     budgets,
		ledger:      ledger,
		resets:      resets,
		sessions:    sessions,
		rateLimiter: newRateLimiter(),
		logger:      logger.WithComponent(log.ComponentHTTP),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Credential endpoints are rate limited per client IP; everything
	// else is throttled by the session requirement.
	mux.HandleFunc("POST /api/users", s.public(s.withRateLimit(s.handleRegister)))
	mux.HandleFunc("POST /api/users/login", s.public(s.withRateLimit(s.handleLogin)))
	mux.HandleFunc("POST /api/resetpassword", s.public(s.withRateLimit(s.handleResetRequest)))
	mux.HandleFunc("POST /api/passwordreset", s.public(s.withRateLimit(s.handleResetComplete)))

	mux.HandleFunc("POST /api/users/logout", s.authed(s.handleLogout))
	mux.HandleFunc("GET /api/users/me", s.authed(s.handleMe))
	mux.HandleFunc("PUT /api/users/me/password", s.authed(s.handleChangePassword))

	mux.HandleFunc("GET /api/budgets", s.authed(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.authed(s.handleCreateBudget))
	mux.HandleFunc("GET /api/budgets/{id}", s.authed(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budgets/{id}", s.authed(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.authed(s.handleDeleteBudget))
	mux.HandleFunc("PUT /api/budgets/{id}/permissions", s.authed(s.handleGrantPermission))
	mux.HandleFunc("DELETE /api/budgets/{id}/permissions/{userId}", s.authed(s.handleRevokePermission))

	mux.HandleFunc("GET /api/budgets/{id}/categories", s.authed(s.handleListCategories))
	mux.HandleFunc("POST /api/budgets/{id}/categories", s.authed(s.handleCreateCategory))
	mux.HandleFunc("GET /api/categories/{id}", s.authed(s.handleGetCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.authed(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.authed(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/budgets/{id}/transactions", s.authed(s.handleListTransactions))
	mux.HandleFunc("POST /api/budgets/{id}/transactions", s.authed(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.authed(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.authed(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.authed(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/budgets/{id}/recurring", s.authed(s.handleListRecurring))
	mux.HandleFunc("POST /api/budgets/{id}/recurring", s.authed(s.handleCreateRecurring))
	mux.HandleFunc("GET /api/recurring/{id}", s.authed(s.handleGetRecurring))
	mux.HandleFunc("PUT /api/recurring/{id}", s.authed(s.handleUpdateRecurring))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.authed(s.handleDeleteRecurring))

	return s
}

// Shutdown stops the rate limiter's cleanup goroutine and drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
