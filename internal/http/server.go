// Package http exposes the JSON API serving the entry form: queueing
// transactions, flushing them to the remote sheet, and the taxonomy and
// account lookups backing the form controls.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/samhvw8/finance-tracking/internal/accounts"
	"github.com/samhvw8/finance-tracking/internal/categories"
	"github.com/samhvw8/finance-tracking/internal/core"
	"github.com/samhvw8/finance-tracking/internal/log"
	"github.com/samhvw8/finance-tracking/internal/middleware/trace"
	"github.com/samhvw8/finance-tracking/internal/queue"
	"github.com/samhvw8/finance-tracking/internal/store"
	"github.com/samhvw8/finance-tracking/internal/submit"
)

type Server struct {
	http.Server

	store        *store.Store // nil in memory-only mode
	txQueue      *queue.Manager[core.Transaction]
	invQueue     *queue.Manager[core.InvestmentTransaction]
	submitter    *submit.Submitter
	invSubmitter *submit.InvestmentSubmitter
	categories   *categories.Manager
	accounts     *accounts.Manager
	logger       *log.Logger

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// Deps carries everything the handlers reach for.
type Deps struct {
	Store        *store.Store
	TxQueue      *queue.Manager[core.Transaction]
	InvQueue     *queue.Manager[core.InvestmentTransaction]
	Submitter    *submit.Submitter
	InvSubmitter *submit.InvestmentSubmitter
	Categories   *categories.Manager
	Accounts     *accounts.Manager
	Logger       *log.Logger
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		store:        deps.Store,
		txQueue:      deps.TxQueue,
		invQueue:     deps.InvQueue,
		submitter:    deps.Submitter,
		invSubmitter: deps.InvSubmitter,
		categories:   deps.Categories,
		accounts:     deps.Accounts,
		logger:       deps.Logger,
		rateLimiter:  newRateLimiter(),
	}
	s.Server = http.Server{
		Addr:    addr,
		Handler: trace.NewMiddleware().Middleware(mux),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/transactions", s.limited(s.handleQueueTransaction))
	mux.HandleFunc("GET /api/transactions", s.limited(s.handleListTransactions))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.limited(s.handleRemoveTransaction))
	mux.HandleFunc("DELETE /api/transactions", s.limited(s.handleClearTransactions))
	mux.HandleFunc("POST /api/transactions/submit", s.limited(s.handleSubmitTransactions))

	mux.HandleFunc("POST /api/investments", s.limited(s.handleQueueInvestment))
	mux.HandleFunc("GET /api/investments", s.limited(s.handleListInvestments))
	mux.HandleFunc("DELETE /api/investments/{id}", s.limited(s.handleRemoveInvestment))
	mux.HandleFunc("DELETE /api/investments", s.limited(s.handleClearInvestments))
	mux.HandleFunc("POST /api/investments/submit", s.limited(s.handleSubmitInvestments))

	mux.HandleFunc("GET /api/categories", s.limited(s.handleCategories))
	mux.HandleFunc("POST /api/categories/refresh", s.limited(s.handleRefreshCategories))
	mux.HandleFunc("GET /api/accounts", s.limited(s.handleAccounts))
	mux.HandleFunc("POST /api/accounts/refresh", s.limited(s.handleRefreshAccounts))

	mux.HandleFunc("GET /api/token", s.limited(s.handleGetToken))
	mux.HandleFunc("PUT /api/token", s.limited(s.handlePutToken))
	mux.HandleFunc("DELETE /api/token", s.limited(s.handleDeleteToken))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// limited applies per-client rate limiting before the handler runs.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.allow(r.RemoteAddr) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error: "Quá nhiều yêu cầu. Vui lòng thử lại sau.",
			})
			return
		}
		next(w, r)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once both queues finished restoring.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.txQueue.State() != queue.Ready || s.invQueue.State() != queue.Ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries.
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop shuts down the cleanup goroutine.
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 120 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 120
}
