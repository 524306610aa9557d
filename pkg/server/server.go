package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"relaygo/pkg/config"
	"relaygo/pkg/logger"
	"relaygo/pkg/webhook"
)

const (
	maxBodyBytes      = 1 << 20
	authHeader        = "X-Auth-Token"
	readHeaderTimeout = 10 * time.Second
)

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, body []byte) error
}

type WebhookResetter interface {
	Reset(ctx context.Context) webhook.Result
}

type Server struct {
	server       *http.Server
	addr         string
	updates      UpdateHandler
	resetter     WebhookResetter
	secret       string
	resetLimiter *rate.Limiter
	authLimiter  *rate.Limiter
}

func NewServer(cfg *config.Config, updates UpdateHandler, resetter WebhookResetter) *Server {
	perMinute := cfg.Webhook.ResetRatePerMinute
	if perMinute <= 0 {
		perMinute = 1
	}
	burst := cfg.Webhook.ResetBurst
	if burst <= 0 {
		burst = 1
	}
	every := rate.Every(time.Minute / time.Duration(perMinute))
	return &Server{
		addr:         cfg.ListenAddr(),
		updates:      updates,
		resetter:     resetter,
		secret:       cfg.Webhook.Secret,
		resetLimiter: rate.NewLimiter(every, burst),
		authLimiter:  rate.NewLimiter(every, burst),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST "+webhook.Path, s.handleWebhook)
	mux.HandleFunc("POST /reset-webhook", s.handleResetWebhook)
	return mux
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.InfoCF("server", "Starting HTTP server", map[string]interface{}{
		"addr": ln.Addr().String(),
	})

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorCF("server", "HTTP server failed", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		logger.InfoC("server", "Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "Bot is running")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorCF("server", "Recovered panic in webhook handler", map[string]interface{}{
				"panic": fmt.Sprintf("%v", rec),
			})
			writeJSON(w, http.StatusInternalServerError, map[string]bool{"ok": false})
		}
	}()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		logger.WarnCF("server", "Discarding unreadable webhook body", map[string]interface{}{
			logger.FieldRemote: r.RemoteAddr,
			logger.FieldError:  err.Error(),
		})
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	if err := s.updates.HandleUpdate(r.Context(), body); err != nil {
		logger.ErrorCF("server", "Webhook processing failed", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]bool{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleResetWebhook checks the token first. Rejected attempts and
// authorized resets draw from separate buckets, so failed guesses cannot
// lock out the operator.
func (s *Server) handleResetWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r.Header.Get(authHeader)) {
		if !s.authLimiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, webhook.Result{OK: false, Error: "too many requests"})
			return
		}
		logger.WarnCF("server", "Rejected webhook reset", map[string]interface{}{
			logger.FieldRemote: r.RemoteAddr,
		})
		http.Error(w, "Forbidden: Invalid token", http.StatusForbidden)
		return
	}
	if !s.resetLimiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, webhook.Result{OK: false, Error: "too many requests"})
		return
	}

	writeJSON(w, http.StatusOK, s.resetter.Reset(r.Context()))
}

// authorized never accepts anything when no secret is configured.
func (s *Server) authorized(token string) bool {
	if s.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.secret)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WarnCF("server", "Failed to write response", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
}
