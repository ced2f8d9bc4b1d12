// Package http exposes the relay's HTTP surface: liveness endpoints and the
// Telegram webhook.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Server is the relay HTTP server.
type Server struct {
	addr       string
	chatID     int64
	webhook    *WebhookHandler
	started    time.Time
	now        func() time.Time
	httpServer *http.Server
}

// NewServer creates a server listening on addr. chatID is reported by GET /.
func NewServer(addr string, chatID int64, webhook *WebhookHandler) *Server {
	return &Server{
		addr:    addr,
		chatID:  chatID,
		webhook: webhook,
		started: time.Now(),
		now:     time.Now,
	}
}

// BuildMux creates the route table.
func (s *Server) BuildMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.webhook != nil {
		s.webhook.RegisterRoutes(mux)
	}
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.BuildMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("relay listening", "addr", s.addr)

	go func() {
		<-ctx.Done()
		// Runs already started continue on a detached context; give them time.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("relay server: %w", err)
	}
	return nil
}

type rootResponse struct {
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"` // seconds
	ChatID    int64   `json:"chat_id"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, rootResponse{
		Status:    "running",
		Message:   "Telegram feedback relay is running",
		Timestamp: now.UTC().Format(time.RFC3339),
		Uptime:    now.Sub(s.started).Seconds(),
		ChatID:    s.chatID,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Message: "OK"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
