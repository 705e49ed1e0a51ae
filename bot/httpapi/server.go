// Package httpapi exposes the generic contact intake endpoints (/submit,
// /data, /users) and the Prometheus metrics endpoint. It lives next to the
// bot but is independent of the conversation engine.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"contactbot/bot/metrics"
	"contactbot/bot/storage"
	"contactbot/core/logger"
)

// SubmissionStore is the repository surface the API needs.
type SubmissionStore interface {
	Insert(ctx context.Context, fullName, phoneNumber string) error
	List(ctx context.Context) ([]storage.Submission, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// Server hosts the intake API on its own listener, independent of the
// Telegram webhook listener.
type Server struct {
	store SubmissionStore
	http  *http.Server
}

// NewServer builds the API server bound to addr (host:port).
func NewServer(addr string, store SubmissionStore) *Server {
	s := &Server{store: store}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called. Intended to
// run on its own goroutine.
func (s *Server) Start() error {
	logger.Info(context.Background(), "http.api", "listen",
		slog.String("listen", s.http.Addr),
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("intake api: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Get("/", s.handleHome)
	r.Post("/submit", s.handleSubmit)
	r.Get("/data", s.handleData)
	r.Get("/users", s.handleUsers)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

type submitRequest struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("contactbot is running"))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.FullName) == "" || strings.TrimSpace(req.PhoneNumber) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Missing data fields"})
		return
	}

	if err := s.store.Insert(r.Context(), req.FullName, req.PhoneNumber); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "database error"})
		return
	}
	metrics.SubmissionsTotal.Inc()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Data submitted successfully"})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "database error"})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.ListUserIDs(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "database error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_ids": ids})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn(context.Background(), "http.api", "encode",
			slog.String("err", err.Error()),
		)
	}
}

// requestLogger tags each request with a request id and logs one summary line.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rid := uuid.NewString()
		w.Header().Set("X-Request-Id", rid)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		logger.Info(r.Context(), "http.api", "request",
			slog.String("request_id", rid),
			slog.String("op", r.Method+" "+r.URL.Path),
			slog.Int("http_code", sw.status),
			slog.Duration("duration", logger.Took(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
