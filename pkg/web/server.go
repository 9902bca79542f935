// Package web is the HTTP surface: a way to poke the engine without a
// chat platform attached, plus read-only status endpoints. It binds to
// loopback by default and carries no auth.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/moekyun/mika/pkg/brain"
	"github.com/moekyun/mika/pkg/bus"
	"github.com/moekyun/mika/pkg/gateway"
	"github.com/moekyun/mika/pkg/logger"
)

type Server struct {
	worker *gateway.Worker
	brain  *brain.Brain
	http   *http.Server
}

type chatRequest struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

type chatResponse struct {
	Author    string `json:"author"`
	Response  string `json:"response"`
	Responded bool   `json:"responded"`
}

func NewServer(host string, port int, worker *gateway.Worker, b *brain.Brain) *Server {
	s := &Server{worker: worker, brain: b}
	s.http = &http.Server{
		Addr:              net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the handler, exposed separately so tests can drive it
// with httptest.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /users", s.handleUsers)
	mux.HandleFunc("POST /clear", s.handleClear)
	return mux
}

// ListenAndServe blocks until the server fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	logger.InfoCF("web", "HTTP surface listening", map[string]any{"addr": s.http.Addr})
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Author) == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "author and content are required")
		return
	}

	reply := s.worker.Process(r.Context(), bus.InboundMessage{
		Platform: bus.PlatformWeb,
		Author:   req.Author,
		Content:  req.Content,
	})

	writeJSON(w, http.StatusOK, chatResponse{
		Author:    req.Author,
		Response:  reply,
		Responded: reply != "",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"online": true,
		"status": s.brain.Status(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": s.brain.RecentHistory(0),
	})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"users": s.brain.UserRecords(),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.brain.ClearContext()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "context cleared",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WarnCF("web", "Failed to encode response", map[string]any{"error": err.Error()})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
