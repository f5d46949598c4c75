// Package server exposes the gateway over local HTTP: a JSON message
// endpoint for request/response and a Server-Sent Events stream for
// broadcasts. Surfaces and external control panels are both clients;
// external ones are distinguished by their Origin header.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/latuang/petd/internal/constants"
	"github.com/latuang/petd/internal/gateway"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	gw     *gateway.Gateway
	logger *zap.Logger
	http   *http.Server
}

func New(addr string, gw *gateway.Gateway, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{gw: gw, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/message", s.handleMessage)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.http = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// handleMessage answers one typed request. The reply is always HTTP 200
// with the {ok, ...} envelope; request-level failures live inside it so the
// caller is never left without an answer.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req gateway.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, gateway.Response{OK: false, Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	origin := r.Header.Get("Origin")
	start := time.Now()
	resp := s.gw.Handle(req, origin)

	s.logger.Debug("handled message",
		zap.String("type", req.Type),
		zap.String("origin", origin),
		zap.Bool("ok", resp.OK),
		zap.Duration("took", time.Since(start)))

	s.writeJSON(w, resp)
}

// handleEvents streams broadcast events as SSE. On connect, a pending
// speak-now echo (if fresh) is delivered first so a surface that missed the
// live push still catches it exactly once.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	origin := r.Header.Get("Origin")
	if !s.gw.OriginAllowed(origin) {
		s.logger.Warn("rejected event subscriber", zap.String("origin", origin))
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id, ch, cancel := s.gw.Subscribe()
	defer cancel()
	s.logger.Info("surface connected", zap.String("subscriber", id.String()))
	defer s.logger.Info("surface disconnected", zap.String("subscriber", id.String()))

	echo, pending, err := s.gw.ConsumeSpeakEcho(constants.SpeakEchoMaxAge)
	if err != nil {
		s.logger.Warn("failed to read speak echo", zap.Error(err))
	} else if pending {
		if err := writeEvent(w, gateway.Event{Type: gateway.EventSay, Text: echo.Text}); err != nil {
			return
		}
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if err := writeEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func writeEvent(w http.ResponseWriter, ev gateway.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
