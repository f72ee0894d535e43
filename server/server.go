// Package server exposes the chat, session, and realtime endpoints over
// HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	catalogx "github.com/orderai/orderai/agent/catalog"
	chatx "github.com/orderai/orderai/agent/chat"
	contractx "github.com/orderai/orderai/agent/contract"
	notifyx "github.com/orderai/orderai/agent/notify"
	orderx "github.com/orderai/orderai/agent/order"
	sessionx "github.com/orderai/orderai/agent/session"
)

type Config struct {
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":8000"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"5s"`
}

type Server struct {
	http     *http.Server
	shutdown time.Duration
}

func New(
	cfg Config,
	svc *chatx.Service,
	sessions *sessionx.Registry,
	catalog *catalogx.Catalog,
	orders orderx.Store,
	hub *notifyx.Hub,
) *Server {
	h := &handlers{
		svc:      svc,
		sessions: sessions,
		catalog:  catalog,
		orders:   orders,
		hub:      hub,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /start", h.start)
	mux.HandleFunc("POST /send", h.send)
	mux.HandleFunc("POST /end", h.end)
	mux.HandleFunc("GET /menu", h.menu)
	mux.HandleFunc("GET /orders", h.pastOrders)
	mux.HandleFunc("GET /ws/{sessionID}", h.websocket)

	shutdown := cfg.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = 5 * time.Second
	}

	return &Server{
		http: &http.Server{
			Addr:    cfg.Addr,
			Handler: mux,
		},
		shutdown: shutdown,
	}
}

// Handler returns the routed handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	log.Info().Str("addr", s.http.Addr).Msg("http server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type handlers struct {
	svc      *chatx.Service
	sessions *sessionx.Registry
	catalog  *catalogx.Catalog
	orders   orderx.Store
	hub      *notifyx.Hub
}

type startResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type sendRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type sendResponse struct {
	AIResponse string           `json:"ai_response"`
	Order      *orderx.Snapshot `json:"order,omitempty"`
}

type endRequest struct {
	SessionID string `json:"session_id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) start(w http.ResponseWriter, r *http.Request) {
	sessionID, greeting := h.svc.Start(r.Context())
	writeJSON(w, http.StatusOK, startResponse{SessionID: sessionID, Message: greeting})
}

func (h *handlers) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	reply, snapshot, err := h.svc.Send(r.Context(), req.SessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, contractx.ErrSessionNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		case errors.Is(err, contractx.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		default:
			log.Error().Err(err).Str("session_id", req.SessionID).Msg("chat turn failed")
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: "assistant unavailable"})
		}
		return
	}

	writeJSON(w, http.StatusOK, sendResponse{AIResponse: reply, Order: snapshot})
}

func (h *handlers) end(w http.ResponseWriter, r *http.Request) {
	var req endRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	h.svc.End(r.Context(), req.SessionID)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Session ended and memory cleared."})
}

func (h *handlers) menu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Items())
}

func (h *handlers) pastOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list orders failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "orders unavailable"})
		return
	}
	if orders == nil {
		orders = []orderx.FinalizedOrder{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response failed")
	}
}
