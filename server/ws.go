package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The channel carries no client payloads, only server pushes.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocket attaches the one realtime subscriber for a session. Inbound
// frames are keep-alive only and are discarded; disconnect detaches the
// subscriber.
func (h *handlers) websocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")
	if _, err := h.sessions.Get(sessionID); err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Str("session_id", sessionID).Msg("websocket upgrade failed")
		return
	}

	h.hub.Attach(sessionID, conn)
	defer func() {
		h.hub.Detach(sessionID)
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
