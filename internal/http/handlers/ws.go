package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"

	"service-dispatch/internal/logx"
	"service-dispatch/internal/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WSHandler upgrades courier connections and parks them in the session
// registry so dispatch can push offers directly.
type WSHandler struct {
	registry *notify.Registry
	log      logx.Logger
}

// NewWSHandler wires the session registry into an HTTP handler.
func NewWSHandler(registry *notify.Registry, log logx.Logger) *WSHandler {
	return &WSHandler{registry: registry, log: log}
}

// Connect handles GET /ws/couriers/{id}.
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid id")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		h.log.Debug("websocket upgrade failed", logx.Any("error", err))
		return
	}

	h.registry.Register(id, conn)
	h.log.Info("courier connected", logx.Int64("courier_id", id))

	// reads only detect disconnect; couriers answer offers over HTTP
	go func() {
		defer func() {
			h.registry.Unregister(id, conn)
			_ = conn.Close()
			h.log.Info("courier disconnected", logx.Int64("courier_id", id))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
