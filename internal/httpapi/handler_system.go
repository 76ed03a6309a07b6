package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/GreonXpert/netreduction-engine/internal/eventbus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards subscribing to their own client's room are same-origin in
	// production deployments; cross-origin policy is enforced upstream by
	// whatever gateway terminates the public connection.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// subscribe upgrades GET /net-reduction/ws/{clientId} to a websocket and
// joins the caller to that client's event room (internal/eventbus.Bus),
// replaying nothing — delivery is best-effort and forward-only.
func (h *handler) subscribe(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		http.Error(w, "event bus not configured", http.StatusServiceUnavailable)
		return
	}
	clientID := chi.URLParam(r, "clientId")
	var room string
	switch r.URL.Query().Get("scope") {
	case "summaries":
		room = eventbus.SummariesRoom(clientID)
	case "legacy":
		room = eventbus.LegacyClientRoom(clientID)
	default:
		room = eventbus.ClientRoom(clientID)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("httpapi: websocket upgrade failed")
		return
	}

	unregister := h.bus.Register(room, conn)
	defer unregister()

	// The connection is write-only from the server's perspective; still
	// must read to process control frames (ping/pong/close) and notice the
	// client disconnecting.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
