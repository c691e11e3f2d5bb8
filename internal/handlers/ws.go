package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/vancomm/multisweeper/internal/config"
	"github.com/vancomm/multisweeper/internal/hub"
	"github.com/vancomm/multisweeper/internal/middleware"
)

// WS upgrades authenticated requests and hands the connection to the
// hub for the rest of its lifetime.
type WS struct {
	log *logrus.Logger
	ws  *config.WebSocket
	hub *hub.Hub
}

func NewWS(log *logrus.Logger, ws *config.WebSocket, h *hub.Hub) *WS {
	return &WS{log: log, ws: ws, hub: h}
}

func (h WS) Connect(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PlayerClaims(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		sendJSONOrLog(w, h.log, wrapError(ErrNotLoggedIn))
		return
	}

	conn, err := h.ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Error("unable to upgrade connection")
		return
	}

	h.hub.Serve(conn, claims.Username, claims.Name)
}
