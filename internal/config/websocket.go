package config

import (
	"net/http"

	"github.com/gorilla/websocket"
)

type WebSocket struct {
	Upgrader websocket.Upgrader
}

func NewWebSocket() (*WebSocket, error) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			// cross-origin clients are expected; auth happens via token
			return true
		},
	}

	ws := &WebSocket{
		Upgrader: upgrader,
	}

	return ws, nil
}
