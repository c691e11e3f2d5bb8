package app

import (
	"net/http"

	"github.com/vancomm/multisweeper/internal/config"
	"github.com/vancomm/multisweeper/internal/handlers"
	"github.com/vancomm/multisweeper/internal/hub"
	"github.com/vancomm/multisweeper/internal/metrics"
	"github.com/vancomm/multisweeper/internal/store"
)

func (a *App) loadRoutes(
	jwt *config.JWT,
	ws *config.WebSocket,
	accounts store.AccountStore,
	h *hub.Hub,
	m *metrics.Metrics,
) {
	auth := handlers.NewAuth(a.log, accounts, jwt)
	player := handlers.NewPlayer(a.log, accounts)
	socket := handlers.NewWS(a.log, ws, h)

	a.router.HandleFunc("POST /register", auth.Register)
	a.router.HandleFunc("POST /login", auth.Login)
	a.router.HandleFunc("GET /stats/{username}", player.Stats)
	a.router.HandleFunc("GET /settings", player.Settings)
	a.router.HandleFunc("PUT /settings", player.SaveSettings)
	a.router.HandleFunc("GET /ws", socket.Connect)
	a.router.Handle("GET /metrics", m.Handler())
	a.router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.SendJSON(w, map[string]string{"status": "ok"})
	})
}
