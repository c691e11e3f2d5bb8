// Package hub owns the websocket transport: it tracks connected
// sessions, decodes client actions, dispatches them to the room
// registry and fans events back out. It implements room.Broadcaster,
// so room code never touches a socket. Lock order is strict: room
// locks may be held when the hub's session table is read, never the
// other way around.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/vancomm/multisweeper/internal/metrics"
	"github.com/vancomm/multisweeper/internal/protocol"
	"github.com/vancomm/multisweeper/internal/room"
	"github.com/vancomm/multisweeper/internal/store"
)

type Hub struct {
	log      *logrus.Logger
	accounts store.AccountStore
	metrics  *metrics.Metrics
	registry *room.Registry

	mu       sync.RWMutex
	sessions map[string]*Session
}

func New(log *logrus.Logger, accounts store.AccountStore, m *metrics.Metrics) *Hub {
	return &Hub{
		log:      log,
		accounts: accounts,
		metrics:  m,
		sessions: make(map[string]*Session),
	}
}

// AttachRegistry breaks the construction cycle: the registry needs the
// hub as its broadcaster, the hub needs the registry for dispatch.
func (h *Hub) AttachRegistry(reg *room.Registry) {
	h.registry = reg
}

// Send implements room.Broadcaster for a known set of sessions.
func (h *Hub) Send(sessionIDs []string, e protocol.Event) {
	payload, err := protocol.EncodeEvent(e)
	if err != nil {
		h.log.WithField("event", e.EventType()).WithError(err).
			Error("unable to encode event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range sessionIDs {
		s, ok := h.sessions[id]
		if !ok {
			continue
		}
		if !s.enqueue(payload) {
			h.log.WithFields(logrus.Fields{
				"session": id,
				"event":   e.EventType(),
			}).Warn("send buffer full, event dropped")
			continue
		}
		h.metrics.EventsSent.Inc()
	}
}

// SendAll implements room.Broadcaster for every connected session.
func (h *Hub) SendAll(e protocol.Event) {
	payload, err := protocol.EncodeEvent(e)
	if err != nil {
		h.log.WithField("event", e.EventType()).WithError(err).
			Error("unable to encode event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.sessions {
		if s.enqueue(payload) {
			h.metrics.EventsSent.Inc()
		}
	}
}

// Serve runs a freshly upgraded connection until it closes. Blocks for
// the lifetime of the connection.
func (h *Hub) Serve(conn *websocket.Conn, username, name string) {
	s := newSession(username, name, conn)
	h.register(s)
	go s.writePump(h.log)

	h.sendTo(s, protocol.LobbyList{Rooms: h.registry.Summaries()})
	h.readPump(s)
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s.ID] = s
	n := len(h.sessions)
	h.mu.Unlock()

	h.metrics.SessionsOpen.Set(float64(n))
	h.log.WithFields(logrus.Fields{
		"session":  s.ID,
		"username": s.Username,
	}).Info("session connected")
}

func (h *Hub) readPump(s *Session) {
	defer h.drop(s)

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err, websocket.CloseNormalClosure, websocket.CloseGoingAway,
			) {
				h.log.WithField("session", s.ID).WithError(err).
					Debug("abnormal websocket close")
			}
			return
		}

		action, err := protocol.DecodeAction(raw)
		if err != nil {
			h.log.WithField("session", s.ID).WithError(err).
				Warn("dropping malformed action")
			continue
		}
		h.metrics.ActionsTotal.WithLabelValues(protocol.ActionType(action)).Inc()
		h.dispatch(s, action)
	}
}

func (h *Hub) drop(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.ID)
	n := len(h.sessions)
	h.mu.Unlock()

	h.metrics.SessionsOpen.Set(float64(n))
	s.closeSend()
	s.conn.Close()

	if h.registry.DropSession(s.ID) {
		h.broadcastLobby()
	}
	h.log.WithField("session", s.ID).Info("session disconnected")
}

// dispatch routes one decoded action. The switch is exhaustive over
// the action union; adding an action type without a case here is a
// compile-time-visible omission.
func (h *Hub) dispatch(s *Session, action protocol.Action) {
	seat := room.Seat{SessionID: s.ID, Username: s.Username, Name: s.Name}

	switch a := action.(type) {
	case *protocol.CreateRoom:
		h.registry.Create(seat, a.Name)
		h.roomsChanged()

	case *protocol.JoinRoom:
		r, ok := h.registry.Get(a.RoomID)
		if !ok {
			h.sendTo(s, protocol.JoinError{Reason: "room not found"})
			return
		}
		if err := r.Join(seat); err != nil {
			h.sendTo(s, protocol.JoinError{Reason: err.Error()})
			return
		}
		h.broadcastLobby()

	case *protocol.LeaveRoom:
		if r, ok := h.registry.Get(a.RoomID); ok && r.Leave(s.ID) {
			h.broadcastLobby()
		}

	case *protocol.DeleteRoom:
		if err := h.registry.Delete(a.RoomID, s.ID); err != nil {
			h.logRejected(s, "deleteRoom", err)
			return
		}
		h.roomsChanged()

	case *protocol.SetMode:
		r, ok := h.registry.Get(a.RoomID)
		if !ok {
			return
		}
		if err := r.SetMode(s.ID, a.Mode, a.Custom); err != nil {
			h.logRejected(s, "setMode", err)
			h.sendTo(s, protocol.ModeError{Reason: err.Error()})
			return
		}
		h.broadcastLobby()

	case *protocol.StartGame:
		r, ok := h.registry.Get(a.RoomID)
		if !ok {
			return
		}
		if err := r.Start(s.ID); err != nil {
			h.logRejected(s, "startGame", err)
			h.sendTo(s, protocol.StartError{Reason: err.Error()})
			return
		}
		h.broadcastLobby()

	case *protocol.RestartGame:
		r, ok := h.registry.Get(a.RoomID)
		if !ok {
			return
		}
		if err := r.Restart(s.ID); err != nil {
			h.logRejected(s, "restartGame", err)
			h.sendTo(s, protocol.StartError{Reason: err.Error()})
			return
		}
		h.broadcastLobby()

	case *protocol.Reveal:
		if r, ok := h.registry.Get(a.RoomID); ok {
			if r.Reveal(s.ID, a.Row, a.Col, h.floodFor(s.Username)) {
				h.broadcastLobby()
			}
		}

	case *protocol.ToggleFlag:
		if r, ok := h.registry.Get(a.RoomID); ok {
			r.ToggleFlag(s.ID, a.Row, a.Col)
		}

	case *protocol.Chord:
		if r, ok := h.registry.Get(a.RoomID); ok {
			if r.Chord(s.ID, a.Row, a.Col, h.floodFor(s.Username)) {
				h.broadcastLobby()
			}
		}

	case *protocol.SendSignal:
		if r, ok := h.registry.Get(a.RoomID); ok {
			r.AddSignal(s.ID, a.Type, a.Row, a.Col)
		}
	}
}

// floodFor reads the requester's auto-reveal preference. Store
// failures fall back to the default so play is never blocked on
// persistence.
func (h *Hub) floodFor(username string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	settings, err := h.accounts.Settings(ctx, username)
	if err != nil {
		return store.DefaultSettings().AutoRevealBlank
	}
	return settings.AutoRevealBlank
}

func (h *Hub) sendTo(s *Session, e protocol.Event) {
	h.Send([]string{s.ID}, e)
}

func (h *Hub) broadcastLobby() {
	h.SendAll(protocol.LobbyList{Rooms: h.registry.Summaries()})
}

func (h *Hub) roomsChanged() {
	h.broadcastLobby()
	h.metrics.RoomsOpen.Set(float64(h.registry.Count()))
}

func (h *Hub) logRejected(s *Session, action string, err error) {
	h.log.WithFields(logrus.Fields{
		"session":  s.ID,
		"username": s.Username,
		"action":   action,
	}).WithError(err).Debug("action rejected")
}
