package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Session is one authenticated websocket connection. Outbound events
// go through a buffered channel drained by a single writer goroutine,
// so broadcasts never write to the socket concurrently.
type Session struct {
	ID       string
	Username string
	Name     string

	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func newSession(username, name string, conn *websocket.Conn) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Username: username,
		Name:     name,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}
}

// enqueue hands a payload to the writer goroutine. A full buffer drops
// the payload so a slow reader cannot stall a room broadcast.
func (s *Session) enqueue(payload []byte) bool {
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

func (s *Session) closeSend() {
	s.closeOnce.Do(func() { close(s.send) })
}

func (s *Session) writePump(log *logrus.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.WithField("session", s.ID).WithError(err).Debug("write failed")
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
