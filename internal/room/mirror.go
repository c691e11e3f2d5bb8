package room

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vancomm/multisweeper/internal/store"
)

// Mirror reflects live rooms into the lobby store so listings survive
// a restart. Writes are fire-and-forget: in-memory state stays
// authoritative and store failures are logged and swallowed. The mutex
// keeps concurrent read-modify-write cycles from clobbering each other
// within this process.
type Mirror struct {
	mu    sync.Mutex
	log   *logrus.Logger
	store store.LobbyStore
}

func NewMirror(log *logrus.Logger, s store.LobbyStore) *Mirror {
	return &Mirror{log: log, store: s}
}

func (m *Mirror) Save(rec store.LobbyRecord) {
	go m.update(func(lobbies map[string]store.LobbyRecord) {
		lobbies[rec.ID] = rec
	})
}

func (m *Mirror) Delete(id string) {
	go m.update(func(lobbies map[string]store.LobbyRecord) {
		delete(lobbies, id)
	})
}

// Clear wipes the mirror; called on shutdown since none of the rooms
// survive the process.
func (m *Mirror) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.store.WriteLobbies(ctx, map[string]store.LobbyRecord{})
	if err != nil {
		m.log.WithError(err).Warn("unable to clear lobby mirror")
	}
}

func (m *Mirror) update(mutate func(map[string]store.LobbyRecord)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lobbies, err := m.store.ReadLobbies(ctx)
	if err != nil {
		m.log.WithError(err).Warn("unable to read lobby mirror")
		return
	}
	mutate(lobbies)
	if err := m.store.WriteLobbies(ctx, lobbies); err != nil {
		m.log.WithError(err).Warn("unable to write lobby mirror")
	}
}
