package room

import (
	"hash/maphash"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vancomm/multisweeper/internal/protocol"
	"github.com/vancomm/multisweeper/internal/stats"
)

const (
	roomIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomIDLength   = 6
)

// Registry owns every live room by identifier. It is the single point
// the transport layer talks to; rooms never reach back into it.
type Registry struct {
	log      *logrus.Logger
	b        Broadcaster
	recorder *stats.Recorder
	mirror   *Mirror
	cfg      Config

	mu    sync.RWMutex
	rooms map[string]*Room
	rnd   *rand.Rand
}

func NewRegistry(
	log *logrus.Logger,
	b Broadcaster,
	recorder *stats.Recorder,
	mirror *Mirror,
	cfg Config,
) *Registry {
	return &Registry{
		log:      log,
		b:        b,
		recorder: recorder,
		mirror:   mirror,
		cfg:      cfg,
		rooms:    make(map[string]*Room),
		rnd:      newRand(),
	}
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(
		new(maphash.Hash).Sum64(), new(maphash.Hash).Sum64(),
	))
}

// Create allocates an unused room code and seats the creator as host.
func (reg *Registry) Create(creator Seat, name string) *Room {
	if strings.TrimSpace(name) == "" {
		name = creator.Name + "'s Room"
	}

	reg.mu.Lock()
	var id string
	for {
		id = reg.generateID()
		if _, taken := reg.rooms[id]; !taken {
			break
		}
	}
	r := newRoom(
		id, name, creator, newRand(),
		reg.cfg, reg.log, reg.b, reg.recorder, reg.mirror,
	)
	reg.rooms[id] = r
	reg.mu.Unlock()

	reg.log.WithFields(logrus.Fields{
		"room": id,
		"host": creator.Username,
	}).Info("room created")

	r.announceCreated()
	return r
}

// generateID assumes reg.mu is held.
func (reg *Registry) generateID() string {
	var b strings.Builder
	for range roomIDLength {
		b.WriteByte(roomIDAlphabet[reg.rnd.IntN(len(roomIDAlphabet))])
	}
	return b.String()
}

// Get looks a room up by code, case-insensitively.
func (reg *Registry) Get(id string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[strings.ToUpper(id)]
	return r, ok
}

// Delete removes a room on behalf of its host, notifying all members.
func (reg *Registry) Delete(id, sessionID string) error {
	r, ok := reg.Get(id)
	if !ok {
		return ErrRoomNotFound
	}
	if err := r.close(sessionID); err != nil {
		return err
	}

	reg.mu.Lock()
	delete(reg.rooms, r.id)
	reg.mu.Unlock()

	reg.mirror.Delete(r.id)
	reg.log.WithField("room", r.id).Info("room deleted")
	return nil
}

// DropSession removes a disconnected session from every room it is
// seated in. Reports whether any roster changed.
func (reg *Registry) DropSession(sessionID string) bool {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	changed := false
	for _, r := range rooms {
		if r.Leave(sessionID) {
			changed = true
		}
	}
	return changed
}

// Summaries lists every room for the lobby, ordered by code.
func (reg *Registry) Summaries() []protocol.RoomSummary {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	summaries := make([]protocol.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, r.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}

func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
