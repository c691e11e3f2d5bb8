// Package room holds the authoritative session state: rooms, their
// members, the active game instance and its ephemeral signals. All
// mutations happen under a per-room mutex; outbound events are handed
// to a [Broadcaster] while the lock is held, so every member observes
// state changes in the same order.
package room

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vancomm/multisweeper/internal/mines"
	"github.com/vancomm/multisweeper/internal/protocol"
	"github.com/vancomm/multisweeper/internal/stats"
	"github.com/vancomm/multisweeper/internal/store"
)

var (
	ErrRoomNotFound   = fmt.Errorf("room not found")
	ErrRoomFull       = fmt.Errorf("room is full")
	ErrNotHost        = fmt.Errorf("requester is not the host")
	ErrNotMember      = fmt.Errorf("requester is not a room member")
	ErrInvalidMode    = fmt.Errorf("invalid mode")
	ErrGameInProgress = fmt.Errorf("a game is in progress")
	ErrNoActiveGame   = fmt.Errorf("no active game")
)

// Broadcaster delivers events to connected sessions. Implementations
// must not block: room methods call it while holding the room lock.
type Broadcaster interface {
	Send(sessionIDs []string, e protocol.Event)
	SendAll(e protocol.Event)
}

type Config struct {
	Capacity  int
	SignalTTL time.Duration
}

func DefaultConfig() Config {
	return Config{Capacity: 4, SignalTTL: 3 * time.Second}
}

// Seat ties an account identity to its current connection. An account
// occupies at most one seat per room; rejoining replaces the prior
// connection.
type Seat struct {
	SessionID string
	Username  string
	Name      string
}

type Room struct {
	mu sync.Mutex

	id           string
	name         string
	host         string // username, may point at a departed member
	originalHost string // creator, may reclaim a vacant host seat

	seats     map[string]Seat   // keyed by username
	bySession map[string]string // session id -> username
	order     []string          // usernames in join order

	mode   string
	custom *mines.Params

	game    *mines.Game
	signals []protocol.Signal

	closed bool

	rnd      *rand.Rand
	cfg      Config
	log      *logrus.Entry
	b        Broadcaster
	recorder *stats.Recorder
	mirror   *Mirror
}

func newRoom(
	id, name string,
	creator Seat,
	rnd *rand.Rand,
	cfg Config,
	log *logrus.Logger,
	b Broadcaster,
	recorder *stats.Recorder,
	mirror *Mirror,
) *Room {
	return &Room{
		id:           id,
		name:         name,
		host:         creator.Username,
		originalHost: creator.Username,
		seats:        map[string]Seat{creator.Username: creator},
		bySession:    map[string]string{creator.SessionID: creator.Username},
		order:        []string{creator.Username},
		mode:         "simple",
		rnd:          rnd,
		cfg:          cfg,
		log:          log.WithField("room", id),
		b:            b,
		recorder:     recorder,
		mirror:       mirror,
	}
}

func (r *Room) ID() string { return r.id }

// announceCreated pushes the initial snapshot to the creator.
func (r *Room) announceCreated() {
	r.mu.Lock()
	defer r.mu.Unlock()

	to := r.sessionIDs()
	r.b.Send(to, protocol.RoomCreated{RoomID: r.id, RoomName: r.name})
	r.b.Send(to, protocol.ModeSet{Mode: r.mode, Custom: r.custom})
	r.b.Send(to, protocol.PlayersUpdate{Players: r.players()})
	r.mirror.Save(r.record())
}

// Join seats a player. A member rejoining under the same username
// evicts their stale seat instead of taking a second one; the capacity
// check therefore only applies to genuinely new members. The joiner
// receives the full room snapshot (mode, roster, any running game with
// its live signals) so a reconnect needs no extra round trips.
func (r *Room) Join(seat Seat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}

	old, rejoining := r.seats[seat.Username]
	if !rejoining && len(r.seats) >= r.cfg.Capacity {
		return ErrRoomFull
	}

	if rejoining {
		delete(r.bySession, old.SessionID)
	} else {
		r.order = append(r.order, seat.Username)
	}
	r.seats[seat.Username] = seat
	r.bySession[seat.SessionID] = seat.Username

	if seat.Username == r.originalHost && !r.hostSeated() {
		r.host = seat.Username
	}

	to := []string{seat.SessionID}
	r.b.Send(to, protocol.RoomJoined{RoomID: r.id, RoomName: r.name})
	r.b.Send(to, protocol.ModeSet{Mode: r.mode, Custom: r.custom})
	if r.game != nil && !r.game.Over {
		sigs := append([]protocol.Signal(nil), r.signals...)
		r.b.Send(to, protocol.NewGameStarted(r.id, r.mode, r.game, sigs))
	}
	r.b.Send(r.sessionIDs(), protocol.PlayersUpdate{Players: r.players()})
	r.mirror.Save(r.record())
	return nil
}

// Leave vacates the seat held by sessionID. The room itself persists
// even when it empties. A departing host abandons any running game:
// the game is marked terminal and remaining members are notified, but
// nothing is booked to anyone's stats.
func (r *Room) Leave(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	username, ok := r.bySession[sessionID]
	if !ok {
		return false
	}
	delete(r.bySession, sessionID)
	if r.seats[username].SessionID != sessionID {
		// stale connection of an already replaced seat
		return false
	}
	delete(r.seats, username)
	for i, u := range r.order {
		if u == username {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if (len(r.seats) == 0 || username == r.host) &&
		r.game != nil && !r.game.Over {
		r.game.Over = true
		if len(r.seats) > 0 {
			r.b.Send(r.sessionIDs(), protocol.NewGameOver(r.game))
		}
	}

	if len(r.seats) > 0 {
		r.b.Send(r.sessionIDs(), protocol.PlayersUpdate{Players: r.players()})
	}
	r.mirror.Save(r.record())
	return true
}

// SetMode selects a preset or validated custom parameters. Host-only,
// and only while no game is running.
func (r *Room) SetMode(sessionID, mode string, custom *mines.Params) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHost(sessionID); err != nil {
		return err
	}
	if r.game != nil && !r.game.Over {
		return ErrGameInProgress
	}

	if mode == ModeCustom {
		if err := validateCustom(custom); err != nil {
			return err
		}
	} else {
		if _, ok := Presets[mode]; !ok {
			return fmt.Errorf("%w: unknown mode %q", ErrInvalidMode, mode)
		}
		custom = nil
	}

	r.mode = mode
	r.custom = custom
	r.b.Send(r.sessionIDs(), protocol.ModeSet{Mode: r.mode, Custom: r.custom})
	r.mirror.Save(r.record())
	return nil
}

// Start generates a fresh game instance and broadcasts it. Host-only.
// A missing or invalid custom triple is an explicit error, never a
// silent fallback to a preset.
func (r *Room) Start(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHost(sessionID); err != nil {
		return err
	}

	var params mines.Params
	if r.mode == ModeCustom {
		if err := validateCustom(r.custom); err != nil {
			return err
		}
		params = *r.custom
	} else {
		params = Presets[r.mode]
	}

	grid, err := mines.Generate(params, r.rnd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMode, err)
	}
	r.game = mines.NewGame(grid)
	r.signals = nil

	r.b.Send(r.sessionIDs(), protocol.NewGameStarted(r.id, r.mode, r.game, nil))
	r.mirror.Save(r.record())
	return nil
}

// Restart resets the masks and timer of the existing game instance,
// keeping the same mine layout. Host-only.
func (r *Room) Restart(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHost(sessionID); err != nil {
		return err
	}
	if r.game == nil {
		return ErrNoActiveGame
	}

	r.game.Restart()
	r.signals = nil

	r.b.Send(r.sessionIDs(), protocol.GameRestarted{
		StartTime: r.game.StartedAt.UnixMilli(),
		Revealed:  r.game.RevealedRows(),
		Flagged:   r.game.FlagRows(),
	})
	r.mirror.Save(r.record())
	return nil
}

// Reveal opens a cell on behalf of a member. flood reflects the
// requester's auto-reveal preference. Reports whether the game ended.
func (r *Room) Reveal(sessionID string, row, col int, flood bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.canPlay(sessionID) {
		return false
	}
	res := r.game.Reveal(row, col, flood)
	if !res.Changed {
		return false
	}
	if r.game.Over {
		r.finish()
		return true
	}
	r.b.Send(r.sessionIDs(), protocol.NewBoardUpdate(r.game))
	return false
}

// Chord opens the unflagged neighbors of a satisfied numbered cell.
// A flag-count mismatch is reported to the requester alone. Reports
// whether the game ended.
func (r *Room) Chord(sessionID string, row, col int, flood bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.canPlay(sessionID) {
		return false
	}
	res := r.game.Chord(row, col, flood)
	if res.Mismatch {
		r.b.Send([]string{sessionID}, protocol.ChordFail{
			Row: row, Col: col, Reason: "flag count does not match",
		})
		return false
	}
	if !res.Changed {
		return false
	}
	if r.game.Over {
		r.finish()
		return true
	}
	r.b.Send(r.sessionIDs(), protocol.NewBoardUpdate(r.game))
	return false
}

// ToggleFlag cycles the mark on a covered cell and republishes the
// advisory mines-left counter.
func (r *Room) ToggleFlag(sessionID string, row, col int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.canPlay(sessionID) {
		return
	}
	state, ok := r.game.ToggleFlag(row, col)
	if !ok {
		return
	}
	to := r.sessionIDs()
	r.b.Send(to, protocol.FlagUpdate{Row: row, Col: col, State: state})
	r.b.Send(to, protocol.MinesLeftUpdate{Count: r.game.MinesLeft()})
}

var signalTypes = map[string]bool{
	"help":     true,
	"onMyWay":  true,
	"avoid":    true,
	"question": true,
}

// AddSignal attaches an ephemeral advisory marker to a cell. Signals
// never touch game state and remove themselves after the configured
// TTL.
func (r *Room) AddSignal(sessionID, signalType string, row, col int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	username, ok := r.bySession[sessionID]
	if !ok || r.game == nil || r.game.Over {
		return
	}
	if !signalTypes[signalType] || !r.game.Grid.InBounds(row, col) {
		return
	}

	sig := protocol.Signal{
		ID:        uuid.NewString(),
		Type:      signalType,
		Row:       row,
		Col:       col,
		From:      username,
		ExpiresAt: time.Now().Add(r.cfg.SignalTTL).UnixMilli(),
	}
	r.signals = append(r.signals, sig)
	r.b.Send(r.sessionIDs(), sig)

	time.AfterFunc(r.cfg.SignalTTL, func() {
		r.expireSignal(sig.ID)
	})
}

// expireSignal is idempotent: a signal already dropped by a restart or
// a new game simply is not found.
func (r *Room) expireSignal(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, sig := range r.signals {
		if sig.ID == id {
			r.signals = append(r.signals[:i], r.signals[i+1:]...)
			r.b.Send(r.sessionIDs(), protocol.SignalExpired{ID: id})
			return
		}
	}
}

// Summary renders the room for lobby listings.
func (r *Room) Summary() protocol.RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	hostName := "Unknown"
	if seat, ok := r.seats[r.host]; ok {
		hostName = seat.Name
	}
	return protocol.RoomSummary{
		ID:           r.id,
		Name:         r.name,
		Host:         hostName,
		HostUsername: r.host,
		Players:      len(r.seats),
		Mode:         describeMode(r.mode, r.custom),
		Status:       r.status(),
	}
}

// close notifies members and refuses any further joins. Host-only;
// called by the registry, which also drops the room from its table.
func (r *Room) close(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHost(sessionID); err != nil {
		return err
	}
	r.closed = true
	r.b.Send(r.sessionIDs(), protocol.RoomDeleted{RoomID: r.id})
	return nil
}

// finish broadcasts the terminal state and books the result for every
// member seated at that moment. Callers hold the lock.
func (r *Room) finish() {
	r.b.Send(r.sessionIDs(), protocol.NewGameOver(r.game))
	r.recorder.Record(r.usernames(), r.mode, r.game.Won, r.game.Elapsed())
	r.mirror.Save(r.record())
}

// canPlay reports whether sessionID belongs to a member and a game is
// running. Callers hold the lock. Play actions from outsiders or with
// no running game are silently dropped.
func (r *Room) canPlay(sessionID string) bool {
	_, ok := r.bySession[sessionID]
	return ok && r.game != nil && !r.game.Over
}

func (r *Room) requireHost(sessionID string) error {
	username, ok := r.bySession[sessionID]
	if !ok {
		return ErrNotMember
	}
	if username != r.host {
		return ErrNotHost
	}
	return nil
}

func (r *Room) hostSeated() bool {
	_, ok := r.seats[r.host]
	return r.host != "" && ok
}

func (r *Room) status() string {
	if r.game != nil && !r.game.Over {
		return "Playing"
	}
	return "Waiting"
}

func (r *Room) sessionIDs() []string {
	ids := make([]string, 0, len(r.seats))
	for _, username := range r.order {
		ids = append(ids, r.seats[username].SessionID)
	}
	return ids
}

func (r *Room) usernames() []string {
	usernames := make([]string, len(r.order))
	copy(usernames, r.order)
	return usernames
}

func (r *Room) players() []protocol.PlayerInfo {
	players := make([]protocol.PlayerInfo, 0, len(r.seats))
	for _, username := range r.order {
		seat := r.seats[username]
		players = append(players, protocol.PlayerInfo{
			Username: seat.Username,
			Name:     seat.Name,
			IsHost:   seat.Username == r.host,
		})
	}
	return players
}

func (r *Room) record() store.LobbyRecord {
	return store.LobbyRecord{
		ID:      r.id,
		Name:    r.name,
		Host:    r.host,
		Players: r.usernames(),
		Mode:    describeMode(r.mode, r.custom),
		Status:  r.status(),
	}
}
