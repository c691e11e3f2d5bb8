package hub

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vancomm/multisweeper/internal/metrics"
	"github.com/vancomm/multisweeper/internal/protocol"
	"github.com/vancomm/multisweeper/internal/room"
	"github.com/vancomm/multisweeper/internal/stats"
	"github.com/vancomm/multisweeper/internal/store"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func drain(t *testing.T, s *Session) []envelope {
	t.Helper()
	var out []envelope
	for {
		select {
		case payload := <-s.send:
			var env envelope
			require.NoError(t, json.Unmarshal(payload, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func find(envs []envelope, eventType string) (envelope, bool) {
	for _, env := range envs {
		if env.Type == eventType {
			return env, true
		}
	}
	return envelope{}, false
}

func mustFind(t *testing.T, envs []envelope, eventType string) envelope {
	t.Helper()
	env, ok := find(envs, eventType)
	require.True(t, ok, "expected a %q event, have %v", eventType, envs)
	return env
}

func setupHub(t *testing.T) *Hub {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	h := New(log, fs, metrics.New("test"))
	reg := room.NewRegistry(
		log, h,
		stats.NewRecorder(log, fs),
		room.NewMirror(log, fs),
		room.DefaultConfig(),
	)
	h.AttachRegistry(reg)
	return h
}

func connect(h *Hub, username string) *Session {
	s := newSession(username, username, nil)
	h.register(s)
	return s
}

func TestDispatchCreateAndJoin(t *testing.T) {
	t.Parallel()

	h := setupHub(t)
	ann := connect(h, "ann")
	bob := connect(h, "bob")

	h.dispatch(ann, &protocol.CreateRoom{Name: "the pit"})

	annEvents := drain(t, ann)
	created := mustFind(t, annEvents, "roomCreated")
	var rc protocol.RoomCreated
	require.NoError(t, json.Unmarshal(created.Data, &rc))
	assert.Equal(t, "the pit", rc.RoomName)
	require.NotEmpty(t, rc.RoomID)
	mustFind(t, annEvents, "modeSet")
	mustFind(t, annEvents, "playersUpdate")
	mustFind(t, annEvents, "lobbyList")

	// everyone connected sees the new room in the lobby
	lobby := mustFind(t, drain(t, bob), "lobbyList")
	var list protocol.LobbyList
	require.NoError(t, json.Unmarshal(lobby.Data, &list))
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, rc.RoomID, list.Rooms[0].ID)

	h.dispatch(bob, &protocol.JoinRoom{RoomID: rc.RoomID})
	bobEvents := drain(t, bob)
	mustFind(t, bobEvents, "roomJoined")
	mustFind(t, bobEvents, "playersUpdate")

	roster := mustFind(t, drain(t, ann), "playersUpdate")
	var update protocol.PlayersUpdate
	require.NoError(t, json.Unmarshal(roster.Data, &update))
	assert.Len(t, update.Players, 2)
}

func TestDispatchJoinUnknownRoom(t *testing.T) {
	t.Parallel()

	h := setupHub(t)
	ann := connect(h, "ann")

	h.dispatch(ann, &protocol.JoinRoom{RoomID: "NOSUCH"})
	mustFind(t, drain(t, ann), "joinError")
}

func TestDispatchJoinFullRoom(t *testing.T) {
	t.Parallel()

	h := setupHub(t)
	ann := connect(h, "ann")
	h.dispatch(ann, &protocol.CreateRoom{})

	created := mustFind(t, drain(t, ann), "roomCreated")
	var rc protocol.RoomCreated
	require.NoError(t, json.Unmarshal(created.Data, &rc))

	for _, u := range []string{"bob", "cat", "dan"} {
		h.dispatch(connect(h, u), &protocol.JoinRoom{RoomID: rc.RoomID})
	}

	eve := connect(h, "eve")
	h.dispatch(eve, &protocol.JoinRoom{RoomID: rc.RoomID})
	errEvent := mustFind(t, drain(t, eve), "joinError")
	var joinErr protocol.JoinError
	require.NoError(t, json.Unmarshal(errEvent.Data, &joinErr))
	assert.Contains(t, joinErr.Reason, "full")
}

func TestDispatchGameFlow(t *testing.T) {
	t.Parallel()

	h := setupHub(t)
	ann := connect(h, "ann")
	h.dispatch(ann, &protocol.CreateRoom{})
	created := mustFind(t, drain(t, ann), "roomCreated")
	var rc protocol.RoomCreated
	require.NoError(t, json.Unmarshal(created.Data, &rc))
	roomID := rc.RoomID

	// non-host actions on someone else's room are rejected or ignored
	bob := connect(h, "bob")
	h.dispatch(bob, &protocol.JoinRoom{RoomID: roomID})
	drain(t, bob)
	h.dispatch(bob, &protocol.StartGame{RoomID: roomID})
	mustFind(t, drain(t, bob), "startError")

	h.dispatch(ann, &protocol.SetMode{RoomID: roomID, Mode: "classic"})
	mustFind(t, drain(t, ann), "modeSet")

	h.dispatch(ann, &protocol.StartGame{RoomID: roomID})
	started := mustFind(t, drain(t, ann), "gameStarted")
	var game protocol.GameStarted
	require.NoError(t, json.Unmarshal(started.Data, &game))
	assert.Equal(t, 8, game.Params.Width)
	assert.Equal(t, 8, game.Params.Height)
	mustFind(t, drain(t, bob), "gameStarted")

	h.dispatch(bob, &protocol.ToggleFlag{RoomID: roomID, Row: 0, Col: 0})
	bobEvents := drain(t, bob)
	mustFind(t, bobEvents, "flagUpdate")
	left := mustFind(t, bobEvents, "minesLeftUpdate")
	var minesLeft protocol.MinesLeftUpdate
	require.NoError(t, json.Unmarshal(left.Data, &minesLeft))
	assert.Equal(t, 9, minesLeft.Count)

	h.dispatch(bob, &protocol.SendSignal{
		RoomID: roomID, Type: "onMyWay", Row: 1, Col: 1,
	})
	signal := mustFind(t, drain(t, ann), "signalReceived")
	var sig protocol.Signal
	require.NoError(t, json.Unmarshal(signal.Data, &sig))
	assert.Equal(t, "bob", sig.From)

	h.dispatch(ann, &protocol.RestartGame{RoomID: roomID})
	mustFind(t, drain(t, ann), "gameRestarted")
}

func TestDispatchDeleteRoom(t *testing.T) {
	t.Parallel()

	h := setupHub(t)
	ann := connect(h, "ann")
	h.dispatch(ann, &protocol.CreateRoom{})
	created := mustFind(t, drain(t, ann), "roomCreated")
	var rc protocol.RoomCreated
	require.NoError(t, json.Unmarshal(created.Data, &rc))

	bob := connect(h, "bob")
	h.dispatch(bob, &protocol.JoinRoom{RoomID: rc.RoomID})
	drain(t, bob)

	// only the host may delete
	h.dispatch(bob, &protocol.DeleteRoom{RoomID: rc.RoomID})
	_, found := find(drain(t, bob), "roomDeleted")
	assert.False(t, found)

	h.dispatch(ann, &protocol.DeleteRoom{RoomID: rc.RoomID})
	mustFind(t, drain(t, bob), "roomDeleted")

	lobby := mustFind(t, drain(t, ann), "lobbyList")
	var list protocol.LobbyList
	require.NoError(t, json.Unmarshal(lobby.Data, &list))
	assert.Empty(t, list.Rooms)
}

func TestSendSkipsUnknownAndFullSessions(t *testing.T) {
	t.Parallel()

	h := setupHub(t)
	ann := connect(h, "ann")

	for range sendBuffer {
		require.True(t, ann.enqueue([]byte("{}")))
	}

	// neither the saturated session nor the unknown id may panic or block
	h.Send([]string{ann.ID, "ghost"}, protocol.RoomDeleted{RoomID: "X"})
	assert.Len(t, ann.send, sendBuffer)
}

func TestSendAllReachesEverySession(t *testing.T) {
	t.Parallel()

	h := setupHub(t)
	ann := connect(h, "ann")
	bob := connect(h, "bob")

	h.SendAll(protocol.RoomDeleted{RoomID: "X"})
	mustFind(t, drain(t, ann), "roomDeleted")
	mustFind(t, drain(t, bob), "roomDeleted")
}
