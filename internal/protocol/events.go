package protocol

import (
	"encoding/json"
	"time"

	"github.com/vancomm/multisweeper/internal/mines"
)

// Event is a server push. Events are encoded as
// {"type": "...", "data": {...}} mirroring the action envelope.
type Event interface {
	EventType() string
}

func EncodeEvent(e Event) ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Data Event  `json:"data"`
	}{e.EventType(), e})
}

type RoomSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Host         string `json:"host"`
	HostUsername string `json:"hostUsername"`
	Players      int    `json:"players"`
	Mode         string `json:"mode"`
	Status       string `json:"status"`
}

type LobbyList struct {
	Rooms []RoomSummary `json:"rooms"`
}

type RoomCreated struct {
	RoomID   string `json:"room"`
	RoomName string `json:"name"`
}

type RoomJoined struct {
	RoomID   string `json:"room"`
	RoomName string `json:"name"`
}

type JoinError struct {
	Reason string `json:"reason"`
}

type StartError struct {
	Reason string `json:"reason"`
}

type ModeError struct {
	Reason string `json:"reason"`
}

type PlayerInfo struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	IsHost   bool   `json:"isHost"`
}

type PlayersUpdate struct {
	Players []PlayerInfo `json:"players"`
}

type ModeSet struct {
	Mode   string        `json:"mode"`
	Custom *mines.Params `json:"custom,omitempty"`
}

// GameStarted carries the initial board state. Grid values are masked:
// only revealed cells disclose their number, so late joiners cannot
// inspect hidden mines.
type GameStarted struct {
	RoomID    string              `json:"room"`
	Mode      string              `json:"mode"`
	Params    mines.Params        `json:"params"`
	StartTime int64               `json:"startTime"`
	Board     [][]*int8           `json:"board"`
	Revealed  [][]bool            `json:"revealed"`
	Flagged   [][]mines.FlagState `json:"flagged"`
	Signals   []Signal            `json:"signals"`
}

type GameRestarted struct {
	StartTime int64               `json:"startTime"`
	Revealed  [][]bool            `json:"revealed"`
	Flagged   [][]mines.FlagState `json:"flagged"`
}

type BoardUpdate struct {
	Board    [][]*int8           `json:"board"`
	Revealed [][]bool            `json:"revealed"`
	Flagged  [][]mines.FlagState `json:"flagged"`
}

type FlagUpdate struct {
	Row   int             `json:"r"`
	Col   int             `json:"c"`
	State mines.FlagState `json:"state"`
}

type MinesLeftUpdate struct {
	Count int `json:"count"`
}

// GameOver discloses the full grid; at this point there is nothing
// left to hide.
type GameOver struct {
	Winner   bool        `json:"winner"`
	TimeMs   *int64      `json:"time,omitempty"`
	Bomb     *mines.Cell `json:"bomb,omitempty"`
	Board    [][]int8    `json:"board"`
	Revealed [][]bool    `json:"revealed"`
}

type ChordFail struct {
	Row    int    `json:"r"`
	Col    int    `json:"c"`
	Reason string `json:"reason"`
}

type Signal struct {
	ID        string `json:"id"`
	Type      string `json:"signal"`
	Row       int    `json:"r"`
	Col       int    `json:"c"`
	From      string `json:"from"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (s Signal) EventType() string { return "signalReceived" }

type SignalExpired struct {
	ID string `json:"id"`
}

type SignalsSnapshot struct {
	Signals []Signal `json:"signals"`
}

type RoomDeleted struct {
	RoomID string `json:"room"`
}

func (LobbyList) EventType() string       { return "lobbyList" }
func (RoomCreated) EventType() string     { return "roomCreated" }
func (RoomJoined) EventType() string      { return "roomJoined" }
func (JoinError) EventType() string       { return "joinError" }
func (StartError) EventType() string      { return "startError" }
func (ModeError) EventType() string       { return "modeError" }
func (PlayersUpdate) EventType() string   { return "playersUpdate" }
func (ModeSet) EventType() string         { return "modeSet" }
func (GameStarted) EventType() string     { return "gameStarted" }
func (GameRestarted) EventType() string   { return "gameRestarted" }
func (BoardUpdate) EventType() string     { return "boardUpdate" }
func (FlagUpdate) EventType() string      { return "flagUpdate" }
func (MinesLeftUpdate) EventType() string { return "minesLeftUpdate" }
func (GameOver) EventType() string        { return "gameOver" }
func (ChordFail) EventType() string       { return "chordFail" }
func (SignalExpired) EventType() string   { return "signalExpired" }
func (SignalsSnapshot) EventType() string { return "signalsSnapshot" }
func (RoomDeleted) EventType() string     { return "roomDeleted" }

// MaskedBoard discloses grid values for revealed cells only.
func MaskedBoard(g *mines.Game) [][]*int8 {
	rows := make([][]*int8, g.Grid.Height)
	for r := range g.Grid.Height {
		rows[r] = make([]*int8, g.Grid.Width)
		for c := range g.Grid.Width {
			if g.Revealed[r*g.Grid.Width+c] {
				v := g.Grid.At(r, c)
				rows[r][c] = &v
			}
		}
	}
	return rows
}

func NewBoardUpdate(g *mines.Game) BoardUpdate {
	return BoardUpdate{
		Board:    MaskedBoard(g),
		Revealed: g.RevealedRows(),
		Flagged:  g.FlagRows(),
	}
}

func NewGameStarted(roomID, mode string, g *mines.Game, signals []Signal) GameStarted {
	if signals == nil {
		signals = []Signal{}
	}
	return GameStarted{
		RoomID: roomID,
		Mode:   mode,
		Params: mines.Params{
			Width:     g.Grid.Width,
			Height:    g.Grid.Height,
			MineCount: g.MineCount(),
		},
		StartTime: g.StartedAt.UnixMilli(),
		Board:     MaskedBoard(g),
		Revealed:  g.RevealedRows(),
		Flagged:   g.FlagRows(),
		Signals:   signals,
	}
}

func NewGameOver(g *mines.Game) GameOver {
	e := GameOver{
		Winner:   g.Won,
		Bomb:     g.Bomb,
		Board:    g.Grid.Rows(),
		Revealed: g.RevealedRows(),
	}
	if g.Won {
		ms := time.Since(g.StartedAt).Milliseconds()
		e.TimeMs = &ms
	}
	return e
}
