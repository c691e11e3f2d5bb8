// Package protocol defines the typed messages exchanged with clients
// over the websocket transport: a closed union of client actions and a
// closed union of server events. Adding an action extends the union and
// the dispatch switch, both checked at compile time.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/vancomm/multisweeper/internal/mines"
)

// Action is a client request. The concrete types below are the full
// set; the dispatcher switches over them exhaustively.
type Action interface {
	isAction()
}

type CreateRoom struct {
	Name string `json:"name"`
}

type JoinRoom struct {
	RoomID string `json:"room"`
}

type LeaveRoom struct {
	RoomID string `json:"room"`
}

type DeleteRoom struct {
	RoomID string `json:"room"`
}

type SetMode struct {
	RoomID string        `json:"room"`
	Mode   string        `json:"mode"`
	Custom *mines.Params `json:"custom,omitempty"`
}

type StartGame struct {
	RoomID string `json:"room"`
}

type RestartGame struct {
	RoomID string `json:"room"`
}

type Reveal struct {
	RoomID string `json:"room"`
	Row    int    `json:"r"`
	Col    int    `json:"c"`
}

type ToggleFlag struct {
	RoomID string `json:"room"`
	Row    int    `json:"r"`
	Col    int    `json:"c"`
}

type Chord struct {
	RoomID string `json:"room"`
	Row    int    `json:"r"`
	Col    int    `json:"c"`
}

type SendSignal struct {
	RoomID string `json:"room"`
	Type   string `json:"signal"`
	Row    int    `json:"r"`
	Col    int    `json:"c"`
}

func (CreateRoom) isAction()  {}
func (JoinRoom) isAction()    {}
func (LeaveRoom) isAction()   {}
func (DeleteRoom) isAction()  {}
func (SetMode) isAction()     {}
func (StartGame) isAction()   {}
func (RestartGame) isAction() {}
func (Reveal) isAction()      {}
func (ToggleFlag) isAction()  {}
func (Chord) isAction()       {}
func (SendSignal) isAction()  {}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

var ErrUnknownAction = fmt.Errorf("unknown action type")

// DecodeAction parses a client message of the shape
// {"type": "...", "data": {...}} into its concrete action.
func DecodeAction(raw []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed action envelope: %w", err)
	}

	var action Action
	switch env.Type {
	case "createRoom":
		action = &CreateRoom{}
	case "joinRoom":
		action = &JoinRoom{}
	case "leaveRoom":
		action = &LeaveRoom{}
	case "deleteRoom":
		action = &DeleteRoom{}
	case "setMode":
		action = &SetMode{}
	case "startGame":
		action = &StartGame{}
	case "restartGame":
		action = &RestartGame{}
	case "reveal":
		action = &Reveal{}
	case "flag":
		action = &ToggleFlag{}
	case "chord":
		action = &Chord{}
	case "sendSignal":
		action = &SendSignal{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
	}

	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, action); err != nil {
			return nil, fmt.Errorf("malformed %q action: %w", env.Type, err)
		}
	}
	return action, nil
}

// ActionType names an action for logging and metrics.
func ActionType(a Action) string {
	switch a.(type) {
	case *CreateRoom:
		return "createRoom"
	case *JoinRoom:
		return "joinRoom"
	case *LeaveRoom:
		return "leaveRoom"
	case *DeleteRoom:
		return "deleteRoom"
	case *SetMode:
		return "setMode"
	case *StartGame:
		return "startGame"
	case *RestartGame:
		return "restartGame"
	case *Reveal:
		return "reveal"
	case *ToggleFlag:
		return "flag"
	case *Chord:
		return "chord"
	case *SendSignal:
		return "sendSignal"
	default:
		return "unknown"
	}
}
