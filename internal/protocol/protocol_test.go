package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vancomm/multisweeper/internal/mines"
)

func TestDecodeAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want Action
	}{
		{
			name: "reveal",
			raw:  `{"type":"reveal","data":{"room":"ABC123","r":3,"c":4}}`,
			want: &Reveal{RoomID: "ABC123", Row: 3, Col: 4},
		},
		{
			name: "flag",
			raw:  `{"type":"flag","data":{"room":"ABC123","r":0,"c":0}}`,
			want: &ToggleFlag{RoomID: "ABC123"},
		},
		{
			name: "chord",
			raw:  `{"type":"chord","data":{"room":"ABC123","r":1,"c":2}}`,
			want: &Chord{RoomID: "ABC123", Row: 1, Col: 2},
		},
		{
			name: "create room",
			raw:  `{"type":"createRoom","data":{"name":"My Room"}}`,
			want: &CreateRoom{Name: "My Room"},
		},
		{
			name: "join room",
			raw:  `{"type":"joinRoom","data":{"room":"abc123"}}`,
			want: &JoinRoom{RoomID: "abc123"},
		},
		{
			name: "set preset mode",
			raw:  `{"type":"setMode","data":{"room":"ABC123","mode":"expert"}}`,
			want: &SetMode{RoomID: "ABC123", Mode: "expert"},
		},
		{
			name: "set custom mode",
			raw:  `{"type":"setMode","data":{"room":"ABC123","mode":"custom","custom":{"w":20,"h":10,"m":30}}}`,
			want: &SetMode{
				RoomID: "ABC123",
				Mode:   "custom",
				Custom: &mines.Params{Width: 20, Height: 10, MineCount: 30},
			},
		},
		{
			name: "send signal",
			raw:  `{"type":"sendSignal","data":{"room":"ABC123","signal":"help","r":5,"c":6}}`,
			want: &SendSignal{RoomID: "ABC123", Type: "help", Row: 5, Col: 6},
		},
		{
			name: "start game without data",
			raw:  `{"type":"startGame","data":{"room":"ABC123"}}`,
			want: &StartGame{RoomID: "ABC123"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			action, err := DecodeAction([]byte(test.raw))
			require.NoError(t, err)
			assert.Equal(t, test.want, action)
		})
	}
}

func TestDecodeActionRejectsUnknownType(t *testing.T) {
	t.Parallel()

	_, err := DecodeAction([]byte(`{"type":"hack","data":{}}`))
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = DecodeAction([]byte(`not json`))
	assert.Error(t, err)
}

func TestEncodeEventEnvelope(t *testing.T) {
	t.Parallel()

	raw, err := EncodeEvent(MinesLeftUpdate{Count: -2})
	require.NoError(t, err)

	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "minesLeftUpdate", env.Type)
	assert.JSONEq(t, `{"count":-2}`, string(env.Data))
}

func TestMaskedBoardHidesCoveredCells(t *testing.T) {
	t.Parallel()

	grid := mines.Grid{Width: 2, Height: 1, Cells: []int8{mines.Mine, 1}}
	game := mines.NewGame(grid)
	game.Reveal(0, 1, true)

	board := MaskedBoard(game)
	require.Len(t, board, 1)
	assert.Nil(t, board[0][0], "covered mine must not be disclosed")
	require.NotNil(t, board[0][1])
	assert.Equal(t, int8(1), *board[0][1])
}
