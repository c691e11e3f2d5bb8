// Package store declares the persistence collaborators the session core
// depends on. Both are best-effort mirrors: in-memory state stays
// authoritative and callers log and swallow store errors. The lobby
// store has whole-document read/overwrite semantics with no
// transactional guarantee; concurrent writers race and last writer
// wins.
package store

import (
	"context"
	"fmt"

	"github.com/vancomm/multisweeper/internal/stats"
)

var (
	ErrUsernameTaken   = fmt.Errorf("username taken")
	ErrAccountNotFound = fmt.Errorf("account not found")
)

type Account struct {
	Username     string `json:"-"`
	Name         string `json:"name"`
	PasswordHash []byte `json:"password"`
}

type Settings struct {
	Volume           int    `json:"volume"`
	ShowTimer        bool   `json:"showTimer"`
	EnableAnimations bool   `json:"enableAnimations"`
	AutoRevealBlank  bool   `json:"autoRevealBlank"`
	StatsMode        string `json:"statsMode"`
}

func DefaultSettings() Settings {
	return Settings{
		Volume:           70,
		ShowTimer:        true,
		EnableAnimations: true,
		AutoRevealBlank:  true,
		StatsMode:        "classic",
	}
}

type AccountStore interface {
	CreateAccount(ctx context.Context, username, name string, passwordHash []byte) error
	Account(ctx context.Context, username string) (*Account, error)
	Stats(ctx context.Context, username string) (map[string]stats.PlayerStat, error)
	Settings(ctx context.Context, username string) (Settings, error)
	SaveSettings(ctx context.Context, username string, settings Settings) error
	RecordGameResult(ctx context.Context, username, mode string, won bool, elapsedMs int64) error
}

// LobbyRecord mirrors one room for lobby display continuity. It is
// never consulted for game authority.
type LobbyRecord struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Host    string   `json:"host"`
	Players []string `json:"players"`
	Mode    string   `json:"mode"`
	Status  string   `json:"status"`
}

type LobbyStore interface {
	ReadLobbies(ctx context.Context) (map[string]LobbyRecord, error)
	WriteLobbies(ctx context.Context, lobbies map[string]LobbyRecord) error
}
