package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vancomm/multisweeper/internal/stats"
)

type userRecord struct {
	Name         string                      `json:"name"`
	PasswordHash []byte                      `json:"password"`
	Stats        map[string]stats.PlayerStat `json:"stats"`
	Settings     Settings                    `json:"settings"`
}

// FileStore keeps accounts and the lobby mirror in two JSON documents
// (users.json, lobbies.json) that are read and rewritten whole on every
// operation. Each document is guarded by its own mutex within this
// process; writers from other processes race and last writer wins.
type FileStore struct {
	usersMu     sync.Mutex
	lobbiesMu   sync.Mutex
	usersPath   string
	lobbiesPath string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create data dir: %w", err)
	}
	s := &FileStore{
		usersPath:   filepath.Join(dir, "users.json"),
		lobbiesPath: filepath.Join(dir, "lobbies.json"),
	}
	for _, path := range []string{s.usersPath, s.lobbiesPath} {
		if err := ensureDocument(path); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func ensureDocument(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) || (err == nil && len(data) == 0) {
		return os.WriteFile(path, []byte("{}"), 0o644)
	}
	return err
}

func readDocument[T any](path string) (map[string]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}
	doc := make(map[string]T)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid document %s: %w", path, err)
	}
	return doc, nil
}

func writeDocument[T any](path string, doc map[string]T) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *FileStore) CreateAccount(
	ctx context.Context, username, name string, passwordHash []byte,
) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users, err := readDocument[userRecord](s.usersPath)
	if err != nil {
		return err
	}
	if _, taken := users[username]; taken {
		return ErrUsernameTaken
	}
	users[username] = userRecord{
		Name:         name,
		PasswordHash: passwordHash,
		Stats:        map[string]stats.PlayerStat{},
		Settings:     DefaultSettings(),
	}
	return writeDocument(s.usersPath, users)
}

func (s *FileStore) Account(ctx context.Context, username string) (*Account, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	user, err := s.user(username)
	if err != nil {
		return nil, err
	}
	return &Account{
		Username:     username,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
	}, nil
}

func (s *FileStore) Stats(
	ctx context.Context, username string,
) (map[string]stats.PlayerStat, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	user, err := s.user(username)
	if err != nil {
		return nil, err
	}
	return user.Stats, nil
}

func (s *FileStore) Settings(ctx context.Context, username string) (Settings, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	user, err := s.user(username)
	if err != nil {
		return Settings{}, err
	}
	return user.Settings, nil
}

func (s *FileStore) SaveSettings(
	ctx context.Context, username string, settings Settings,
) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users, err := readDocument[userRecord](s.usersPath)
	if err != nil {
		return err
	}
	user, ok := users[username]
	if !ok {
		return ErrAccountNotFound
	}
	user.Settings = settings
	users[username] = user
	return writeDocument(s.usersPath, users)
}

func (s *FileStore) RecordGameResult(
	ctx context.Context, username, mode string, won bool, elapsedMs int64,
) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users, err := readDocument[userRecord](s.usersPath)
	if err != nil {
		return err
	}
	user, ok := users[username]
	if !ok {
		return ErrAccountNotFound
	}
	if user.Stats == nil {
		user.Stats = map[string]stats.PlayerStat{}
	}
	user.Stats[mode] = user.Stats[mode].Apply(won, elapsedMs)
	users[username] = user
	return writeDocument(s.usersPath, users)
}

// user assumes usersMu is held.
func (s *FileStore) user(username string) (userRecord, error) {
	users, err := readDocument[userRecord](s.usersPath)
	if err != nil {
		return userRecord{}, err
	}
	user, ok := users[username]
	if !ok {
		return userRecord{}, ErrAccountNotFound
	}
	return user, nil
}

func (s *FileStore) ReadLobbies(ctx context.Context) (map[string]LobbyRecord, error) {
	s.lobbiesMu.Lock()
	defer s.lobbiesMu.Unlock()
	return readDocument[LobbyRecord](s.lobbiesPath)
}

func (s *FileStore) WriteLobbies(
	ctx context.Context, lobbies map[string]LobbyRecord,
) error {
	s.lobbiesMu.Lock()
	defer s.lobbiesMu.Unlock()
	return writeDocument(s.lobbiesPath, lobbies)
}
