package store

import (
	"context"
	"errors"
	"testing"
)

func setupFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return s
}

func TestFileStoreAccountRoundTrip(t *testing.T) {
	t.Parallel()

	s := setupFileStore(t)
	ctx := context.Background()

	if _, err := s.Account(ctx, "ann"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected not found, have %v", err)
	}

	hash := []byte("$2a$10$fakefakefakefakefakefake")
	if err := s.CreateAccount(ctx, "ann", "Ann", hash); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	if err := s.CreateAccount(ctx, "ann", "Imposter", nil); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected username taken, have %v", err)
	}

	account, err := s.Account(ctx, "ann")
	if err != nil {
		t.Fatalf("failed to fetch account: %v", err)
	}
	if account.Name != "Ann" || string(account.PasswordHash) != string(hash) {
		t.Fatalf("unexpected account %+v", account)
	}

	settings, err := s.Settings(ctx, "ann")
	if err != nil {
		t.Fatalf("failed to fetch settings: %v", err)
	}
	if settings != DefaultSettings() {
		t.Fatalf("new account settings: have %+v, want defaults", settings)
	}
}

func TestFileStoreSaveSettings(t *testing.T) {
	t.Parallel()

	s := setupFileStore(t)
	ctx := context.Background()

	if err := s.CreateAccount(ctx, "ann", "Ann", nil); err != nil {
		t.Fatal(err)
	}

	want := Settings{Volume: 30, AutoRevealBlank: false, StatsMode: "expert"}
	if err := s.SaveSettings(ctx, "ann", want); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}

	have, err := s.Settings(ctx, "ann")
	if err != nil {
		t.Fatal(err)
	}
	if have != want {
		t.Fatalf("settings: have %+v, want %+v", have, want)
	}

	if err := s.SaveSettings(ctx, "ghost", want); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected not found, have %v", err)
	}
}

func TestFileStoreRecordGameResult(t *testing.T) {
	t.Parallel()

	s := setupFileStore(t)
	ctx := context.Background()

	if err := s.CreateAccount(ctx, "ann", "Ann", nil); err != nil {
		t.Fatal(err)
	}

	// Stats are created lazily per mode on the first finished game.
	if err := s.RecordGameResult(ctx, "ann", "classic", false, 9000); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordGameResult(ctx, "ann", "classic", true, 8000); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordGameResult(ctx, "ann", "classic", true, 12000); err != nil {
		t.Fatal(err)
	}

	all, err := s.Stats(ctx, "ann")
	if err != nil {
		t.Fatal(err)
	}
	classic := all["classic"]
	if classic.Games != 3 || classic.Wins != 2 {
		t.Fatalf("have games=%d wins=%d, want 3/2", classic.Games, classic.Wins)
	}
	if classic.BestTime == nil || *classic.BestTime != 8000 {
		t.Fatalf("best time: have %v, want 8000", classic.BestTime)
	}
	if _, ok := all["expert"]; ok {
		t.Fatal("untouched mode should have no stats entry")
	}
}

func TestFileStoreLobbies(t *testing.T) {
	t.Parallel()

	s := setupFileStore(t)
	ctx := context.Background()

	lobbies, err := s.ReadLobbies(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(lobbies) != 0 {
		t.Fatalf("fresh store should have no lobbies, have %d", len(lobbies))
	}

	lobbies["ABC123"] = LobbyRecord{
		ID:      "ABC123",
		Name:    "Ann's Room",
		Host:    "ann",
		Players: []string{"ann", "bob"},
		Mode:    "medium",
		Status:  "Playing",
	}
	if err := s.WriteLobbies(ctx, lobbies); err != nil {
		t.Fatal(err)
	}

	rt, err := s.ReadLobbies(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rt) != 1 || rt["ABC123"].Name != "Ann's Room" {
		t.Fatalf("unexpected lobbies %+v", rt)
	}
}
