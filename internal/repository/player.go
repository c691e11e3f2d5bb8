// Package repository is the postgres-backed account store. It
// implements the same store.AccountStore contract as the file store,
// so the rest of the server never knows which backend it talks to.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vancomm/multisweeper/internal/stats"
	"github.com/vancomm/multisweeper/internal/store"
)

type Queries struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Queries {
	return &Queries{db: db}
}

type playerRow struct {
	Username     string `db:"username"`
	Name         string `db:"name"`
	PasswordHash []byte `db:"password_hash"`
}

func (q *Queries) CreateAccount(
	ctx context.Context, username, name string, passwordHash []byte,
) error {
	_, err := q.db.Exec(
		ctx,
		`INSERT INTO player (username, name, password_hash, settings)
		 VALUES ($1, $2, $3, $4)`,
		username, name, passwordHash, store.DefaultSettings(),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return store.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("unable to insert player: %w", err)
	}
	return nil
}

func (q *Queries) Account(ctx context.Context, username string) (*store.Account, error) {
	rows, _ := q.db.Query(
		ctx,
		"SELECT username, name, password_hash FROM player WHERE username = $1",
		username,
	)
	player, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[playerRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unable to fetch player: %w", err)
	}
	return &store.Account{
		Username:     player.Username,
		Name:         player.Name,
		PasswordHash: player.PasswordHash,
	}, nil
}

type statRow struct {
	Mode       string `db:"mode"`
	Games      int    `db:"games"`
	Wins       int    `db:"wins"`
	BestTimeMs *int64 `db:"best_time_ms"`
}

func (q *Queries) Stats(
	ctx context.Context, username string,
) (map[string]stats.PlayerStat, error) {
	if _, err := q.Account(ctx, username); err != nil {
		return nil, err
	}

	rows, _ := q.db.Query(
		ctx,
		"SELECT mode, games, wins, best_time_ms FROM player_stat WHERE username = $1",
		username,
	)
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[statRow])
	if err != nil {
		return nil, fmt.Errorf("unable to fetch stats: %w", err)
	}

	out := make(map[string]stats.PlayerStat, len(records))
	for _, rec := range records {
		out[rec.Mode] = stats.PlayerStat{
			Games:    rec.Games,
			Wins:     rec.Wins,
			BestTime: rec.BestTimeMs,
		}
	}
	return out, nil
}

func (q *Queries) Settings(ctx context.Context, username string) (store.Settings, error) {
	var settings store.Settings
	err := q.db.QueryRow(
		ctx, "SELECT settings FROM player WHERE username = $1", username,
	).Scan(&settings)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Settings{}, store.ErrAccountNotFound
	}
	if err != nil {
		return store.Settings{}, fmt.Errorf("unable to fetch settings: %w", err)
	}
	return settings, nil
}

func (q *Queries) SaveSettings(
	ctx context.Context, username string, settings store.Settings,
) error {
	tag, err := q.db.Exec(
		ctx,
		"UPDATE player SET settings = $2, updated_at = now() WHERE username = $1",
		username, settings,
	)
	if err != nil {
		return fmt.Errorf("unable to save settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAccountNotFound
	}
	return nil
}

func (q *Queries) RecordGameResult(
	ctx context.Context, username, mode string, won bool, elapsedMs int64,
) error {
	_, err := q.db.Exec(
		ctx,
		`INSERT INTO player_stat (username, mode, games, wins, best_time_ms)
		 VALUES (
			$1, $2, 1,
			CASE WHEN $3 THEN 1 ELSE 0 END,
			CASE WHEN $3 THEN $4::bigint END
		 )
		 ON CONFLICT (username, mode) DO UPDATE SET
			games = player_stat.games + 1,
			wins = player_stat.wins + CASE WHEN $3 THEN 1 ELSE 0 END,
			best_time_ms = CASE
				WHEN $3 THEN least(coalesce(player_stat.best_time_ms, $4::bigint), $4::bigint)
				ELSE player_stat.best_time_ms
			END`,
		username, mode, won, elapsedMs,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return store.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("unable to record game result: %w", err)
	}
	return nil
}
