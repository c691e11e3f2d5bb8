// Package stats aggregates per-account, per-mode win/loss/time
// bookkeeping. The aggregation rule lives here so every store backend
// applies the same arithmetic.
package stats

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// PlayerStat is one account's record for one game mode. BestTime is in
// milliseconds and nil until the first win.
type PlayerStat struct {
	Games    int    `json:"games"`
	Wins     int    `json:"wins"`
	BestTime *int64 `json:"bestTime"`
}

// Apply folds one finished game into the stat. Every finished game
// counts toward Games; wins additionally bump Wins and lower BestTime
// when strictly faster. Losses never touch BestTime.
func (s PlayerStat) Apply(won bool, elapsedMs int64) PlayerStat {
	s.Games++
	if !won {
		return s
	}
	s.Wins++
	if s.BestTime == nil || elapsedMs < *s.BestTime {
		s.BestTime = &elapsedMs
	}
	return s
}

type Store interface {
	RecordGameResult(ctx context.Context, username, mode string, won bool, elapsedMs int64) error
}

// Recorder pushes game results to the account store off the hot path:
// broadcasts never wait on durable storage, and store failures are
// logged and swallowed.
type Recorder struct {
	log   *logrus.Logger
	store Store
}

func NewRecorder(log *logrus.Logger, store Store) *Recorder {
	return &Recorder{log: log, store: store}
}

// Record books a finished game for every listed member. Fire-and-forget.
func (r *Recorder) Record(usernames []string, mode string, won bool, elapsed time.Duration) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		for _, username := range usernames {
			err := r.store.RecordGameResult(ctx, username, mode, won, elapsed.Milliseconds())
			if err != nil {
				r.log.WithFields(logrus.Fields{
					"username": username,
					"mode":     mode,
				}).WithError(err).Warn("unable to record game result")
			}
		}
	}()
}
