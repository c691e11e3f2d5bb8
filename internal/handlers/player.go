package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/vancomm/multisweeper/internal/middleware"
	"github.com/vancomm/multisweeper/internal/store"
)

var ErrNotLoggedIn = fmt.Errorf("authentication required")

// Player serves per-account stats and settings.
type Player struct {
	log      *logrus.Logger
	accounts store.AccountStore
}

func NewPlayer(log *logrus.Logger, accounts store.AccountStore) *Player {
	return &Player{log: log, accounts: accounts}
}

// Stats is public: anyone can look up a player's record.
func (h Player) Stats(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	stats, err := h.accounts.Stats(r.Context(), username)
	if errors.Is(err, store.ErrAccountNotFound) {
		w.WriteHeader(http.StatusNotFound)
		sendJSONOrLog(w, h.log, wrapError(err))
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.log.WithError(err).Error("unable to fetch stats")
		return
	}

	sendJSONOrLog(w, h.log, stats)
}

func (h Player) Settings(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PlayerClaims(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		sendJSONOrLog(w, h.log, wrapError(ErrNotLoggedIn))
		return
	}

	settings, err := h.accounts.Settings(r.Context(), claims.Username)
	if errors.Is(err, store.ErrAccountNotFound) {
		w.WriteHeader(http.StatusNotFound)
		sendJSONOrLog(w, h.log, wrapError(err))
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.log.WithError(err).Error("unable to fetch settings")
		return
	}

	sendJSONOrLog(w, h.log, settings)
}

func (h Player) SaveSettings(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PlayerClaims(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		sendJSONOrLog(w, h.log, wrapError(ErrNotLoggedIn))
		return
	}

	settings := store.DefaultSettings()
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		sendJSONOrLog(w, h.log, wrapError(err))
		return
	}

	err := h.accounts.SaveSettings(r.Context(), claims.Username, settings)
	if errors.Is(err, store.ErrAccountNotFound) {
		w.WriteHeader(http.StatusNotFound)
		sendJSONOrLog(w, h.log, wrapError(err))
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.log.WithError(err).Error("unable to save settings")
		return
	}

	sendJSONOrLog(w, h.log, settings)
}
