// Package handlers holds the HTTP surface: account registration and
// login, per-player stats and settings, and the websocket entry point.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

func SendJSON(w http.ResponseWriter, v any) (int, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	w.Header().Add("Content-Type", "application/json")
	return w.Write(payload)
}

func sendJSONOrLog(w http.ResponseWriter, log *logrus.Logger, v any) {
	_, err := SendJSON(w, v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		log.WithField("response", v).WithError(err).
			Error("unable to send response")
	}
}

func wrapError(err error) map[string]string {
	return map[string]string{
		"error": err.Error(),
	}
}
