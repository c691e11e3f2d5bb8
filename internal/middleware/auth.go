package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vancomm/multisweeper/internal/config"
)

type CtxKey int

const (
	CtxPlayerClaims CtxKey = iota
)

// Auth attaches verified player claims to the request context. Requests
// without a valid token pass through unauthenticated; handlers that
// need an identity check for claims themselves.
func Auth(log *logrus.Logger, jwt *config.JWT) Middleware {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				h.ServeHTTP(w, r)
				return
			}
			claims, err := jwt.ParsePlayerClaims(token)
			if err != nil {
				log.WithError(err).Debug("rejected auth token")
				h.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), CtxPlayerClaims, claims)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken finds the token in the Authorization header, falling
// back to a "token" query parameter for websocket clients that cannot
// set headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return r.URL.Query().Get("token")
}

// PlayerClaims extracts the claims Auth stored on the context.
func PlayerClaims(r *http.Request) (*config.PlayerClaims, bool) {
	claims, ok := r.Context().Value(CtxPlayerClaims).(*config.PlayerClaims)
	return claims, ok
}
