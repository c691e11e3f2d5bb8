package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/schema"
	"github.com/sirupsen/logrus"
	"github.com/vancomm/multisweeper/internal/config"
	"github.com/vancomm/multisweeper/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadAuthBody        = fmt.Errorf("request body must contain url-encoded username and password")
	ErrBadPasswordTooLong = fmt.Errorf("password too long")
	ErrBadCredentials     = fmt.Errorf("invalid username or password")
)

type Auth struct {
	log      *logrus.Logger
	accounts store.AccountStore
	jwt      *config.JWT
	decoder  *schema.Decoder
}

func NewAuth(log *logrus.Logger, accounts store.AccountStore, jwt *config.JWT) *Auth {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return &Auth{
		log:      log,
		accounts: accounts,
		jwt:      jwt,
		decoder:  decoder,
	}
}

type credentials struct {
	Username string `schema:"username,required"`
	Password string `schema:"password,required"`
	Name     string `schema:"name"`
}

type authResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

func (h Auth) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var creds credentials
	if err := h.decoder.Decode(&creds, r.PostForm); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		sendJSONOrLog(w, h.log, wrapError(ErrBadAuthBody))
		return
	}

	username := strings.TrimSpace(creds.Username)
	if username == "" || creds.Password == "" {
		w.WriteHeader(http.StatusBadRequest)
		sendJSONOrLog(w, h.log, wrapError(ErrBadAuthBody))
		return
	}
	if len([]byte(creds.Password)) > 72 {
		w.WriteHeader(http.StatusBadRequest)
		sendJSONOrLog(w, h.log, wrapError(ErrBadPasswordTooLong))
		return
	}

	name := strings.TrimSpace(creds.Name)
	if name == "" {
		name = username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.log.WithError(err).Error("unable to hash password")
		return
	}

	err = h.accounts.CreateAccount(r.Context(), username, name, hash)
	if errors.Is(err, store.ErrUsernameTaken) {
		w.WriteHeader(http.StatusConflict)
		sendJSONOrLog(w, h.log, wrapError(err))
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.log.WithError(err).Error("unable to create account")
		return
	}

	h.respondWithToken(w, username, name)
}

func (h Auth) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var creds credentials
	if err := h.decoder.Decode(&creds, r.PostForm); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		sendJSONOrLog(w, h.log, wrapError(ErrBadAuthBody))
		return
	}

	account, err := h.accounts.Account(r.Context(), creds.Username)
	if errors.Is(err, store.ErrAccountNotFound) {
		w.WriteHeader(http.StatusUnauthorized)
		sendJSONOrLog(w, h.log, wrapError(ErrBadCredentials))
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.log.WithError(err).Error("unable to fetch account")
		return
	}

	err = bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(creds.Password))
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		sendJSONOrLog(w, h.log, wrapError(ErrBadCredentials))
		return
	}

	h.respondWithToken(w, account.Username, account.Name)
}

func (h Auth) respondWithToken(w http.ResponseWriter, username, name string) {
	token, err := h.jwt.Sign(config.NewPlayerClaims(username, name))
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.log.WithError(err).Error("unable to sign token")
		return
	}
	sendJSONOrLog(w, h.log, authResponse{
		Token:    token,
		Username: username,
		Name:     name,
	})
}
