// Package app assembles the server: storage backend selection, room
// registry, websocket hub, HTTP routes and graceful shutdown.
package app

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/multisweeper/internal/config"
	"github.com/vancomm/multisweeper/internal/database"
	"github.com/vancomm/multisweeper/internal/hub"
	"github.com/vancomm/multisweeper/internal/metrics"
	"github.com/vancomm/multisweeper/internal/middleware"
	"github.com/vancomm/multisweeper/internal/repository"
	"github.com/vancomm/multisweeper/internal/room"
	"github.com/vancomm/multisweeper/internal/stats"
	"github.com/vancomm/multisweeper/internal/store"
)

type App struct {
	log        *logrus.Logger
	router     *http.ServeMux
	migrations fs.FS
}

func New(log *logrus.Logger, migrations fs.FS) *App {
	return &App{
		log:        log,
		router:     http.NewServeMux(),
		migrations: migrations,
	}
}

func (a *App) Start(ctx context.Context) error {
	jwt, err := config.NewJWT()
	if err != nil {
		return err
	}

	ws, err := config.NewWebSocket()
	if err != nil {
		return err
	}

	// The lobby mirror always lives on disk; accounts move to postgres
	// when one is configured.
	fileStore, err := store.NewFileStore(config.DataDir())
	if err != nil {
		return err
	}

	var accounts store.AccountStore = fileStore
	if config.DatabaseConfigured() {
		db, err := database.ConnectAndMigrate(ctx, a.migrations)
		if err != nil {
			return err
		}
		defer db.Close()
		accounts = repository.New(db)
		a.log.Info("using postgres account store")
	} else {
		a.log.Info("using file-backed account store")
	}

	m := metrics.New("multisweeper")
	mirror := room.NewMirror(a.log, fileStore)
	h := hub.New(a.log, accounts, m)
	registry := room.NewRegistry(
		a.log, h,
		stats.NewRecorder(a.log, accounts),
		mirror,
		room.DefaultConfig(),
	)
	h.AttachRegistry(registry)

	a.loadRoutes(jwt, ws, accounts, h, m)

	server := &http.Server{
		Addr: config.Addr(),
		Handler: middleware.Wrap(
			a.router,
			middleware.Logging(a.log),
			middleware.Cors(),
			middleware.Auth(a.log, jwt),
		),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		// rooms do not survive the process, so neither should their
		// lobby mirror
		mirror.Clear()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	a.log.WithField("addr", config.Addr()).Info("server listening")
	return g.Wait()
}
