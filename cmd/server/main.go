package main

import (
	"context"
	"embed"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/snowzach/rotatefilehook"

	"github.com/vancomm/multisweeper/internal/app"
	"github.com/vancomm/multisweeper/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

func newLogger() *logrus.Logger {
	log := logrus.New()
	if config.Development() {
		log.SetLevel(logrus.DebugLevel)
	}

	if path := config.LogFile(); path != "" {
		hook, err := rotatefilehook.NewRotateFileHook(rotatefilehook.RotateFileConfig{
			Filename:   path,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Level:      log.GetLevel(),
			Formatter:  &logrus.JSONFormatter{},
		})
		if err != nil {
			log.WithError(err).Warn("unable to set up log file rotation")
		} else {
			log.AddHook(hook)
		}
	}

	return log
}

func main() {
	log := newLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	a := app.New(log, migrations)
	if err := a.Start(ctx); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
