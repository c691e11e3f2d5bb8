package main

import (
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/multisweeper/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

func main() {
	log := logrus.New()
	if config.Development() {
		log.SetLevel(logrus.DebugLevel)
	}

	url, err := config.DbURL()
	if err != nil {
		log.WithError(err).Fatal("no database configured")
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		log.WithError(err).Fatal("unable to create migrations iofs")
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		log.WithError(err).Fatal("unable to create migrator")
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.WithError(err).Fatal("migration failed")
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		log.WithError(err).Fatal("unable to check migration version")
	}
	log.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info("migration successful")
}
