package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/AmolSonawane1026/order-service/internal/platform/config"
	"github.com/AmolSonawane1026/order-service/internal/platform/observability"
	"github.com/AmolSonawane1026/order-service/internal/repositories/postgres"
)

func main() {
	level, _ := config.Lookup("LOG_LEVEL")
	logger, err := observability.NewLogger(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("migrate")

	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		logger.Fatal("usage: migrate <up|down|version>")
	}

	postgresURL, _ := config.Lookup("POSTGRES_URL")
	if postgresURL == "" {
		logger.Fatal("POSTGRES_URL is required")
	}

	m, closeFn, err := newMigrator(postgresURL)
	if err != nil {
		logger.Fatal("failed to create migrate instance", zap.Error(err))
	}
	defer closeFn()

	switch command := args[0]; command {
	case "up":
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no pending migrations")
			return
		}
		if err != nil {
			logger.Fatal("migration up failed", zap.Error(err))
		}
		logger.Info("migrations applied")

	case "down":
		err = m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no migrations to roll back")
			return
		}
		if err != nil {
			logger.Fatal("migration down failed", zap.Error(err))
		}
		logger.Info("migration rolled back")

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied yet")
			return
		}
		if err != nil {
			logger.Fatal("failed to read version", zap.Error(err))
		}
		logger.Info("current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))

	default:
		logger.Fatal("unknown command", zap.String("command", command))
	}
}

// newMigrator reads migrations from MIGRATIONS_PATH when set and otherwise
// uses the set embedded in the binary.
func newMigrator(postgresURL string) (*migrate.Migrate, func(), error) {
	if path, _ := config.Lookup("MIGRATIONS_PATH"); path != "" {
		m, err := migrate.New(path, postgresURL)
		if err != nil {
			return nil, nil, err
		}
		return m, func() { _, _ = m.Close() }, nil
	}

	db, err := postgres.Open(context.Background(), postgresURL)
	if err != nil {
		return nil, nil, err
	}
	m, err := postgres.NewMigrator(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return m, func() {
		_, _ = m.Close()
		_ = db.Close()
	}, nil
}
