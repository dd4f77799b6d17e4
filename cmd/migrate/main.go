package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-absence-alerts/pkg/config"
	"github.com/noah-isme/sma-absence-alerts/pkg/database"
	"github.com/noah-isme/sma-absence-alerts/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var migrationDir string
	flag.StringVar(&migrationDir, "path", cfg.Migrations.Path, "Path to migration files")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(2)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	m, err := migrate.New("file://"+migrationDir, database.URL(cfg.Database))
	if err != nil {
		logr.Fatal("migration init failed", zap.Error(err))
	}
	defer m.Close() //nolint:errcheck

	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logr.Fatal("migrate up failed", zap.Error(err))
		}
		logr.Info("migrated up", zap.String("path", migrationDir))
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logr.Fatal("migrate down failed", zap.Error(err))
		}
		logr.Info("migrated down", zap.String("path", migrationDir))
	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			logr.Fatal("read version failed", zap.Error(err))
		}
		logr.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	case "force":
		if len(args) < 2 {
			logr.Fatal("force requires a version argument")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			logr.Fatal("invalid version", zap.String("version", args[1]), zap.Error(err))
		}
		if err := m.Force(v); err != nil {
			logr.Fatal("force failed", zap.Error(err))
		}
		logr.Info("forced version", zap.Int("version", v))
	default:
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: migrate [flags] <command>")
	fmt.Fprintln(os.Stderr, "Commands: up, down, version, force <version>")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}
