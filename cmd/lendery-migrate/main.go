// Package main is the entry point for the Lendery database migration
// tool. It applies the embedded schema migrations for whichever backend
// is configured.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/prn-tf/lendery/internal/config"
	"github.com/prn-tf/lendery/internal/repository/postgres"
	"github.com/prn-tf/lendery/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Lendery Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up", "status":
		if err := run(command); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// migrator is the subset of the database layer the tool needs.
type migrator interface {
	Migrate(ctx context.Context) error
	Version(ctx context.Context) (int, error)
	Close() error
}

func run(command string) error {
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv("LENDERY_CONFIG"))
	if err != nil {
		return err
	}

	logger := zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()

	var db migrator
	if cfg.Database.IsEmbedded() {
		db, err = sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Database.Path), logger)
	} else {
		db, err = postgres.NewDB(ctx, cfg.Database, logger)
	}
	if err != nil {
		return err
	}
	defer db.Close()

	switch command {
	case "up":
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		version, err := db.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Migrations applied, schema at version %d\n", version)
		return nil

	case "status":
		version, err := db.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Schema version: %d\n", version)
		return nil
	}

	return nil
}

func printUsage() {
	fmt.Println(`Lendery Migration Tool

Usage:
  lendery-migrate <command>

Commands:
  up          Apply all pending migrations
  status      Show current schema version
  version     Print version information
  help        Show this help message

Configuration is read the same way as the server: config file via the
LENDERY_CONFIG environment variable, plus LENDERY_* overrides (driver,
path or connection settings under LENDERY_DATABASE_*).`)
}
