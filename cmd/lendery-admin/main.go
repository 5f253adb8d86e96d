// Package main is the entry point for the Lendery admin CLI.
// This tool provides administrative commands for managing user accounts
// without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/prn-tf/lendery/internal/config"
	"github.com/prn-tf/lendery/internal/repository"
	"github.com/prn-tf/lendery/internal/repository/postgres"
	"github.com/prn-tf/lendery/internal/repository/sqlite"
	"github.com/prn-tf/lendery/internal/service"
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
		fmt.Printf("Lendery Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		if err := runUserCommand(os.Args[2:]); err != nil {
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

func runUserCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("user subcommand required: create, list, activate, deactivate")
	}

	ctx := context.Background()

	users, closeDB, err := openUserService(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	switch args[0] {
	case "create":
		if len(args) != 5 {
			return fmt.Errorf("usage: lendery-admin user create <first-name> <last-name> <email> <password>")
		}
		out, err := users.Register(ctx, service.RegisterInput{
			FirstName: args[1],
			LastName:  args[2],
			Email:     args[3],
			Password:  args[4],
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created user %d (%s %s <%s>)\n", out.User.ID, out.User.FirstName, out.User.LastName, out.User.Email)
		return nil

	case "list":
		list, err := users.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tDURATION\tACTIVE")
		for _, u := range list {
			fmt.Fprintf(tw, "%d\t%s %s\t%s\t%d\t%t\n", u.ID, u.FirstName, u.LastName, u.Email, u.LendDuration, u.IsActive)
		}
		return tw.Flush()

	case "activate", "deactivate":
		if len(args) != 2 {
			return fmt.Errorf("usage: lendery-admin user %s <user-id>", args[0])
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user ID: %s", args[1])
		}
		active := args[0] == "activate"
		if err := users.SetActive(ctx, id, active); err != nil {
			return err
		}
		fmt.Printf("User %d active=%t\n", id, active)
		return nil

	default:
		return fmt.Errorf("unknown user subcommand: %s", args[0])
	}
}

// openUserService connects to the configured database and returns a
// UserService plus a close function.
func openUserService(ctx context.Context) (*service.UserService, func(), error) {
	cfg, err := config.Load(os.Getenv("LENDERY_CONFIG"))
	if err != nil {
		return nil, nil, err
	}

	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

	var (
		repos  *repository.Repositories
		closer func()
	)
	if cfg.Database.IsEmbedded() {
		db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Database.Path), logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		repos = sqlite.NewRepositories(db)
		closer = func() { db.Close() }
	} else {
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		repos = postgres.NewRepositories(db)
		closer = func() { db.Close() }
	}

	return service.NewUserService(repos.Users, cfg.Lending, logger), closer, nil
}

func printUsage() {
	fmt.Println(`Lendery Admin CLI

Usage:
  lendery-admin <command> [arguments]

Commands:
  user        Manage users (create, list, activate, deactivate)
  version     Print version information
  help        Show this help message

Examples:
  lendery-admin user create Ada Lovelace ada@example.com s3cret
  lendery-admin user list
  lendery-admin user deactivate 42

Configuration is read the same way as the server: config file via the
LENDERY_CONFIG environment variable, plus LENDERY_* overrides.`)
}
