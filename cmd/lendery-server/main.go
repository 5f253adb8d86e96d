// Package main is the entry point for the Lendery server.
// Lendery is a peer-to-peer book-lending backend: users list books they
// own and borrow books from each other.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/lendery/internal/cache/memory"
	rediscache "github.com/prn-tf/lendery/internal/cache/redis"
	"github.com/prn-tf/lendery/internal/config"
	"github.com/prn-tf/lendery/internal/covers"
	"github.com/prn-tf/lendery/internal/handler"
	"github.com/prn-tf/lendery/internal/lock"
	"github.com/prn-tf/lendery/internal/metrics"
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
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	logger := newLogger(cfg.Logging)

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting Lendery server")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	repos, dbHealth, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer dbHealth.Close()

	// Lock and session cache: Redis when enabled, in-memory otherwise.
	var (
		locker       lock.Locker
		sessionCache repository.Cache
	)
	if cfg.Redis.Enabled {
		client, err := rediscache.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()

		locker = lock.NewRedisLocker(client)
		sessionCache = rediscache.NewCache(client)
		logger.Info().Str("addr", cfg.Redis.Addr()).Msg("using Redis for locks and sessions")
	} else {
		locker = lock.NewMemoryLocker()
		memCache := memory.NewCache()
		defer memCache.Stop()
		sessionCache = memCache
		logger.Info().Msg("using in-memory locks and sessions")
	}

	// Cover validation and optional mirroring
	validator := covers.NewHTTPValidator(cfg.Covers.ValidateTimeout, logger)

	var mirror *covers.Mirror
	if cfg.Covers.Mirror.Enabled {
		mirror, err = covers.NewMirror(ctx, cfg.Covers.Mirror, logger)
		if err != nil {
			return err
		}
		logger.Info().Str("bucket", cfg.Covers.Mirror.Bucket).Msg("cover mirroring enabled")
	}

	// Services
	userService := service.NewUserService(repos.Users, cfg.Lending, logger)
	bookService := service.NewBookService(repos.Books, repos.Users, locker, validator, mirror, logger)
	sessionService := service.NewSessionService(sessionCache, cfg.Auth.SessionTTL, logger)

	// HTTP
	router := handler.NewRouter(handler.RouterConfig{
		UserHandler:    handler.NewUserHandler(userService, sessionService, cfg.Auth, logger),
		BookHandler:    handler.NewBookHandler(bookService, logger),
		Sessions:       handler.NewSessionMiddleware(sessionService, cfg.Auth.CookieName, logger),
		DatabaseHealth: dbHealth,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			logger.Info().Str("addr", metricsServer.Addr).Msg("metrics listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	return nil
}

// openDatabase connects to the configured backend, applies pending
// migrations and returns the repository set.
func openDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repository.Repositories, repository.DatabaseHealth, error) {
	if cfg.Database.IsEmbedded() {
		sqliteCfg := sqlite.DefaultConfig(cfg.Database.Path)
		sqliteCfg.JournalMode = cfg.Database.JournalMode
		sqliteCfg.BusyTimeout = cfg.Database.BusyTimeout
		sqliteCfg.CacheSize = cfg.Database.CacheSize
		sqliteCfg.SynchronousMode = cfg.Database.SynchronousMode

		db, err := sqlite.NewDB(ctx, sqliteCfg, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return sqlite.NewRepositories(db), db, nil
	}

	db, err := postgres.NewDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return postgres.NewRepositories(db), db, nil
}

// newLogger builds the process logger from configuration.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	return logger.Level(level).With().Timestamp().Logger()
}
