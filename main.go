package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wsrjk/bblgm/internal/config"
	"github.com/wsrjk/bblgm/internal/game"
	"github.com/wsrjk/bblgm/internal/httpserver"
	"github.com/wsrjk/bblgm/internal/session"
	"github.com/wsrjk/bblgm/internal/store"
	"github.com/wsrjk/bblgm/internal/stream"
	"github.com/wsrjk/bblgm/internal/words"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	if code := run(cfg); code != 0 {
		os.Exit(code)
	}
}

// run owns every deferred cleanup so that os.Exit in main never skips them.
func run(cfg config.Config) int {
	switch cfg.Profile {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "":
	default:
		log.Warn().Str("PROFILE", cfg.Profile).Msg("unknown profile mode, ignoring")
	}

	pool, err := words.Load(cfg.LabelsFile)
	if err != nil {
		log.Error().Err(err).Str("file", cfg.LabelsFile).Msg("failed to load labels")
		return 1
	}

	eng := game.New(cfg.Tuning,
		game.WithPool(pool),
		game.WithSpawnDriver(cfg.SpawnDriver()),
	)

	st, db, err := openStore(cfg.DBPath)
	if err != nil {
		log.Error().Err(err).Str("db", cfg.DBPath).Msg("failed to open high-score store")
		return 1
	}
	if db != nil {
		defer db.Close()
	}

	srv := httpserver.New(eng, st, httpserver.Options{
		ClientOrigin: cfg.ClientOrigin,
		Session:      session.NewManager(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies),
		Hub:          stream.NewHub(cfg.ClientOrigin),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SpawnMode == "timer" {
		go eng.RunSpawner(ctx)
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("spawn", cfg.SpawnMode).
			Int("labels", len(pool.Letters())+len(pool.Words())).
			Msg("starting bubble server")
		errc <- srv.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		if err != nil {
			log.Error().Err(err).Msg("server exited")
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
		return 1
	}
	return 0
}

func setupLogging(cfg config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// openStore picks the SQLite ledger when path is set, memory otherwise.
// The returned *sql.DB is nil for the memory store.
func openStore(path string) (store.Store, *sql.DB, error) {
	if path == "" {
		log.Info().Msg("using in-memory high-score ledger")
		return store.NewMemoryStore(), nil, nil
	}
	db, err := store.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("db", path).Msg("using sqlite high-score ledger")
	return store.NewSQLStore(db), db, nil
}
