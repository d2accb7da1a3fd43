package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/deathmatch-backend/internal/config"
	"github.com/DoyleJ11/deathmatch-backend/internal/engine"
	"github.com/DoyleJ11/deathmatch-backend/internal/httpapi"
	"github.com/DoyleJ11/deathmatch-backend/internal/hub"
	"github.com/DoyleJ11/deathmatch-backend/internal/lobby"
	"github.com/DoyleJ11/deathmatch-backend/internal/match"
	"github.com/DoyleJ11/deathmatch-backend/internal/partition"
	"github.com/DoyleJ11/deathmatch-backend/internal/store"
	"github.com/DoyleJ11/deathmatch-backend/internal/workers"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	if err := zcfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return zcfg.Build()
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	// Hooks outlive the request context so the final settlement can still pay out.
	dispatcher := workers.NewDispatcher(context.Background(), workers.NewDispatcherOptions{Logger: logger})

	// The hub outlives the lobby so the final settlement still reaches clients.
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	h := hub.NewHub(hubCtx, logger)
	lb := lobby.NewManager(ctx, lobby.NewManagerOptions{
		Logger:     logger,
		Notifier:   h,
		Rewarder:   st,
		Partitions: partition.NewInMemoryRegistry(),
		Recorder:   st,
		Runner:     dispatcher,
		Rewards: match.Rewards{
			Kill:       cfg.Tables.Rewards.Kill,
			Completion: cfg.Tables.Rewards.Completion,
			Win:        cfg.Tables.Rewards.Win,
		},
		Rules:        cfg.Rules(),
		Spawns:       cfg.Tables.Spawns,
		Weapons:      cfg.Tables.Weapons,
		TickInterval: cfg.TickInterval,
	})

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:     h,
			Lobby:   lb,
			Store:   st,
			Weapons: cfg.Tables.Weapons,
			Logger:  logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr),
			zap.Int("weapons", len(cfg.Tables.Weapons)),
			zap.Int("red_spawns", len(cfg.Tables.Spawns[engine.TeamRed])),
			zap.Int("blue_spawns", len(cfg.Tables.Spawns[engine.TeamBlue])),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	stop()
	<-lb.Done()
	h.Stop()
	<-h.Done()
	if hookErr := dispatcher.Wait(); hookErr != nil {
		logger.Warn("some hooks failed", zap.Error(hookErr))
	}
	return err
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	return store.NewPostgresStore(ctx, cfg.DatabaseURL)
}
