// Package main contains the entrypoint for the wolfherd controller.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/msaud/wolfherd/internal/api"
	"github.com/msaud/wolfherd/internal/config"
	"github.com/msaud/wolfherd/internal/logger"
	"github.com/msaud/wolfherd/internal/manager"
	"github.com/msaud/wolfherd/internal/store"
	"github.com/msaud/wolfherd/internal/telegram"
	"github.com/msaud/wolfherd/internal/wolf"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires all components and blocks until shutdown, returning the
// process exit code.
func run(ctx context.Context) int {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	log := logger.New(cfg.Log)
	log.Info("logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := store.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("failed to open database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer store.CloseDB(db)
	st := store.NewStore(db, log)

	dialer := wolf.NewDialer(cfg.Wolf, log)

	mgr, err := manager.New(cfg, dialer, st, log)
	if err != nil {
		log.Error("failed to create bot manager", "error", err)
		return 1
	}
	defer mgr.Close(context.Background())

	tg, err := telegram.New(cfg, mgr, st, log)
	if err != nil {
		log.Error("failed to create telegram bot", "error", err)
		return 1
	}

	pump := telegram.NewPump(telegram.HandlerDeps{
		Logger:  log,
		Cfg:     cfg,
		Manager: mgr,
		Store:   st,
	}, tg)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.New(mgr, st, log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting telegram listener")
		tg.Start(gCtx)
		if gCtx.Err() == nil {
			return errors.New("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		pump.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		log.Info("starting http api", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	log.Info("wolfherd running")
	runErr := g.Wait()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("stopped due to error", "error", runErr)
		return 1
	}
	log.Info("stopped gracefully")
	return 0
}
