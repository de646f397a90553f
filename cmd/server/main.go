package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/api"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/config"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/dialogue"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/memory"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/sample"
	"github.com/gyaneshwarpardhi/dlgsystem/internal/session"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "configs/dialogue.yaml", "Path to dialogue settings YAML")
	debug := flag.Bool("debug", false, "Log node enters and option choices")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	// ── Dialogue catalog ──────────────────────────────────────────────────────
	tavern, err := sample.Tavern()
	if err != nil {
		slog.Error("failed to build dialogue", "dialogue", sample.TavernName, "err", err)
		os.Exit(1)
	}
	slog.Info("dialogue built", "dialogue", tavern.Name(), "nodes", tavern.NodeCount())

	// ── Session manager ───────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr, err := session.New(ctx, []*dialogue.Graph{tavern}, cfg.Engine, cfg.Dialogue.Settings(), memory.Default())
	if err != nil {
		slog.Error("failed to start session manager", "err", err)
		os.Exit(1)
	}

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.Config) {
		applyCtx, applyCancel := context.WithTimeout(ctx, 5*time.Second)
		defer applyCancel()
		if err := mgr.ApplySettings(applyCtx, newCfg.Dialogue.Settings(), newCfg.Memory.ClearOnReload); err != nil {
			slog.Warn("hot-reload skipped: settings not applied", "err", err)
			return
		}
		slog.Info("settings hot-reloaded", "version", newCfg.Version)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(mgr, loader)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	mgr.Shutdown()
	cancel()
	slog.Info("goodbye")
}
