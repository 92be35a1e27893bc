package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
	"github.com/Microgramix/Motoristas.ranking/server/internal/api"
	"github.com/Microgramix/Motoristas.ranking/server/internal/config"
	"github.com/Microgramix/Motoristas.ranking/server/internal/engine"
	"github.com/Microgramix/Motoristas.ranking/server/internal/metrics"
	"github.com/Microgramix/Motoristas.ranking/server/internal/source"
	"github.com/Microgramix/Motoristas.ranking/server/internal/store"
	"github.com/Microgramix/Motoristas.ranking/server/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve the front-end build from this directory (e.g. web/dist); empty disables it")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	var level slog.LevelVar
	level.Set(cfg.Log.SlogLevel())
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level})))

	slog.Info("ranking-server starting",
		"config", *configPath,
		"http_port", cfg.Server.HTTPPort,
		"source", cfg.Source.Type,
		"timezone", cfg.Ranking.Timezone,
		"corrections", len(cfg.Ranking.Corrections),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Error("failed to set up tracing", "err", err)
		os.Exit(1)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracing shutdown", "err", err)
		}
	}()

	src, err := source.New(cfg.Source)
	if err != nil {
		slog.Error("failed to open source", "type", cfg.Source.Type, "err", err)
		os.Exit(1)
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	m := metrics.New()
	eng, err := engine.New(src, cfg, m)
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		os.Exit(1)
	}

	// Corrections, goals and log level follow edits to the config file.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			if err := eng.Reload(next.Ranking); err != nil {
				slog.Warn("ranking rules not reloaded", "err", err)
			}
			level.Set(next.Log.SlogLevel())
		})
		if err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	// Current selection starts on today's daily board and is refreshed
	// periodically.
	board := store.NewBoard(store.Selection{Period: types.PeriodDaily})
	view := engine.NewView(eng, board, m)
	go view.Run(ctx, cfg.Server.RefreshInterval)

	mux := http.NewServeMux()
	apiHandler := api.New(eng, view, m)
	mux.Handle("/api/", apiHandler)
	mux.Handle("/metrics", apiHandler)

	if *uiDir != "" {
		mux.Handle("/", uiHandler(*uiDir))
		slog.Info("serving UI static files", "dir", *uiDir)
	}

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("ranking-server shutting down")
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	httpSrv.Shutdown(sctx) //nolint:errcheck
	view.Wait()
}
