package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dxf-mesh-renderer/internal/aci"
	"dxf-mesh-renderer/internal/config"
	"dxf-mesh-renderer/internal/scene"
	"dxf-mesh-renderer/internal/server"
	"dxf-mesh-renderer/internal/store"
)

func main() {
	configFile := flag.String("config", "", "Path to config .json or .toml file")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{})

	mode, err := aci.ParseMode(cfg.ColorMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.Server.DBPath)
	if err != nil {
		log.Error("open job store", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	jobs := store.New(db)
	if err := jobs.Init(context.Background()); err != nil {
		log.Error("init job store", "err", err)
		os.Exit(1)
	}

	srv := server.New(jobs, server.Options{
		Scene: scene.Options{
			ColorMode:     mode,
			Workers:       cfg.Workers,
			Layers:        cfg.Layers,
			ExpandInserts: *cfg.ExpandInserts,
			Logger:        log,
		},
		PreviewSize:     cfg.PreviewSize,
		Supersample:     cfg.Supersample,
		MaxRenderSize:   cfg.Server.MaxRenderSize,
		MaxDrawingBytes: int64(cfg.Server.BodyLimitMB) << 20,
		Logger:          log,
	})
	app := srv.App(cfg.Server)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info("shutting down")
		if err := server.Shutdown(app, 10*time.Second); err != nil {
			log.Error("shutdown", "err", err)
		}
	}()

	log.Info("starting conversion service", "addr", cfg.Server.Addr, "db", cfg.Server.DBPath, "colors", mode.String())
	if err := app.Listen(cfg.Server.Addr); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
