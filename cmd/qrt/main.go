package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"qrt/internal/cli"
	"qrt/internal/config"
	"qrt/internal/crypto"
	"qrt/internal/store"
	"qrt/internal/symbol"
	"qrt/internal/transfer"
	"qrt/internal/util/logger/handlers/slogpretty"
	"qrt/internal/util/logger/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChanel := make(chan os.Signal, 1)
	signal.Notify(signalChanel, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signalChanel
		log.Info("shutdown signal received", slog.Any("signal", sig))
		cancel()
	}()

	var sessionStore *store.SessionStore
	if cfg.StorePath != "" {
		var err error
		sessionStore, err = store.NewSessionStore(store.Config{Path: cfg.StorePath})
		if err != nil {
			log.Error("failed to open session store", sl.Err(err))
			os.Exit(1)
		}
		defer sessionStore.Close()
	}

	svc := transfer.NewService(transfer.ServiceConfig{
		Engine: crypto.NewEngine(),
		Store:  sessionStore,
		SymbolOptions: symbol.Options{
			BoxSize:         cfg.Symbol.BoxSize,
			Border:          cfg.Symbol.Border,
			ErrorCorrection: symbol.ErrorCorrection(cfg.Symbol.ErrorCorrection),
		},
		MaxChunkBytes: cfg.MaxChunkBytes(),
		CapacityWarn:  cfg.Limits.CapacityWarn,
		Logger:        log,
	})

	appCtx := cli.NewAppContext(svc, cfg, log, cancel)

	if err := cli.Run(ctx, flag.Args(), appCtx); err != nil {
		log.Error("command failed", sl.Err(err))
		os.Exit(1)
	}
}

func setupLogger(env string) *slog.Logger {

	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = setupPrettySlog()
	}
	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
