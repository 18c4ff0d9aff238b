package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/marsipan/internal/bridge"
	"github.com/danmuck/marsipan/internal/config"
	"github.com/danmuck/marsipan/internal/logging"
	"github.com/danmuck/marsipan/internal/store"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "cmd/marsipan/config.toml", "bot config path")
	envPath := flag.String("env", ".env", "dotenv file loaded before the config")
	flag.Parse()

	if err := run(*configPath, *envPath); err != nil {
		fmt.Fprintf(os.Stderr, "marsipan: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envPath string) error {
	if err := config.LoadDotEnv(envPath); err != nil {
		return err
	}
	logging.ConfigureRuntime()

	cfg, err := loadServiceConfig(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.StoreDSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	svc, err := bridge.NewService(cfg, st)
	if err != nil {
		return err
	}
	log.Info().
		Str("user", cfg.Username).
		Str("addr", cfg.Address).
		Strs("rooms", cfg.Rooms).
		Str("store", store.Backend(st)).
		Str("admin", cfg.AdminListenAddr).
		Msg("marsipan starting")
	return svc.Run(ctx)
}
