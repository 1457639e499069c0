package main

import (
	"context"
	"evroam/internal"
	"evroam/internal/config"
	"evroam/server"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	conf, err := config.GetConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "reading config:", err)
		fmt.Fprintln(os.Stderr, config.Usage())
		os.Exit(1)
	}
	log := internal.ConfigureLogging(conf.LogLevel, conf.IsDebug, os.Stdout)

	hub, err := server.NewHub(conf, log)
	if err != nil {
		log.Error().Err(err).Msg("hub initialization failed")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = hub.Run(ctx); err != nil {
		log.Error().Err(err).Msg("hub stopped")
		os.Exit(1)
	}
}
