package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mine-and-die/agent/internal/app"
	"mine-and-die/agent/internal/config"
	"mine-and-die/agent/internal/telemetry"
)

func main() {
	var configPath, envPath string
	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.StringVar(&envPath, "env", ".env", "path to an optional .env file")
	flag.Parse()

	logger := telemetry.WrapLogger(log.New(os.Stderr, "[agent] ", log.LstdFlags))

	if err := config.LoadDotEnv(envPath); err != nil {
		log.Fatalf("%v", err)
	}
	cfg, err := config.Load(configPath, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, logger); err != nil {
		log.Fatalf("%v", err)
	}
}
