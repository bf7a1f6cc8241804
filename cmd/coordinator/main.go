package main

import (
	"context"
	"log"
	"os"

	"github.com/absmach/fedkm/fedkmd"
	"github.com/absmach/supermq/pkg/server"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const pathEnv = ".env"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := fedkmd.CoordinatorConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	cfg.Server = server.Config{Port: fedkmd.DefCoordinatorHTTPPort}
	if err := env.ParseWithOptions(&cfg.Server, env.Options{Prefix: fedkmd.CoordinatorHTTPPrefix}); err != nil {
		log.Fatalf("failed to load coordinator HTTP server configuration : %s", err.Error())
	}

	if err := fedkmd.StartCoordinator(ctx, cancel, cfg); err != nil {
		log.Fatalf("coordinator service exited with error: %s", err)
	}
}
