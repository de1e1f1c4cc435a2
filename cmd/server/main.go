package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/Psheikomaniac/cashcow-go/internal/buildinfo"
	"github.com/Psheikomaniac/cashcow-go/internal/logging"
	"github.com/Psheikomaniac/cashcow-go/internal/server"
	"github.com/Psheikomaniac/cashcow-go/internal/server/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	// Secrets come from the environment, optionally seeded from a local .env
	// file in development. A missing file is fine.
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()

	if v := os.Getenv("CASHCOW_SECRET_KEY"); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv("CASHCOW_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}

	app, err := server.NewApp(ctx, cfg, logging.NewJSON())
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
