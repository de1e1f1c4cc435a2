package main

import (
	"context"
	"log"
	"os"

	"github.com/Psheikomaniac/cashcow-go/internal/buildinfo"
	"github.com/Psheikomaniac/cashcow-go/internal/client/cli"
	"github.com/Psheikomaniac/cashcow-go/internal/client/config"
	"github.com/Psheikomaniac/cashcow-go/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(ctx, cfg, logging.NewJSON())
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
