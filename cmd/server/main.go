package main

import (
	"context"
	"fmt"
	"log"

	"github.com/dmitrijs2005/mediashare/internal/server"
	"github.com/dmitrijs2005/mediashare/internal/server/config"
)

func main() {

	ctx := context.Background()
	if err := run(ctx, config.LoadConfig()); err != nil {
		log.Fatalf("%v", err)
	}

}

// newApp is a seam for tests.
var newApp = server.NewApp

func run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	app.Run(ctx)
	return nil
}
