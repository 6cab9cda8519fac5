package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fu2re/jati/internal/config"
	"github.com/fu2re/jati/internal/infra"
	"github.com/fu2re/jati/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := infra.Migrate(ctx, db); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}

	logger.Info("schema up to date")
}
