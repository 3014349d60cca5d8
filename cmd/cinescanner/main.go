package main

import (
	"fmt"
	"os"

	"CineScanner/internal/app"
	"CineScanner/internal/config"
	"CineScanner/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup failed:", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := newRootCommand(application).Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
