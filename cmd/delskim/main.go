package main

import (
	"log/slog"
	"os"

	"delskim/config"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
