// Package main runs a demo Viber bot: it answers a few text commands, echoes
// everything else and greets new subscribers.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/garyellow/viber-bot-go/internal/app"
	"github.com/garyellow/viber-bot-go/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	application, err := app.Initialize(context.Background(), cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if err := registerHandlers(application.Dispatcher(), application.Client()); err != nil {
		application.Logger().WithError(err).Error("Failed to register handlers")
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		application.Logger().WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
}
