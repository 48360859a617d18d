package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Black-And-White-Club/flagboard/app"
	"github.com/Black-And-White-Club/flagboard/config"
	"github.com/Black-And-White-Club/flagboard/internal/observability"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("flagboard", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	obs := observability.Init(cfg.Observability, stdout)
	obs.Logger.InfoContext(ctx, "Starting flagboard",
		"store", cfg.Store.Backend,
		"blob", cfg.Blob.Backend,
		"nats", cfg.NATS.URL != "",
	)

	application, err := app.NewApp(ctx, cfg, obs)
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}

	if err := application.Run(ctx); err != nil {
		return err
	}
	obs.Logger.Info("Application shut down gracefully")
	return nil
}
