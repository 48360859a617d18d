package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Black-And-White-Club/flagboard/app"
	"github.com/Black-And-White-Club/flagboard/config"
	"github.com/Black-And-White-Club/flagboard/internal/docstore"
	"github.com/Black-And-White-Club/flagboard/internal/eventbus"
	"github.com/Black-And-White-Club/flagboard/internal/observability"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &admin{stdin: os.Stdin, stdout: os.Stdout}
	if err := newCLI(a).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// admin carries what every command needs. Fields set before Run are kept, so
// tests can inject a config and a seeded store.
type admin struct {
	cfg    *config.Config
	obs    observability.Observability
	store  docstore.Store
	bus    eventbus.EventBus
	stdin  io.Reader
	stdout io.Writer
}

func newCLI(a *admin) *cli.App {
	return &cli.App{
		Name:  "flagboard-admin",
		Usage: "operate the flagboard scoring back office",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Usage:   "path to the YAML config file",
				EnvVars: []string{"FLAGBOARD_CONFIG"},
			},
		},
		Reader: a.stdin,
		Writer: a.stdout,
		Before: a.before,
		After:  a.after,
		Commands: []*cli.Command{
			a.migrateCommand(),
			a.leaderboardCommand(),
			a.usernamesCommand(),
			a.tokenCommand(),
		},
	}
}

func (a *admin) before(c *cli.Context) error {
	if a.cfg == nil {
		cfg, err := config.LoadConfig(c.String("config"))
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		a.cfg = cfg
		a.obs = observability.Init(cfg.Observability, os.Stderr)
	}
	if a.obs.Logger == nil {
		a.obs = observability.NewNop()
	}
	return nil
}

func (a *admin) after(*cli.Context) error {
	var errs []error
	if a.bus != nil {
		errs = append(errs, a.bus.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// openStore returns the injected store or connects the configured one.
func (a *admin) openStore(ctx context.Context) (docstore.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := app.OpenStore(ctx, a.cfg, a.obs)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// openBus returns the injected bus or connects the configured one.
func (a *admin) openBus() (eventbus.EventBus, error) {
	if a.bus != nil {
		return a.bus, nil
	}
	bus, err := eventbus.New(eventbus.Config{
		URL:              a.cfg.NATS.URL,
		NkeySeed:         a.cfg.NATS.NkeySeed,
		QueueGroupPrefix: a.cfg.NATS.QueueGroupPrefix,
	}, a.obs.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	a.bus = bus
	return bus, nil
}

func (a *admin) requirePostgres() error {
	if a.cfg.Store.Backend != config.StorePostgres || a.cfg.Postgres.DSN == "" {
		return fmt.Errorf("this command needs the postgres store backend (set DATABASE_URL)")
	}
	return nil
}
