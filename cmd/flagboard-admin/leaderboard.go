package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Black-And-White-Club/flagboard/app"
	leaderboardservice "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/application"
	leaderboarddomain "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/domain"
	leaderboardqueue "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/infrastructure/queue"
	leaderboarddb "github.com/Black-And-White-Club/flagboard/app/modules/leaderboard/infrastructure/repositories"
	"github.com/Black-And-White-Club/flagboard/internal/eventbus"
	"github.com/Black-And-White-Club/flagboard/internal/events"
	"github.com/urfave/cli/v2"
)

const defaultRequestedBy = "cli"

func (a *admin) leaderboardService(c *cli.Context) (*leaderboardservice.LeaderboardService, error) {
	store, err := a.openStore(c.Context)
	if err != nil {
		return nil, err
	}
	blobs, err := app.OpenBlobs(c.Context, a.cfg)
	if err != nil {
		return nil, err
	}
	bus, err := a.openBus()
	if err != nil {
		return nil, err
	}
	return leaderboardservice.NewLeaderboardService(
		leaderboarddb.NewRepository(store),
		blobs,
		bus,
		a.obs.Logger,
		a.obs.Registry.Leaderboard,
		a.obs.Tracer,
		leaderboardservice.Config{
			Deduplicate: a.cfg.Aggregation.Deduplicate,
			ExportPath:  a.cfg.Recalc.ExportPath,
		},
	), nil
}

func (a *admin) leaderboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "leaderboard",
		Usage: "recalculate, inspect and export the leaderboard",
		Subcommands: []*cli.Command{
			{
				Name:  "recalc",
				Usage: "recalculate the leaderboard",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mode", Value: string(leaderboarddomain.ModeFull), Usage: "full or quick"},
					&cli.BoolFlag{Name: "async", Usage: "enqueue a job instead of running here"},
					&cli.BoolFlag{Name: "publish", Usage: "publish a recalculation command on the event bus instead of running here"},
					&cli.StringFlag{Name: "requested-by", Value: defaultRequestedBy, Usage: "recorded on queued jobs and commands"},
				},
				Action: a.recalc,
			},
			{
				Name:  "show",
				Usage: "print the current standings",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "0 for all entries"},
					&cli.BoolFlag{Name: "json", Usage: "print JSON"},
				},
				Action: a.showLeaderboard,
			},
			{
				Name:   "export",
				Usage:  "upload an XLSX export and print its download URL",
				Action: a.exportLeaderboard,
			},
		},
	}
}

func (a *admin) recalc(c *cli.Context) error {
	mode, err := leaderboarddomain.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}
	if c.Bool("async") && c.Bool("publish") {
		return fmt.Errorf("--async and --publish are mutually exclusive")
	}
	requestedBy := c.String("requested-by")

	switch {
	case c.Bool("async"):
		if err := a.requirePostgres(); err != nil {
			return err
		}
		queue, err := leaderboardqueue.NewService(c.Context, a.cfg.Postgres.DSN, nil, leaderboardqueue.Config{}, a.obs.Logger, a.obs.Registry.Queue)
		if err != nil {
			return err
		}
		defer queue.Close()

		jobID, err := queue.EnqueueRecalculation(c.Context, mode, requestedBy)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Queued %s recalculation as job %d\n", mode, jobID)
		return nil

	case c.Bool("publish"):
		bus, err := a.openBus()
		if err != nil {
			return err
		}
		err = eventbus.PublishJSON(c.Context, bus, events.LeaderboardRecalculateRequestedV1, events.LeaderboardRecalculateRequestedPayload{
			Mode:        string(mode),
			RequestedBy: requestedBy,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Published %s recalculation command\n", mode)
		return nil
	}

	svc, err := a.leaderboardService(c)
	if err != nil {
		return err
	}
	res, err := svc.Recalculate(c.Context, mode, func(p leaderboardservice.Progress) {
		fmt.Fprintf(c.App.Writer, "  %-11s %d/%d\n", p.Phase, p.Current, p.Total)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%s recalculation ranked %d entries\n", res.Mode, res.Entries)
	if res.UsersUpdated > 0 {
		fmt.Fprintf(c.App.Writer, "  updated %d users\n", res.UsersUpdated)
	}
	if res.Removed > 0 {
		fmt.Fprintf(c.App.Writer, "  removed %d stale entries\n", res.Removed)
	}
	if res.SkippedSubmissions > 0 {
		fmt.Fprintf(c.App.Writer, "  skipped %d malformed submissions\n", res.SkippedSubmissions)
	}
	for _, id := range res.SkippedSubmitters {
		fmt.Fprintf(c.App.Writer, "  no user document for submitter %s\n", id)
	}
	return nil
}

func (a *admin) showLeaderboard(c *cli.Context) error {
	svc, err := a.leaderboardService(c)
	if err != nil {
		return err
	}
	standings, err := svc.GetLeaderboard(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(standings)
	}

	if standings.Meta != nil {
		fmt.Fprintf(c.App.Writer, "Last %s recalculation at %s, %d entries\n",
			standings.Meta.Mode, standings.Meta.RecalculatedAt.Format("2006-01-02 15:04:05"), standings.Meta.EntryCount)
	} else {
		fmt.Fprintln(c.App.Writer, "Never recalculated")
	}
	for _, e := range standings.Entries {
		rank := "-"
		if e.Ranked() {
			rank = fmt.Sprint(e.Rank)
		}
		name := e.Username
		if e.DisplayName != "" && !strings.EqualFold(e.DisplayName, e.Username) {
			name = fmt.Sprintf("%s (%s)", e.Username, e.DisplayName)
		}
		fmt.Fprintf(c.App.Writer, "%4s  %-32s %8d pts %4d solves\n", rank, name, e.TotalPoints, e.ChallengesSolved)
	}
	return nil
}

func (a *admin) exportLeaderboard(c *cli.Context) error {
	svc, err := a.leaderboardService(c)
	if err != nil {
		return err
	}
	res, err := svc.ExportLeaderboard(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Exported %d entries to %s\n%s\n", res.Entries, res.Path, res.URL)
	return nil
}
