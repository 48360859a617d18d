package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	authservice "github.com/Black-And-White-Club/flagboard/app/modules/auth/application"
	authjwt "github.com/Black-And-White-Club/flagboard/app/modules/auth/infrastructure/jwt"
	userservice "github.com/Black-And-White-Club/flagboard/app/modules/user/application"
	userdb "github.com/Black-And-White-Club/flagboard/app/modules/user/infrastructure/repositories"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

// isTerminal is swapped in tests.
var isTerminal = term.IsTerminal

var errNotInteractive = errors.New("stdin is not a terminal; pass --yes to apply the repair")

func (a *admin) userServices(c *cli.Context) (userservice.Service, authservice.Service, error) {
	store, err := a.openStore(c.Context)
	if err != nil {
		return nil, nil, err
	}
	bus, err := a.openBus()
	if err != nil {
		return nil, nil, err
	}
	repo := userdb.NewRepository(store)
	sync := userservice.NewUsernameSync(repo, bus, a.obs.Logger, a.obs.Registry.User, a.obs.Tracer)
	auth := authservice.NewService(
		authjwt.NewProvider(a.cfg.JWT.Secret, a.cfg.JWT.Issuer),
		repo,
		authservice.Config{DefaultTTL: a.cfg.JWT.DefaultTTL},
		a.obs.Logger,
		a.obs.Tracer,
	)
	return sync, auth, nil
}

func (a *admin) usernamesCommand() *cli.Command {
	return &cli.Command{
		Name:  "usernames",
		Usage: "reconcile the username index with user documents",
		Subcommands: []*cli.Command{
			{
				Name:  "scan",
				Usage: "report drift without writing",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print JSON"},
				},
				Action: a.scanUsernames,
			},
			{
				Name:  "fix",
				Usage: "repair drift after confirmation",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "as", Required: true, Usage: "id of the admin user performing the repair"},
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "apply without prompting"},
				},
				Action: a.fixUsernames,
			},
		},
	}
}

func (a *admin) scanUsernames(c *cli.Context) error {
	sync, _, err := a.userServices(c)
	if err != nil {
		return err
	}
	report, err := sync.Scan(c.Context)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	for _, line := range report.Lines {
		fmt.Fprintln(c.App.Writer, line)
	}
	fmt.Fprintf(c.App.Writer, "%d issues found\n", report.Issues)
	return nil
}

func (a *admin) fixUsernames(c *cli.Context) error {
	sync, auth, err := a.userServices(c)
	if err != nil {
		return err
	}

	// Claims come from the stored user so the role check in Fix sees the
	// actor's real role.
	token, err := auth.IssueToken(c.Context, c.String("as"), time.Minute)
	if err != nil {
		return err
	}

	confirm := a.promptConfirm(c.App.Writer)
	if c.Bool("yes") {
		confirm = func(context.Context, userservice.PlanSummary) (bool, error) { return true, nil }
	}

	res, err := sync.Fix(c.Context, token.Claims, confirm)
	if err != nil {
		return err
	}

	switch res.Status {
	case userservice.FixNothingToDo:
		fmt.Fprintln(c.App.Writer, "Nothing to fix")
	case userservice.FixCancelled:
		fmt.Fprintln(c.App.Writer, "Cancelled, nothing was written")
	case userservice.FixCompleted:
		fmt.Fprintf(c.App.Writer, "Applied %d operations (%d creates, %d deletes, %d username updates)\n",
			res.Committed, res.Plan.Creates, res.Plan.Deletes, res.Plan.UsernameUpdates)
	}
	return nil
}

// promptConfirm shows the plan and reads a y/N answer from stdin.
func (a *admin) promptConfirm(w io.Writer) userservice.ConfirmFunc {
	return func(ctx context.Context, plan userservice.PlanSummary) (bool, error) {
		if f, ok := a.stdin.(*os.File); ok && !isTerminal(int(f.Fd())) {
			return false, errNotInteractive
		}

		for _, line := range plan.Lines {
			fmt.Fprintln(w, line)
		}
		fmt.Fprintf(w, "Apply %d operations in %d atomic units? [y/N]: ", plan.Operations, plan.Units)

		line, err := bufio.NewReader(a.stdin).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}
