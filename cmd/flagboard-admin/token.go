package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func (a *admin) tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue a bearer token for the admin API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "id of an existing user"},
			&cli.DurationFlag{Name: "ttl", Usage: "token lifetime, defaults to jwt.default_ttl"},
		},
		Action: func(c *cli.Context) error {
			_, auth, err := a.userServices(c)
			if err != nil {
				return err
			}
			resp, err := auth.IssueToken(c.Context, c.String("user"), c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s\n", resp.Token)
			fmt.Fprintf(c.App.ErrWriter, "role %s, expires %s\n", resp.Role, resp.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
}
