package issues

import (
	"fmt"

	"github.com/Dzhud/issue-tracker/internal/command/common"
	"github.com/Dzhud/issue-tracker/internal/issue"
	"github.com/Dzhud/issue-tracker/pkg/client"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const (
	flagStatus           = "status"
	flagSearch           = "search"
	flagTitle            = "title"
	flagDescription      = "description"
	flagClearDescription = "clear-description"
)

// Commands returns the CRUD commands operating on issues.
func Commands() []*cli.Command {
	return []*cli.Command{
		ListCommand(),
		GetCommand(),
		CreateCommand(),
		UpdateCommand(),
		DeleteCommand(),
	}
}

func ListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List issues, newest first",
		Flags: common.WithCommonFlags(
			&cli.StringFlag{
				Name:  flagStatus,
				Usage: "Only show issues with this status (open, in-progress, closed)",
			},
			&cli.StringFlag{
				Name:    flagSearch,
				Aliases: []string{"q"},
				Usage:   "Only show issues whose title or description contains this text",
			},
		),
		Action: func(ctx *cli.Context) error {
			c, err := common.GetClient(ctx)
			if err != nil {
				return errors.Wrap(err, "could not create client")
			}

			issues, err := c.ListIssues(ctx.Context,
				client.WithStatus(issue.Status(ctx.String(flagStatus))),
				client.WithSearch(ctx.String(flagSearch)),
			)
			if err != nil {
				return errors.Wrap(err, "could not list issues")
			}

			if common.JSONOutput(ctx) {
				return common.PrintJSON(ctx.App.Writer, issues)
			}

			return common.PrintTable(ctx.App.Writer, issues)
		},
	}
}

func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show a single issue",
		ArgsUsage: "ID",
		Flags:     common.WithCommonFlags(),
		Action: func(ctx *cli.Context) error {
			id, err := common.IDArg(ctx)
			if err != nil {
				return errors.WithStack(err)
			}

			c, err := common.GetClient(ctx)
			if err != nil {
				return errors.Wrap(err, "could not create client")
			}

			i, err := c.GetIssue(ctx.Context, id)
			if err != nil {
				return errors.Wrapf(err, "could not get issue %d", id)
			}

			return printIssue(ctx, i)
		},
	}
}

func CreateCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create an issue",
		Flags: common.WithCommonFlags(
			&cli.StringFlag{
				Name:     flagTitle,
				Aliases:  []string{"t"},
				Usage:    "Issue title",
				Required: true,
			},
			&cli.StringFlag{
				Name:    flagDescription,
				Aliases: []string{"d"},
				Usage:   "Issue description",
			},
			&cli.StringFlag{
				Name:  flagStatus,
				Usage: "Initial status (default: open)",
			},
		),
		Action: func(ctx *cli.Context) error {
			n := issue.NewIssue{
				Title:  ctx.String(flagTitle),
				Status: issue.Status(ctx.String(flagStatus)),
			}
			if ctx.IsSet(flagDescription) {
				d := ctx.String(flagDescription)
				n.Description = &d
			}

			c, err := common.GetClient(ctx)
			if err != nil {
				return errors.Wrap(err, "could not create client")
			}

			i, err := c.CreateIssue(ctx.Context, n)
			if err != nil {
				return errors.Wrap(err, "could not create issue")
			}

			return printIssue(ctx, i)
		},
	}
}

func UpdateCommand() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update the given fields of an issue",
		ArgsUsage: "ID",
		Flags: common.WithCommonFlags(
			&cli.StringFlag{
				Name:    flagTitle,
				Aliases: []string{"t"},
				Usage:   "New title",
			},
			&cli.StringFlag{
				Name:    flagDescription,
				Aliases: []string{"d"},
				Usage:   "New description",
			},
			&cli.BoolFlag{
				Name:  flagClearDescription,
				Usage: "Remove the description",
			},
			&cli.StringFlag{
				Name:  flagStatus,
				Usage: "New status (open, in-progress, closed)",
			},
		),
		Action: func(ctx *cli.Context) error {
			id, err := common.IDArg(ctx)
			if err != nil {
				return errors.WithStack(err)
			}

			patch, err := patchFromFlags(ctx)
			if err != nil {
				return errors.WithStack(err)
			}

			c, err := common.GetClient(ctx)
			if err != nil {
				return errors.Wrap(err, "could not create client")
			}

			i, err := c.UpdateIssue(ctx.Context, id, patch)
			if err != nil {
				return errors.Wrapf(err, "could not update issue %d", id)
			}

			return printIssue(ctx, i)
		},
	}
}

func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete an issue",
		ArgsUsage: "ID",
		Flags:     common.WithCommonFlags(),
		Action: func(ctx *cli.Context) error {
			id, err := common.IDArg(ctx)
			if err != nil {
				return errors.WithStack(err)
			}

			c, err := common.GetClient(ctx)
			if err != nil {
				return errors.Wrap(err, "could not create client")
			}

			res, err := c.DeleteIssue(ctx.Context, id)
			if err != nil {
				return errors.Wrapf(err, "could not delete issue %d", id)
			}

			if common.JSONOutput(ctx) {
				return common.PrintJSON(ctx.App.Writer, res)
			}

			_, err = fmt.Fprintf(ctx.App.Writer, "%s: #%d %s\n", res.Message, res.Issue.ID, res.Issue.Title)
			return errors.WithStack(err)
		},
	}
}

// patchFromFlags turns the flags present on the command line into a patch.
// Absent flags leave the field untouched.
func patchFromFlags(ctx *cli.Context) (issue.Patch, error) {
	var p issue.Patch

	if ctx.IsSet(flagTitle) {
		p.Title = issue.Some(ctx.String(flagTitle))
	}

	switch {
	case ctx.IsSet(flagDescription) && ctx.Bool(flagClearDescription):
		return p, errors.New("--description and --clear-description are mutually exclusive")
	case ctx.IsSet(flagDescription):
		p.Description = issue.Some(ctx.String(flagDescription))
	case ctx.Bool(flagClearDescription):
		p.Description = issue.Null[string]()
	}

	if ctx.IsSet(flagStatus) {
		p.Status = issue.Some(issue.Status(ctx.String(flagStatus)))
	}

	if p.Empty() {
		return p, errors.New("nothing to update: pass --title, --description, --clear-description or --status")
	}

	return p, nil
}

func printIssue(ctx *cli.Context, i *issue.Issue) error {
	if common.JSONOutput(ctx) {
		return common.PrintJSON(ctx.App.Writer, i)
	}
	return common.PrintIssue(ctx.App.Writer, i)
}
