package command

import (
	"fmt"
	"os"
	"sort"

	"github.com/Dzhud/issue-tracker/pkg/logger"
	"github.com/urfave/cli/v2"
)

// NewApp assembles the CLI application without running it.
func NewApp(name string, usage string, commands ...*cli.Command) *cli.App {
	app := &cli.App{
		Name:     name,
		Usage:    usage,
		Commands: commands,
		Before: func(ctx *cli.Context) error {
			logger.SetOutput(ctx.App.ErrWriter)
			logger.Init(ctx.String("log-level"))
			return nil
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Value:   false,
				EnvVars: []string{"ISSUECTL_DEBUG"},
				Usage:   "Print errors with their stack trace",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
	}

	app.ExitErrHandler = func(ctx *cli.Context, err error) {
		if err == nil {
			return
		}

		if ctx.Bool("debug") {
			logger.Errorf("%+v", err)
		} else {
			logger.Errorf("%s", err.Error())
		}
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	sort.Sort(cli.CommandsByName(app.Commands))

	return app
}

func Main(name string, usage string, commands ...*cli.Command) {
	app := NewApp(name, usage, commands...)
	app.ErrWriter = os.Stderr

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
