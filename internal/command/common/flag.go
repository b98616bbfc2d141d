package common

import (
	"strconv"

	"github.com/Dzhud/issue-tracker/pkg/client"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const (
	paramServer = "server"
	paramJSON   = "json"
)

var (
	flagServer = &cli.StringFlag{
		Name:    paramServer,
		Aliases: []string{"s"},
		EnvVars: []string{"API_BASE_URL"},
		Value:   "http://localhost:5000",
		Usage:   "Issue tracker API base url",
	}
	flagJSON = &cli.BoolFlag{
		Name:  paramJSON,
		Usage: "Print raw JSON instead of a table",
	}
)

func WithCommonFlags(flags ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		flagServer,
		flagJSON,
	}, flags...)
}

func GetClient(ctx *cli.Context) (*client.Client, error) {
	serverURL, err := client.ParseBaseURL(ctx.String(paramServer))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return client.New(
		client.WithBaseURL(serverURL),
	), nil
}

// JSONOutput reports whether --json was given.
func JSONOutput(ctx *cli.Context) bool {
	return ctx.Bool(paramJSON)
}

// IDArg parses the first positional argument as an issue id.
func IDArg(ctx *cli.Context) (int64, error) {
	if ctx.NArg() < 1 {
		return 0, errors.New("missing issue id")
	}
	id, err := strconv.ParseInt(ctx.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid issue id %q", ctx.Args().First())
	}
	return id, nil
}
