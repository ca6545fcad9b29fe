// Package main is the entry point for the Docstorm command line tool.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := a.command().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the streams the commands read and write.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:      "docstorm",
		Usage:     "Schema-driven rich-text document engine",
		Version:   fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML or TOML config file",
				Sources: cli.EnvVars("DOCSTORM_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "sanitize",
				Usage:     "Sanitize documents against the schema",
				ArgsUsage: "FILE...",
				Action:    a.sanitize,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print a JSON array of {file, markup}"},
					&cli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "Rewrite each file in place"},
				},
			},
			{
				Name:   "apply",
				Usage:  "Replay an operation log on a document",
				Action: a.apply,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "doc", Aliases: []string{"d"}, Usage: "Document markup file"},
					&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Usage: "JSON operation log", Required: true},
					&cli.BoolFlag{Name: "export", Usage: "Include the applied records in the output"},
				},
			},
			{
				Name:   "session",
				Usage:  "Apply JSON records read line by line from stdin",
				Action: a.session,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "doc", Aliases: []string{"d"}, Usage: "Initial document markup file"},
				},
			},
		},
	}
}
