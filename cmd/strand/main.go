package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/strandkit/strand/pkg/log"
)

func main() {
	cmd := &cli.Command{
		Name:                  "strand",
		EnableShellCompletion: true,
		Usage:                 "Validate and run workflow definitions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Commands: []*cli.Command{
			newValidateCommand(),
			newRunCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.WithModule("strand").Error("command failed", "error", err)
		os.Exit(1)
	}
}
