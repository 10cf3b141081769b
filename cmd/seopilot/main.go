package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"seopilot/pkg/contracts"
)

func main() {
	cli.VersionPrinter = func(c *cli.Context) { printVersion(c.App.Writer) }

	app := &cli.App{
		Name:    "seopilot",
		Usage:   "License-gated bulk SEO metadata generator",
		Version: contracts.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"SEOPILOT_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			licenseCommand(),
			teardownCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func printVersion(w io.Writer) {
	info := contracts.GetVersionInfo()
	fmt.Fprintln(w, contracts.GetVersionString())
	fmt.Fprintf(w, "  api:    %s\n  commit: %s\n  built:  %s\n  go:     %s\n",
		info.APIVersion, info.GitCommit, info.BuildTime, info.GoVersion)
}
