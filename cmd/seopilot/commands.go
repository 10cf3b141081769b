package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"seopilot/internal/app"
	"seopilot/internal/config"
	"seopilot/internal/infrastructure"
	"seopilot/internal/license"
)

// bootstrap loads the configuration and wires the application
func bootstrap(c *cli.Context) (*app.Application, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return app.New(c.Context, cfg, logger)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the admin HTTP server",
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer infrastructure.CloseLogFile()
			return application.Run(ctx)
		},
	}
}

func licenseCommand() *cli.Command {
	return &cli.Command{
		Name:  "license",
		Usage: "Inspect the stored license",
		Subcommands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Check the stored key against the license server now",
				Action: func(c *cli.Context) error {
					application, err := bootstrap(c)
					if err != nil {
						return err
					}
					defer application.Store.Close()

					outcome, err := application.LicenseCache.ForceCheck(c.Context)
					if err != nil {
						return err
					}
					return printOutcome(c.App.Writer, outcome)
				},
			},
		},
	}
}

func teardownCommand() *cli.Command {
	return &cli.Command{
		Name:  "teardown",
		Usage: "Deactivate the stored license key on this site",
		Action: func(c *cli.Context) error {
			application, err := bootstrap(c)
			if err != nil {
				fmt.Fprintf(c.App.ErrWriter, "teardown skipped: %s\n", err)
				return nil
			}
			defer application.Store.Close()

			key, err := application.Licenses.Key(c.Context)
			if err != nil || key == "" {
				fmt.Fprintln(c.App.Writer, "no license key stored")
				return nil
			}

			ctx, cancel := context.WithTimeout(c.Context, application.Config.License.CheckTimeout+time.Second)
			defer cancel()
			application.LicenseClient.Deactivate(ctx, key)
			application.Logger.Info("Teardown complete", slog.String("license_key", license.MaskKey(key)))
			fmt.Fprintf(c.App.Writer, "deactivation sent for %s\n", license.MaskKey(key))
			return nil
		},
	}
}

func printOutcome(w io.Writer, outcome license.CheckOutcome) error {
	out := struct {
		Key       string    `json:"key"`
		Status    string    `json:"status"`
		Active    bool      `json:"active"`
		LastCheck time.Time `json:"last_check"`
		Checked   bool      `json:"checked"`
		Error     string    `json:"error,omitempty"`
	}{
		Key:       license.MaskKey(outcome.Record.Key),
		Status:    string(outcome.Status),
		Active:    outcome.Status.Active(),
		LastCheck: outcome.Record.LastCheck,
		Checked:   outcome.Checked,
		Error:     outcome.Error,
	}
	if outcome.Record.Key == "" {
		out.Key = ""
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
