package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MKhiriev/go-health-keeper/internal/service"
)

func newSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle and print the resulting status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			syncErr := app.SyncNow(cmd.Context())
			if errors.Is(syncErr, service.ErrNoCredentials) {
				return fmt.Errorf("%w: pass --token and --passphrase", syncErr)
			}

			status, err := app.Status(cmd.Context())
			if err != nil {
				return err
			}
			if err = newPrinter(cmd.OutOrStdout(), opts).status(status); err != nil {
				return err
			}
			return syncErr
		},
	}
}

func newStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the outcome of the last sync and the pending count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			status, err := app.Status(cmd.Context())
			if err != nil {
				return err
			}
			return newPrinter(cmd.OutOrStdout(), opts).status(status)
		},
	}
}

func newRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Keep syncing in the background until interrupted",
		Long: `Keep syncing in the background until interrupted.

A cycle runs at start, on every sync interval, and after local changes
settle for the debounce period. SIGHUP triggers an extra cycle.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-hup:
						app.Scheduler().NotifyOnline()
					}
				}
			}()

			fmt.Fprintln(cmd.ErrOrStderr(), "syncing in the background, press Ctrl+C to stop")
			return app.Run(ctx)
		},
	}
}
