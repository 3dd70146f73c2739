package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/MKhiriev/go-health-keeper/models"
)

// RecordOptions holds the flags shared by add and update.
type RecordOptions struct {
	*RootOptions
	Data string
	At   string
}

func newAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <type>",
		Short: "Log a new health record",
		Long: `Log a new health record of the given type.

The payload is a JSON object matching the entity type. The event time
defaults to now.

Example:
  health-keeper add intake --data '{"amountMl":250,"fluid":"water"}'
  health-keeper add output --data '{"amountMl":400}' --at 2026-10-19T08:30:00Z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := resolveType(args[0])
			if err != nil {
				return err
			}
			if opts.Data == "" {
				return fmt.Errorf("--data is required")
			}
			payload, err := models.DecodePayload(entityType, []byte(opts.Data))
			if err != nil {
				return fmt.Errorf("invalid %s payload: %w", entityType, err)
			}
			timestamp, err := parseEventTime(opts.At)
			if err != nil {
				return err
			}

			app, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			id, result, err := app.Store().Add(cmd.Context(), payload, timestamp)
			if err != nil {
				return err
			}
			return newPrinter(cmd.OutOrStdout(), opts.RootOptions).written(id, result)
		},
	}

	cmd.Flags().StringVarP(&opts.Data, "data", "d", "", "JSON payload")
	cmd.Flags().StringVar(&opts.At, "at", "", "event time as RFC 3339 or Unix milliseconds")

	return cmd
}

func newUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <type> <id>",
		Short: "Change the payload or event time of a record",
		Long: `Change the payload or event time of a record. Fields that are not
given keep their current value. Updating a deleted record revives it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := resolveType(args[0])
			if err != nil {
				return err
			}

			patch := models.RecordPatch{ID: args[1]}
			if opts.Data != "" {
				if patch.Payload, err = models.DecodePayload(entityType, []byte(opts.Data)); err != nil {
					return fmt.Errorf("invalid %s payload: %w", entityType, err)
				}
			}
			if patch.Timestamp, err = parseEventTime(opts.At); err != nil {
				return err
			}
			if patch.Payload == nil && patch.Timestamp == nil {
				return fmt.Errorf("nothing to update: pass --data or --at")
			}

			app, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Store().Update(cmd.Context(), entityType, patch)
			if err != nil {
				return err
			}
			return newPrinter(cmd.OutOrStdout(), opts.RootOptions).written(patch.ID, result)
		},
	}

	cmd.Flags().StringVarP(&opts.Data, "data", "d", "", "JSON payload replacing the current one")
	cmd.Flags().StringVar(&opts.At, "at", "", "event time as RFC 3339 or Unix milliseconds")

	return cmd
}

func newDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := resolveType(args[0])
			if err != nil {
				return err
			}

			app, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Store().Delete(cmd.Context(), entityType, args[1])
			if err != nil {
				return err
			}
			return newPrinter(cmd.OutOrStdout(), opts).written(args[1], result)
		},
	}
}

func newListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <type>",
		Short: "List records of one type, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := resolveType(args[0])
			if err != nil {
				return err
			}

			app, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			records, err := app.Store().GetAll(cmd.Context(), entityType)
			if err != nil {
				return err
			}
			return newPrinter(cmd.OutOrStdout(), opts).records(records)
		},
	}
}

func newGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Show one record, deleted ones included",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := resolveType(args[0])
			if err != nil {
				return err
			}

			app, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			record, err := app.Store().Get(cmd.Context(), entityType, args[1])
			if err != nil {
				return err
			}
			return newPrinter(cmd.OutOrStdout(), opts).record(record)
		},
	}
}

// parseEventTime accepts RFC 3339 or Unix milliseconds. Empty means "not set".
func parseEventTime(v string) (*int64, error) {
	if v == "" {
		return nil, nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return &ms, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("invalid --at %q: want RFC 3339 or Unix milliseconds", v)
	}
	ms := t.UnixMilli()
	return &ms, nil
}

