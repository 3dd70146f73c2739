// Package cli is the command-line host shell of the client. It stands in for
// the app's UI: CRUD over the local record store, manual and background sync,
// status, and a development token helper.
package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/MKhiriev/go-health-keeper/internal/client"
	"github.com/MKhiriev/go-health-keeper/internal/config"
	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/models"
)

// RootOptions holds the global flags shared by every command.
type RootOptions struct {
	ConfigPath string
	Server     string
	DB         string
	LogFile    string
	Token      string
	Passphrase string
	Format     string // "text" | "json"
}

var validFormats = []string{"text", "json"}

// NewRootCommand builds the client command tree.
func NewRootCommand(buildInfo models.AppBuildInfo) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "health-keeper",
		Short:         "Offline-first health log with end-to-end encrypted sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "path to a JSON or YAML config file")
	flags.StringVar(&opts.Server, "server", "", "replication endpoint address")
	flags.StringVar(&opts.DB, "db", "", "path to the local SQLite database")
	flags.StringVar(&opts.LogFile, "log-file", "", "path to the log file")
	flags.StringVar(&opts.Token, "token", "", "bearer token from the authentication service")
	flags.StringVar(&opts.Passphrase, "passphrase", "", "passphrase the payload key is derived from")
	flags.StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(
		newAddCommand(opts),
		newListCommand(opts),
		newGetCommand(opts),
		newUpdateCommand(opts),
		newDeleteCommand(opts),
		newSyncCommand(opts),
		newStatusCommand(opts),
		newRunCommand(opts),
		newTokenCommand(opts),
		newVersionCommand(opts, buildInfo),
	)

	return cmd
}

// overrides turns global flags into a config layer. Setting --db also moves
// the fallback queue and the salt file next to the database.
func (o *RootOptions) overrides() *config.ClientConfig {
	cfg := &config.ClientConfig{
		ConfigFilePath: o.ConfigPath,
		Adapter:        config.ClientAdapter{HTTPAddress: o.Server},
		Auth:           config.ClientAuth{Token: o.Token, Passphrase: o.Passphrase},
		Log:            config.ClientLog{File: o.LogFile},
	}
	if o.DB != "" {
		cfg.Storage.DB.DSN = o.DB
		cfg.Storage.FallbackPath = o.DB + ".fallback.json"
		cfg.Auth.SaltFile = filepath.Join(filepath.Dir(o.DB), "salt")
	}
	return cfg
}

// openApp loads the configuration and opens the client. Callers must Close it.
func (o *RootOptions) openApp(ctx context.Context) (*client.App, error) {
	cfg, err := config.GetClientConfig(o.overrides())
	if err != nil {
		return nil, err
	}

	log := logger.NewClientLogger("health-keeper-client", cfg.Log.File, cfg.Log.Level)
	return client.NewApp(ctx, cfg, log)
}

func resolveType(arg string) (models.EntityType, error) {
	entityType, err := models.ResolveEntityType(arg)
	if err != nil {
		return "", fmt.Errorf("%w (known: %v)", err, models.AllEntityTypes())
	}
	return entityType, nil
}
