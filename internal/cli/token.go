package cli

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/MKhiriev/go-health-keeper/internal/config"
	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/internal/service"
	"github.com/MKhiriev/go-health-keeper/models"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	UserID   int64
	SignKey  string
	Issuer   string
	Duration time.Duration
	Copy     bool
}

func newTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		Long: `Mint a bearer token signed with the server's sign key.

Tokens normally come from the authentication service. This command is for
local development and tests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth := service.NewAuthService(config.App{
				TokenSignKey:  opts.SignKey,
				TokenIssuer:   opts.Issuer,
				TokenDuration: opts.Duration,
			}, logger.Nop())

			token, err := auth.CreateToken(cmd.Context(), opts.UserID)
			if err != nil {
				return err
			}

			if opts.Copy {
				if err = clipboard.WriteAll(token.SignedString); err != nil {
					return fmt.Errorf("copy token to clipboard: %w", err)
				}
			}

			p := newPrinter(cmd.OutOrStdout(), opts.RootOptions)
			if p.asJSON {
				return p.json(map[string]any{"token": token.SignedString, "userId": opts.UserID})
			}
			_, err = fmt.Fprintln(p.w, token.SignedString)
			return err
		},
	}

	cmd.Flags().Int64Var(&opts.UserID, "user-id", 0, "user id placed in the subject claim (required)")
	cmd.Flags().StringVar(&opts.SignKey, "sign-key", "", "HMAC key shared with the server (required)")
	cmd.Flags().StringVar(&opts.Issuer, "issuer", "health-keeper", "issuer claim")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 24*time.Hour, "token lifetime")
	cmd.Flags().BoolVar(&opts.Copy, "copy", false, "also copy the token to the clipboard")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("sign-key")

	return cmd
}

func newVersionCommand(opts *RootOptions, buildInfo models.AppBuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrinter(cmd.OutOrStdout(), opts)
			if p.asJSON {
				return p.json(map[string]string{
					"version": buildInfo.BuildVersion(),
					"date":    buildInfo.BuildDate(),
					"commit":  buildInfo.BuildCommit(),
				})
			}
			_, err := fmt.Fprintln(p.w, buildInfo.String())
			return err
		},
	}
}
