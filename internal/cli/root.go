// Package cli implements contactctl, a command line client of the contacts
// API built on the same view model as the browser and terminal interfaces.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/maruel/contactcrm/internal/apiclient"
	"github.com/maruel/contactcrm/internal/logging"
	"github.com/maruel/contactcrm/internal/schema"
	"github.com/maruel/contactcrm/internal/viewmodel"
)

// DefaultServer is used when neither --server nor CONTACTCRM_SERVER is set.
const DefaultServer = "http://localhost:3000"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server   string
	Schema   string // local YAML descriptor; empty means ask the server
	Format   string // "text" | "json"
	LogLevel string

	level slog.LevelVar
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	server := os.Getenv("CONTACTCRM_SERVER")
	if server == "" {
		server = DefaultServer
	}

	cmd := &cobra.Command{
		Use:   "contactctl",
		Short: "Manage contacts from the command line",
		Long: `contactctl talks to a contactcrm server.

It lists, searches and edits contacts with the same field descriptor the
browser uses, and can open an interactive terminal interface.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if err := logging.SetLevel(&opts.level, opts.LogLevel); err != nil {
				return err
			}
			slog.SetDefault(logging.New(os.Stderr, &opts.level))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Server, "server", "s", server, "server URL (env CONTACTCRM_SERVER)")
	cmd.PersistentFlags().StringVar(&opts.Schema, "schema", "", "YAML field descriptor; defaults to the server's")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewSummaryCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTUICommand(opts))
	return cmd
}

// client returns an API client for the configured server.
func (o *RootOptions) client() (*apiclient.Client, error) {
	return apiclient.New(o.Server)
}

// descriptor returns the --schema file, else the server's descriptor, else the
// built-in one.
func (o *RootOptions) descriptor(ctx context.Context, c *apiclient.Client) (*schema.Descriptor, error) {
	if o.Schema != "" {
		return schema.Load(o.Schema)
	}
	d, err := c.Schema(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Using default schema", "err", err)
		return schema.Default(), nil
	}
	return d, nil
}

// model returns a view model bound to the server. The list is not loaded.
func (o *RootOptions) model(ctx context.Context) (*viewmodel.Model, error) {
	c, err := o.client()
	if err != nil {
		return nil, err
	}
	d, err := o.descriptor(ctx, c)
	if err != nil {
		return nil, err
	}
	return viewmodel.New(c, d), nil
}

// loadedModel returns a view model with the list loaded.
func (o *RootOptions) loadedModel(ctx context.Context) (*viewmodel.Model, error) {
	vm, err := o.model(ctx)
	if err != nil {
		return nil, err
	}
	if err := vm.Load(ctx); err != nil {
		return nil, err
	}
	return vm, nil
}
