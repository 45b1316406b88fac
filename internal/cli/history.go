package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/maruel/contactcrm/internal/tui"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the recorded versions of the contacts document",
		Long: `Show the recorded versions of the contacts document, newest first.

The server must run with -git-history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.client()
			if err != nil {
				return err
			}
			commits, err := c.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return rootOpts.output(cmd.OutOrStdout(), commits, func(w io.Writer) error {
				for _, c := range commits {
					if _, err := fmt.Fprintf(w, "%s  %s  %s\n", c.Hash[:min(len(c.Hash), 8)], c.Date.UTC().Format(time.DateTime), c.Message); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries")
	return cmd
}

// NewTUICommand creates the tui command.
func NewTUICommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive terminal interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vm, err := rootOpts.model(cmd.Context())
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), vm)
		},
	}
}
