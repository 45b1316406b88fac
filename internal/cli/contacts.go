package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"

	"github.com/spf13/cobra"

	"github.com/maruel/contactcrm/internal/viewmodel"
)

// viewOptions narrows the list the way the search box and filter pills do.
type viewOptions struct {
	search string
	filter string
}

func (v *viewOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&v.search, "search", "q", "", "case-insensitive text to search for")
	cmd.Flags().StringVarP(&v.filter, "filter", "f", "", "only show records with this filter field value")
}

func (v *viewOptions) apply(vm *viewmodel.Model) {
	vm.SetSearch(v.search)
	vm.SetFilter(v.filter)
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var view viewOptions
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List contacts, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vm, err := rootOpts.loadedModel(cmd.Context())
			if err != nil {
				return err
			}
			view.apply(vm)
			return rootOpts.output(cmd.OutOrStdout(), vm.Visible(), vm.WriteList)
		},
	}
	view.register(cmd)
	return cmd
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	var view viewOptions
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print totals and the grouped histogram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vm, err := rootOpts.loadedModel(cmd.Context())
			if err != nil {
				return err
			}
			view.apply(vm)
			return rootOpts.output(cmd.OutOrStdout(), vm.Summary(), vm.WriteSummary)
		},
	}
	view.register(cmd)
	return cmd
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add field=value...",
		Short: "Create a contact",
		Example: `  contactctl add name="Ada Lovelace" company=Analytics tags=math,poetry
  contactctl add name=Grace company=Navy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			vm, err := rootOpts.model(cmd.Context())
			if err != nil {
				return err
			}
			vm.OpenNew()
			return save(cmd.Context(), rootOpts, cmd.OutOrStdout(), vm, args)
		},
	}
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> field=value...",
		Short: "Update fields of a contact",
		Long: `Update fields of a contact.

Fields not named keep their current value; an empty value clears a field.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vm, err := rootOpts.loadedModel(cmd.Context())
			if err != nil {
				return err
			}
			if err := vm.Open(args[0]); err != nil {
				return err
			}
			return save(cmd.Context(), rootOpts, cmd.OutOrStdout(), vm, args[1:])
		},
	}
}

// save submits the editor of vm with the assignments applied over its form.
func save(ctx context.Context, opts *RootOptions, w io.Writer, vm *viewmodel.Model, args []string) error {
	changes, err := parseAssignments(vm.Schema(), args)
	if err != nil {
		return err
	}
	form := vm.Form()
	maps.Copy(form, changes)
	rec, err := vm.Save(ctx, form)
	if err != nil {
		return err
	}
	return opts.output(w, rec, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Saved %s [%s]\n", vm.Title(rec), rec.ID())
		return err
	})
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a contact",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vm, err := rootOpts.model(cmd.Context())
			if err != nil {
				return err
			}
			if err := vm.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return rootOpts.output(cmd.OutOrStdout(), map[string]string{"deleted": args[0]}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Deleted %s\n", args[0])
				return err
			})
		},
	}
}

var errNotConfirmed = errors.New("refusing to delete all contacts without --yes")

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errNotConfirmed
			}
			vm, err := rootOpts.model(cmd.Context())
			if err != nil {
				return err
			}
			if err := vm.DeleteAll(cmd.Context()); err != nil {
				return err
			}
			return rootOpts.output(cmd.OutOrStdout(), map[string]bool{"ok": true}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, "Deleted all contacts")
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deleting every contact")
	return cmd
}
