package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/hekaconf/internal/plugin"
	"github.com/obsidianstack/hekaconf/internal/reconcile"
)

func newRemoveCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "remove KIND NAME",
		Short: "Remove the fragment of one plugin instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := reconcile.New(a.cfg, reconcile.WithLogger(a.logger), reconcile.WithDryRun(dryRun))
			res, err := rec.Reconcile(plugin.Definition{Kind: args[0], Name: args[1], Ensure: plugin.EnsureAbsent})
			if err != nil {
				return err
			}
			suffix := ""
			if res.DryRun {
				suffix = " (dry-run)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s%s\n", res.Action, res.Path, suffix)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without touching the filesystem")
	return cmd
}
