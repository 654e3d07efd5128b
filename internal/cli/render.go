package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/hekaconf/internal/plugin"
	"github.com/obsidianstack/hekaconf/internal/reconcile"
	"github.com/obsidianstack/hekaconf/internal/registry"
)

func newRenderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "render KIND NAME [key=value ...]",
		Short: "Validate one definition and print its fragment",
		Long: `Validate one definition and print the rendered fragment to stdout
without touching the configuration directory. List parameters take a
comma-separated value, e.g. fields=Timestamp,Payload.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := reconcile.New(a.cfg, reconcile.WithLogger(a.logger))
			entry, err := rec.Registry().Lookup(args[0])
			if err != nil {
				return err
			}
			params, err := parseAssignments(entry, args[2:])
			if err != nil {
				return err
			}
			out, err := rec.Render(plugin.Definition{Kind: args[0], Name: args[1], Parameters: params})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// parseAssignments turns key=value arguments into raw parameters. Values stay
// strings for the validator to coerce, except list parameters, which are
// split on commas.
func parseAssignments(entry *registry.Entry, args []string) (map[string]any, error) {
	params := make(map[string]any, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", arg)
		}
		if s, known := entry.Spec(k); known && s.Type == plugin.TypeList {
			items := []string{}
			for _, item := range strings.Split(v, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			params[k] = items
			continue
		}
		params[k] = v
	}
	return params, nil
}
