package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/obsidianstack/hekaconf/internal/plugin"
	"github.com/obsidianstack/hekaconf/internal/registry"
)

func newPluginsCmd(_ *app) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List the plugin kinds in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := registry.Default()
			entries := reg.Entries()
			if category != "" {
				c := plugin.Category(strings.ToLower(category))
				if !slices.Contains(plugin.Categories, c) {
					return fmt.Errorf("unknown category %q", category)
				}
				entries = reg.ByCategory(c)
			}

			t := table.NewWriter()
			t.SetStyle(table.StyleLight)
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"KIND", "CATEGORY", "REQUIRED", "PARAMETERS"})
			for _, e := range entries {
				var required []string
				for _, s := range e.Specs() {
					if s.Required {
						required = append(required, s.Name)
					}
				}
				t.AppendRow(table.Row{e.Kind, e.Category, strings.Join(required, ", "), len(e.Specs())})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list kinds of this category (input, decoder, splitter, filter, output, encoder)")
	return cmd
}
