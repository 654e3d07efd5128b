package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/obsidianstack/hekaconf/internal/lifecycle"
	"github.com/obsidianstack/hekaconf/internal/manifest"
	"github.com/obsidianstack/hekaconf/internal/metrics"
	"github.com/obsidianstack/hekaconf/internal/plugin"
	"github.com/obsidianstack/hekaconf/internal/reconcile"
)

func newApplyCmd(a *app) *cobra.Command {
	var (
		manifestPath string
		dryRun       bool
		watch        bool
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Reconcile every plugin definition in the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := manifestPath
			if path == "" {
				path = a.cfg.Manifest
			}
			rec := reconcile.New(a.cfg, reconcile.WithLogger(a.logger), reconcile.WithDryRun(dryRun))

			run := func(ctx context.Context, defs []plugin.Definition) error {
				rep := rec.Apply(ctx, defs)
				printReport(cmd.OutOrStdout(), rep)
				if !dryRun {
					a.recordMetrics(rep)
				}
				return rep.Err()
			}

			defs, err := manifest.Load(path)
			if err != nil {
				return err
			}
			err = run(cmd.Context(), defs)
			if !watch {
				return err
			}
			if err != nil {
				a.logger.Error("apply: some definitions failed", "err", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return manifest.Watch(ctx, path, func(defs []plugin.Definition) {
				if err := run(ctx, defs); err != nil {
					a.logger.Error("apply: some definitions failed", "err", err)
				}
			})
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "plugin manifest to apply (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without touching the filesystem")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-apply whenever the manifest changes")
	return cmd
}

// recordMetrics updates the textfile, if configured. Failures are logged only.
func (a *app) recordMetrics(rep *reconcile.Report) {
	if a.cfg.Metrics.Textfile == "" {
		return
	}
	tf := metrics.NewTextfile(a.cfg.Metrics.Textfile, a.cfg.Owner, a.cfg.Group,
		lifecycle.New(lifecycle.WithLogger(a.logger)))
	err := tf.Record(metrics.Run{
		Actions:  rep.Actions(),
		Errors:   rep.Reasons(),
		Finished: rep.Started.Add(rep.Duration),
		Duration: rep.Duration,
	})
	if err != nil {
		a.logger.Warn("apply: metrics not written", "path", a.cfg.Metrics.Textfile, "err", err)
	}
}

func printReport(w io.Writer, rep *reconcile.Report) {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"KIND", "NAME", "ACTION", "PATH", "ERROR"})
	for _, o := range rep.Outcomes {
		action := string(o.Result.Action)
		switch {
		case o.Err != nil:
			action = "failed"
		case o.Result.Repaired:
			action += " (repaired)"
		}
		if o.Result.DryRun && o.Err == nil {
			action += " (dry-run)"
		}
		errText := ""
		if o.Err != nil {
			errText = fmt.Sprintf("%s: %v", reconcile.Reason(o.Err), o.Err)
		}
		t.AppendRow(table.Row{o.Definition.Kind, o.Definition.Name, action, o.Result.Path, errText})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d failed", rep.Failed()), fmt.Sprintf("%d total", len(rep.Outcomes)), ""})
	t.Render()
}
