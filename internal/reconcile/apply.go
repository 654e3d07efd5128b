package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/obsidianstack/hekaconf/internal/lifecycle"
	"github.com/obsidianstack/hekaconf/internal/plugin"
)

// Outcome is the per-definition result of a batch.
type Outcome struct {
	Definition plugin.Definition
	Result     lifecycle.Result
	Err        error
}

// Report is the result of one Apply call. Outcomes are in input order.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Outcomes []Outcome
}

// Failed returns the number of definitions that did not reconcile.
func (rep *Report) Failed() int {
	n := 0
	for _, o := range rep.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Err joins every per-definition error, or returns nil if all succeeded.
func (rep *Report) Err() error {
	var errs []error
	for _, o := range rep.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Definition.ID(), o.Err))
		}
	}
	return errors.Join(errs...)
}

// Actions counts successful outcomes by lifecycle action. Every action is
// present, zero or not.
func (rep *Report) Actions() map[string]int {
	out := map[string]int{
		string(lifecycle.ActionCreated):   0,
		string(lifecycle.ActionUpdated):   0,
		string(lifecycle.ActionUnchanged): 0,
		string(lifecycle.ActionDeleted):   0,
		string(lifecycle.ActionAbsent):    0,
	}
	for _, o := range rep.Outcomes {
		if o.Err == nil {
			out[string(o.Result.Action)]++
		}
	}
	return out
}

// Reasons counts failed outcomes by Reason.
func (rep *Report) Reasons() map[string]int {
	out := make(map[string]int)
	for _, o := range rep.Outcomes {
		if o.Err != nil {
			out[Reason(o.Err)]++
		}
	}
	return out
}

// Apply reconciles defs concurrently, at most cfg.Workers at a time. Every
// occurrence of a duplicated kind+name is rejected without touching disk.
// Cancelling ctx stops definitions that have not started yet; they report
// the context error.
func (r *Reconciler) Apply(ctx context.Context, defs []plugin.Definition) *Report {
	rep := &Report{
		RunID:    uuid.NewString(),
		Started:  time.Now(),
		Outcomes: make([]Outcome, len(defs)),
	}
	log := r.logger.With("run_id", rep.RunID)
	log.Info("reconcile: apply started", "definitions", len(defs), "workers", r.workers, "dry_run", r.dryRun)

	dups := duplicates(defs)

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, def := range defs {
		def := def // per-iteration copy for the goroutine below (pre-Go 1.22 loop semantics)
		out := &rep.Outcomes[i]
		out.Definition = def

		if dups[def.ID()] > 1 {
			out.Err = &plugin.InvalidDefinitionError{
				Kind:   def.Kind,
				Name:   def.Name,
				Reason: fmt.Sprintf("defined %d times", dups[def.ID()]),
			}
			log.Error("reconcile: failed", "id", def.ID(), "reason", Reason(out.Err), "err", out.Err)
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out.Err = err
				return nil
			}
			out.Result, out.Err = r.Reconcile(def)
			if out.Err != nil {
				log.Error("reconcile: failed", "id", def.ID(), "reason", Reason(out.Err), "err", out.Err)
				return nil
			}
			log.Info("reconcile: done", "id", def.ID(), "path", out.Result.Path,
				"action", out.Result.Action, "repaired", out.Result.Repaired)
			return nil
		})
	}
	_ = g.Wait()

	rep.Duration = time.Since(rep.Started)
	log.Info("reconcile: apply finished",
		"definitions", len(defs), "failed", rep.Failed(), "duration", rep.Duration)
	return rep
}

func duplicates(defs []plugin.Definition) map[string]int {
	seen := make(map[string]int, len(defs))
	for _, d := range defs {
		seen[d.ID()]++
	}
	return seen
}

// Reason classifies err into a short stable label.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, plugin.ErrUnknownPluginKind):
		return "unknown_kind"
	case errors.Is(err, plugin.ErrInvalidDefinition):
		return "invalid_definition"
	case errors.Is(err, plugin.ErrMissingRequiredParameter):
		return "missing_parameter"
	case errors.Is(err, plugin.ErrUnknownParameter):
		return "unknown_parameter"
	case errors.Is(err, plugin.ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "reconcile"
	}
}
