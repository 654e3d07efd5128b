package metrics

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/obsidianstack/hekaconf/internal/lifecycle"
	"github.com/obsidianstack/hekaconf/internal/plugin"
)

// Metric family names.
const (
	ReconcileTotal       = "hekaconf_reconcile_total"
	ReconcileErrorsTotal = "hekaconf_reconcile_errors_total"
	LastRunTimestamp     = "hekaconf_last_run_timestamp_seconds"
	LastRunDuration      = "hekaconf_last_run_duration_seconds"
)

// Run summarises one apply pass.
type Run struct {
	// Actions counts definitions by lifecycle action.
	Actions map[string]int

	// Errors counts failed definitions by reason.
	Errors map[string]int

	Finished time.Time
	Duration time.Duration
}

// Writer persists a file target. *lifecycle.Manager implements it.
type Writer interface {
	Reconcile(t lifecycle.FileTarget, content []byte) (lifecycle.Result, error)
}

// Textfile records runs into a .prom file.
type Textfile struct {
	Path  string
	Owner string
	Group string

	w Writer
}

// NewTextfile returns a Textfile writing path through w.
func NewTextfile(path, owner, group string, w Writer) *Textfile {
	return &Textfile{Path: path, Owner: owner, Group: group, w: w}
}

// Record adds run to the counters in the existing file and rewrites it. An
// unreadable previous file resets the counters.
func (t *Textfile) Record(run Run) error {
	prev, err := ReadFile(t.Path)
	if err != nil {
		slog.Warn("metrics: previous textfile unreadable, resetting counters", "path", t.Path, "err", err)
		prev = nil
	}

	data, err := Encode(prev, run)
	if err != nil {
		return err
	}

	target := lifecycle.FileTarget{
		Path:   t.Path,
		Owner:  t.Owner,
		Group:  t.Group,
		Mode:   lifecycle.DefaultMode,
		Ensure: plugin.EnsurePresent,
	}
	if _, err := t.w.Reconcile(target, data); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}

// ReadFile parses the textfile at path. A missing file yields no families.
func ReadFile(path string) (map[string]*dto.MetricFamily, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metrics: open textfile: %w", err)
	}
	defer f.Close()
	return parseMetrics(f)
}

// parseMetrics decodes a Prometheus text exposition from r into metric families.
// A partial result with a non-fatal parse warning is still returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("metrics: parse prometheus text: %w", err)
	}
	return mfs, nil
}

// Encode renders run in the text exposition format, adding its counts to the
// counters found in prev.
func Encode(prev map[string]*dto.MetricFamily, run Run) ([]byte, error) {
	families := []*dto.MetricFamily{
		counterFamily(ReconcileTotal, "Plugin definitions reconciled, by action.",
			"action", accumulate(prev[ReconcileTotal], "action", run.Actions)),
		counterFamily(ReconcileErrorsTotal, "Plugin definitions that failed to reconcile, by reason.",
			"reason", accumulate(prev[ReconcileErrorsTotal], "reason", run.Errors)),
		gaugeFamily(LastRunTimestamp, "Unix time the last apply run finished.",
			float64(run.Finished.UnixNano())/1e9),
		gaugeFamily(LastRunDuration, "Duration of the last apply run in seconds.",
			run.Duration.Seconds()),
	}

	var buf bytes.Buffer
	for _, mf := range families {
		if len(mf.GetMetric()) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}

// accumulate returns the previous per-label values plus cur.
func accumulate(prev *dto.MetricFamily, label string, cur map[string]int) map[string]float64 {
	out := make(map[string]float64, len(cur))
	for _, m := range prev.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label {
				out[lp.GetValue()] += value(m)
			}
		}
	}
	for k, v := range cur {
		out[k] += float64(v)
	}
	return out
}

// value reads a sample regardless of how the previous file typed it.
func value(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Untyped != nil:
		return m.Untyped.GetValue()
	}
	return 0
}

func counterFamily(name, help, label string, vals map[string]float64) *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		mf.Metric = append(mf.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: proto.String(label), Value: proto.String(k)}},
			Counter: &dto.Counter{Value: proto.Float64(vals[k])},
		})
	}
	return mf
}

func gaugeFamily(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(v)}}},
	}
}
