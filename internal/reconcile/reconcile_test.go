package reconcile

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/obsidianstack/hekaconf/internal/config"
	"github.com/obsidianstack/hekaconf/internal/lifecycle"
	"github.com/obsidianstack/hekaconf/internal/plugin"
	"github.com/obsidianstack/hekaconf/internal/registry"
)

func testConfig(dir string) *config.Config {
	return &config.Config{
		ConfigDir: dir,
		Extension: config.DefaultExtension,
		Owner:     strconv.Itoa(os.Getuid()),
		Group:     strconv.Itoa(os.Getgid()),
		Mode:      config.DefaultMode,
		ManagedBy: config.DefaultManagedBy,
		Workers:   config.DefaultWorkers,
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newReconciler(t *testing.T, opts ...Option) (*Reconciler, string) {
	t.Helper()
	dir := t.TempDir()
	opts = append([]Option{WithLogger(discard())}, opts...)
	return New(testConfig(dir), opts...), dir
}

func amqp(ensure plugin.Ensure) plugin.Definition {
	return plugin.Definition{
		Kind: "AMQPInput",
		Name: "amqpinput",
		Parameters: map[string]any{
			"url":           "url",
			"exchange":      "exchange",
			"exchange_type": "exchange_type",
		},
		Ensure: ensure,
	}
}

// spyFiles records calls and never touches disk.
type spyFiles struct {
	mu    sync.Mutex
	calls []lifecycle.FileTarget
}

func (s *spyFiles) Reconcile(t lifecycle.FileTarget, _ []byte) (lifecycle.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, t)
	return lifecycle.Result{Path: t.Path, Action: lifecycle.ActionCreated}, nil
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

// --- single definition ---

func TestReconcile_PresentCreatesFile(t *testing.T) {
	r, dir := newReconciler(t)

	res, err := r.Reconcile(amqp(plugin.EnsurePresent))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	path := filepath.Join(dir, "amqpinput_amqpinput.toml")
	if res.Path != path || res.Action != lifecycle.ActionCreated {
		t.Errorf("result: got %+v", res)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fragment: %v", err)
	}
	for _, want := range []string{"[amqpinput_amqpinput]\n", "type = \"AMQPInput\"\n", "url = \"url\"\n"} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("fragment missing %q:\n%s", want, data)
		}
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode: got %04o", info.Mode().Perm())
	}
}

func TestReconcile_AbsentRemovesFile(t *testing.T) {
	r, dir := newReconciler(t)
	path := filepath.Join(dir, "amqpinput_amqpinput.toml")

	if _, err := r.Reconcile(amqp(plugin.EnsurePresent)); err != nil {
		t.Fatalf("create: %v", err)
	}

	absent := plugin.Definition{Kind: "AMQPInput", Name: "amqpinput", Ensure: plugin.EnsureAbsent}
	res, err := r.Reconcile(absent)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if res.Action != lifecycle.ActionDeleted {
		t.Errorf("action: got %s, want deleted", res.Action)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("file still present: %v", err)
	}

	res, err = r.Reconcile(absent)
	if err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if res.Action != lifecycle.ActionAbsent {
		t.Errorf("second action: got %s, want absent", res.Action)
	}
}

func TestReconcile_AbsentIgnoresParameters(t *testing.T) {
	r, _ := newReconciler(t)
	def := plugin.Definition{
		Kind:       "AMQPInput",
		Name:       "amqpinput",
		Parameters: map[string]any{"bogus": 1},
		Ensure:     plugin.EnsureAbsent,
	}
	res, err := r.Reconcile(def)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Action != lifecycle.ActionAbsent {
		t.Errorf("action: got %s, want absent", res.Action)
	}
}

func TestReconcile_MissingURLWritesNothing(t *testing.T) {
	spy := &spyFiles{}
	r, _ := newReconciler(t, WithFiles(spy))

	def := amqp(plugin.EnsurePresent)
	delete(def.Parameters, "url")

	_, err := r.Reconcile(def)
	if !errors.Is(err, plugin.ErrMissingRequiredParameter) {
		t.Fatalf("expected ErrMissingRequiredParameter, got %v", err)
	}
	var missing *plugin.MissingRequiredParameterError
	if !errors.As(err, &missing) || missing.Name != "url" {
		t.Errorf("missing parameter: got %+v", missing)
	}
	if len(spy.calls) != 0 {
		t.Errorf("file manager called %d times, want 0", len(spy.calls))
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	r, dir := newReconciler(t)
	path := filepath.Join(dir, "amqpinput_amqpinput.toml")

	if _, err := r.Reconcile(amqp("")); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	first, _ := os.ReadFile(path)

	res, err := r.Reconcile(amqp(""))
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	second, _ := os.ReadFile(path)

	if !bytes.Equal(first, second) {
		t.Errorf("content changed between passes:\n%s\nvs\n%s", first, second)
	}
	if res.Action != lifecycle.ActionUnchanged || res.Changed() {
		t.Errorf("second pass: got %+v, want unchanged", res)
	}
}

func TestReconcile_RequiredParametersForEveryKind(t *testing.T) {
	spy := &spyFiles{}
	r, _ := newReconciler(t, WithFiles(spy))

	for _, e := range r.Registry().Entries() {
		var required []string
		for _, s := range e.Specs() {
			if s.Required {
				required = append(required, s.Name)
			}
		}
		if len(required) == 0 {
			continue
		}
		t.Run(e.Kind, func(t *testing.T) {
			_, err := r.Reconcile(plugin.Definition{Kind: e.Kind, Name: "x"})
			if !errors.Is(err, plugin.ErrMissingRequiredParameter) {
				t.Fatalf("expected ErrMissingRequiredParameter, got %v", err)
			}
			for _, name := range required {
				if !strings.Contains(err.Error(), strconv.Quote(name)) {
					t.Errorf("error does not name %q: %v", name, err)
				}
			}
		})
	}
	if len(spy.calls) != 0 {
		t.Errorf("file manager called %d times, want 0", len(spy.calls))
	}
}

func TestReconcile_SectionReflectsKindAndName(t *testing.T) {
	r, dir := newReconciler(t)
	for _, name := range []string{"a", "b", "syslog"} {
		def := plugin.Definition{Kind: "UdpInput", Name: name, Parameters: map[string]any{"address": ":514"}}
		if _, err := r.Reconcile(def); err != nil {
			t.Fatalf("Reconcile(%s): %v", name, err)
		}
		data, err := os.ReadFile(filepath.Join(dir, "udpinput_"+name+".toml"))
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !strings.Contains(string(data), "\n[udpinput_"+name+"]\ntype = \"UdpInput\"\n") {
			t.Errorf("%s: section or type wrong:\n%s", name, data)
		}
	}
}

func TestReconcile_UnknownKind(t *testing.T) {
	r, dir := newReconciler(t)
	_, err := r.Reconcile(plugin.Definition{Kind: "amqpinput", Name: "x"})
	if !errors.Is(err, plugin.ErrUnknownPluginKind) {
		t.Fatalf("expected ErrUnknownPluginKind, got %v", err)
	}
	if got := listDir(t, dir); len(got) != 0 {
		t.Errorf("files written: %v", got)
	}
}

func TestReconcile_BadNameRejected(t *testing.T) {
	r, _ := newReconciler(t)
	def := plugin.Definition{Kind: "UdpInput", Name: "../escape", Parameters: map[string]any{"address": ":514"}}
	_, err := r.Reconcile(def)
	if !errors.Is(err, plugin.ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition, got %v", err)
	}
}

func TestRender_RejectsNamesThatBreakTheSection(t *testing.T) {
	spy := &spyFiles{}
	r, _ := newReconciler(t, WithFiles(spy))
	names := []string{
		"my.input",
		"two words",
		"a]",
		"a\nb",
		"a]\n[evil]\ntype = \"LogOutput\"\n#",
	}
	for _, name := range names {
		def := plugin.Definition{Kind: "UdpInput", Name: name, Parameters: map[string]any{"address": ":514"}}
		out, err := r.Render(def)
		if !errors.Is(err, plugin.ErrInvalidDefinition) {
			t.Errorf("Render(%q): expected ErrInvalidDefinition, got %v", name, err)
		}
		if out != nil {
			t.Errorf("Render(%q): emitted fragment:\n%s", name, out)
		}
		if _, err := r.Reconcile(def); !errors.Is(err, plugin.ErrInvalidDefinition) {
			t.Errorf("Reconcile(%q): expected ErrInvalidDefinition, got %v", name, err)
		}
	}
	if len(spy.calls) != 0 {
		t.Errorf("file manager called %d times, want 0", len(spy.calls))
	}
}

func TestReconcile_CustomExtensionAndOwner(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Extension = "conf"
	cfg.Mode = 0o600
	spy := &spyFiles{}
	r := New(cfg, WithLogger(discard()), WithFiles(spy))

	if _, err := r.Reconcile(amqp("")); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	got := spy.calls[0]
	if got.Path != filepath.Join(dir, "amqpinput_amqpinput.conf") {
		t.Errorf("path: got %q", got.Path)
	}
	if got.Mode != 0o600 || got.Owner != cfg.Owner || got.Group != cfg.Group {
		t.Errorf("target: got %+v", got)
	}
	if got.Ensure != plugin.EnsurePresent {
		t.Errorf("ensure: got %q, want present", got.Ensure)
	}
}

func TestRender_NoDisk(t *testing.T) {
	r, dir := newReconciler(t)
	out, err := r.Render(amqp(plugin.EnsureAbsent))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("# This file is controlled via puppet.\n[amqpinput_amqpinput]\n")) {
		t.Errorf("unexpected fragment:\n%s", out)
	}
	if got := listDir(t, dir); len(got) != 0 {
		t.Errorf("Render wrote files: %v", got)
	}
}

func TestNew_CustomRegistry(t *testing.T) {
	reg := registry.New([]*registry.Entry{{Kind: "OnlyInput", Category: plugin.CategoryInput}})
	r, _ := newReconciler(t, WithRegistry(reg), WithFiles(&spyFiles{}))
	if _, err := r.Reconcile(plugin.Definition{Kind: "OnlyInput", Name: "x"}); err != nil {
		t.Errorf("OnlyInput: %v", err)
	}
	if _, err := r.Reconcile(plugin.Definition{Kind: "UdpInput", Name: "x"}); !errors.Is(err, plugin.ErrUnknownPluginKind) {
		t.Errorf("UdpInput: expected ErrUnknownPluginKind, got %v", err)
	}
}

// --- batch ---

func TestApply_PartialFailure(t *testing.T) {
	r, dir := newReconciler(t)

	bad := amqp("")
	bad.Name = "broken"
	delete(bad.Parameters, "url")

	defs := []plugin.Definition{
		amqp(""),
		bad,
		{Kind: "NoSuchInput", Name: "x"},
		{Kind: "UdpInput", Name: "syslog", Parameters: map[string]any{"address": ":514"}},
		{Kind: "TcpOutput", Name: "gone", Ensure: plugin.EnsureAbsent},
	}
	rep := r.Apply(context.Background(), defs)

	if rep.RunID == "" {
		t.Error("run id is empty")
	}
	if len(rep.Outcomes) != len(defs) {
		t.Fatalf("outcomes: got %d, want %d", len(rep.Outcomes), len(defs))
	}
	for i, o := range rep.Outcomes {
		if o.Definition.ID() != defs[i].ID() {
			t.Errorf("outcome %d: got %s, want %s", i, o.Definition.ID(), defs[i].ID())
		}
	}
	if rep.Failed() != 2 {
		t.Errorf("failed: got %d, want 2", rep.Failed())
	}
	if !errors.Is(rep.Err(), plugin.ErrMissingRequiredParameter) || !errors.Is(rep.Err(), plugin.ErrUnknownPluginKind) {
		t.Errorf("joined error: got %v", rep.Err())
	}
	if !strings.Contains(rep.Err().Error(), "AMQPInput/broken: ") {
		t.Errorf("joined error does not name the definition: %v", rep.Err())
	}

	actions := rep.Actions()
	if actions["created"] != 2 || actions["absent"] != 1 || actions["updated"] != 0 {
		t.Errorf("actions: got %v", actions)
	}
	reasons := rep.Reasons()
	if reasons["missing_parameter"] != 1 || reasons["unknown_kind"] != 1 {
		t.Errorf("reasons: got %v", reasons)
	}

	got := listDir(t, dir)
	want := []string{"amqpinput_amqpinput.toml", "udpinput_syslog.toml"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("files: got %v, want %v", got, want)
	}
}

func TestApply_AllSucceed(t *testing.T) {
	r, _ := newReconciler(t)
	rep := r.Apply(context.Background(), []plugin.Definition{amqp("")})
	if err := rep.Err(); err != nil {
		t.Errorf("Err: %v", err)
	}
	if rep.Duration <= 0 {
		t.Errorf("duration: got %v", rep.Duration)
	}
}

func TestApply_DuplicatesRejected(t *testing.T) {
	r, dir := newReconciler(t)
	rep := r.Apply(context.Background(), []plugin.Definition{amqp(""), amqp(plugin.EnsureAbsent)})

	for i, o := range rep.Outcomes {
		if !errors.Is(o.Err, plugin.ErrInvalidDefinition) {
			t.Errorf("outcome %d: expected ErrInvalidDefinition, got %v", i, o.Err)
		}
	}
	if got := listDir(t, dir); len(got) != 0 {
		t.Errorf("files written: %v", got)
	}
}

func TestApply_Canceled(t *testing.T) {
	spy := &spyFiles{}
	r, _ := newReconciler(t, WithFiles(spy))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep := r.Apply(ctx, []plugin.Definition{amqp("")})
	if !errors.Is(rep.Outcomes[0].Err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", rep.Outcomes[0].Err)
	}
	if Reason(rep.Outcomes[0].Err) != "canceled" {
		t.Errorf("reason: got %q", Reason(rep.Outcomes[0].Err))
	}
	if len(spy.calls) != 0 {
		t.Errorf("file manager called after cancel")
	}
}

func TestApply_DryRun(t *testing.T) {
	r, dir := newReconciler(t, WithDryRun(true))
	rep := r.Apply(context.Background(), []plugin.Definition{amqp("")})
	if err := rep.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	o := rep.Outcomes[0]
	if o.Result.Action != lifecycle.ActionCreated || !o.Result.DryRun {
		t.Errorf("result: got %+v", o.Result)
	}
	if got := listDir(t, dir); len(got) != 0 {
		t.Errorf("dry run wrote files: %v", got)
	}
}

func TestApply_ManyWorkers(t *testing.T) {
	r, dir := newReconciler(t)
	var defs []plugin.Definition
	for i := 0; i < 40; i++ {
		defs = append(defs, plugin.Definition{
			Kind:       "UdpInput",
			Name:       "u" + strconv.Itoa(i),
			Parameters: map[string]any{"address": ":" + strconv.Itoa(5000+i)},
		})
	}
	rep := r.Apply(context.Background(), defs)
	if err := rep.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if got := len(listDir(t, dir)); got != 40 {
		t.Errorf("files: got %d, want 40", got)
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&plugin.UnknownPluginKindError{Kind: "X"}, "unknown_kind"},
		{&plugin.ValidationError{Errs: []error{&plugin.MissingRequiredParameterError{Name: "url"}}}, "missing_parameter"},
		{&plugin.ValidationError{Errs: []error{&plugin.UnknownParameterError{Name: "x"}}}, "unknown_parameter"},
		{&plugin.ValidationError{Errs: []error{&plugin.TypeMismatchError{Name: "x"}}}, "type_mismatch"},
		{&plugin.InvalidDefinitionError{Reason: "dup"}, "invalid_definition"},
		{context.DeadlineExceeded, "canceled"},
		{&lifecycle.ReconcileError{Path: "/x", Op: "rename", Err: fs.ErrPermission}, "reconcile"},
	}
	for _, tc := range tests {
		if got := Reason(tc.err); got != tc.want {
			t.Errorf("Reason(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
