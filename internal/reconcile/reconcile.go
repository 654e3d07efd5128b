package reconcile

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/obsidianstack/hekaconf/internal/config"
	"github.com/obsidianstack/hekaconf/internal/lifecycle"
	"github.com/obsidianstack/hekaconf/internal/plugin"
	"github.com/obsidianstack/hekaconf/internal/registry"
	"github.com/obsidianstack/hekaconf/internal/render"
	"github.com/obsidianstack/hekaconf/internal/validator"
)

// Files applies a desired file state. *lifecycle.Manager implements it.
type Files interface {
	Reconcile(t lifecycle.FileTarget, content []byte) (lifecycle.Result, error)
}

// Reconciler turns plugin definitions into files under the config directory.
// It is safe for concurrent use.
type Reconciler struct {
	registry *registry.Registry
	renderer *render.Renderer
	files    Files
	logger   *slog.Logger

	configDir string
	extension string
	owner     string
	group     string
	mode      os.FileMode
	workers   int
	dryRun    bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// WithRegistry replaces the built-in plugin catalog.
func WithRegistry(reg *registry.Registry) Option {
	return func(r *Reconciler) { r.registry = reg }
}

// WithFiles replaces the lifecycle manager.
func WithFiles(f Files) Option {
	return func(r *Reconciler) { r.files = f }
}

// WithDryRun computes actions without writing or removing anything.
func WithDryRun(dryRun bool) Option {
	return func(r *Reconciler) { r.dryRun = dryRun }
}

// New returns a Reconciler for cfg.
func New(cfg *config.Config, opts ...Option) *Reconciler {
	r := &Reconciler{
		registry:  registry.Default(),
		renderer:  render.New(cfg.ManagedBy),
		logger:    slog.Default(),
		configDir: cfg.ConfigDir,
		extension: cfg.Extension,
		owner:     cfg.Owner,
		group:     cfg.Group,
		mode:      cfg.Mode.Perm(),
		workers:   cfg.Workers,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.files == nil {
		r.files = lifecycle.New(lifecycle.WithLogger(r.logger), lifecycle.WithDryRun(r.dryRun))
	}
	if r.workers < 1 {
		r.workers = 1
	}
	return r
}

// Registry returns the catalog the Reconciler resolves kinds against.
func (r *Reconciler) Registry() *registry.Registry { return r.registry }

// Reconcile brings the file for def to its desired state. Lookup and
// validation errors are returned before anything on disk is touched.
func (r *Reconciler) Reconcile(def plugin.Definition) (lifecycle.Result, error) {
	entry, params, err := r.resolve(def)
	if err != nil {
		return lifecycle.Result{}, err
	}

	// Validate has already accepted the ensure value.
	ensure, _ := plugin.ParseEnsure(string(def.Ensure))

	target := lifecycle.FileTarget{
		Path:   r.Path(entry, def.Name),
		Owner:  r.owner,
		Group:  r.group,
		Mode:   r.mode,
		Ensure: ensure,
	}

	var content []byte
	if ensure == plugin.EnsurePresent {
		content = r.renderer.Render(entry, def.Name, params)
	}
	return r.files.Reconcile(target, content)
}

// Render validates def as a present definition and returns its fragment
// without touching the filesystem.
func (r *Reconciler) Render(def plugin.Definition) ([]byte, error) {
	def.Ensure = plugin.EnsurePresent
	entry, params, err := r.resolve(def)
	if err != nil {
		return nil, err
	}
	return r.renderer.Render(entry, def.Name, params), nil
}

// Path returns the fragment path for an instance of entry.
func (r *Reconciler) Path(entry *registry.Entry, name string) string {
	return filepath.Join(r.configDir, entry.FileName(name, r.extension))
}

func (r *Reconciler) resolve(def plugin.Definition) (*registry.Entry, plugin.Params, error) {
	entry, err := r.registry.Lookup(def.Kind)
	if err != nil {
		return nil, nil, err
	}
	params, err := validator.Validate(entry, def)
	if err != nil {
		return nil, nil, err
	}
	return entry, params, nil
}
