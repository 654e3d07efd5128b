package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/obsidianstack/hekaconf/internal/plugin"
)

// Entry is the catalog record for one plugin kind.
type Entry struct {
	Kind     string
	Category plugin.Category

	// Common holds the settings shared by every kind of Category, rendered
	// before the kind-specific block.
	Common []plugin.ParamSpec

	// Params holds the kind-specific settings in render order.
	Params []plugin.ParamSpec
}

// Specs returns the full ordered parameter set: common settings first.
func (e *Entry) Specs() []plugin.ParamSpec {
	out := make([]plugin.ParamSpec, 0, len(e.Common)+len(e.Params))
	out = append(out, e.Common...)
	return append(out, e.Params...)
}

// Spec returns the ParamSpec named name and whether it exists.
func (e *Entry) Spec(name string) (plugin.ParamSpec, bool) {
	for _, s := range e.Common {
		if s.Name == name {
			return s, true
		}
	}
	for _, s := range e.Params {
		if s.Name == name {
			return s, true
		}
	}
	return plugin.ParamSpec{}, false
}

// Prefix is the lower-cased kind used in file names and section headers.
func (e *Entry) Prefix() string {
	return strings.ToLower(e.Kind)
}

// Section returns the TOML section name for instance name: "<prefix>_<name>".
func (e *Entry) Section(name string) string {
	return e.Prefix() + "_" + name
}

// FileName returns "<prefix>_<name>.<ext>".
func (e *Entry) FileName(name, ext string) string {
	return e.Section(name) + "." + ext
}

// Registry is a read-only catalog of plugin kinds.
type Registry struct {
	entries map[string]*Entry
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the built-in Heka catalog. It is built once on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New(catalog())
	})
	return defaultRegistry
}

// New builds a Registry from entries. A later entry with the same kind
// replaces an earlier one.
func New(entries []*Entry) *Registry {
	r := &Registry{entries: make(map[string]*Entry, len(entries))}
	for _, e := range entries {
		r.entries[e.Kind] = e
	}
	return r
}

// Lookup returns the entry for kind. Kinds are matched exactly.
func (r *Registry) Lookup(kind string) (*Entry, error) {
	e, ok := r.entries[kind]
	if !ok {
		return nil, &plugin.UnknownPluginKindError{Kind: kind}
	}
	return e, nil
}

// Entries returns all entries sorted by category (catalog order), then kind.
func (r *Registry) Entries() []*Entry {
	rank := make(map[plugin.Category]int, len(plugin.Categories))
	for i, c := range plugin.Categories {
		rank[c] = i
	}
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return rank[out[i].Category] < rank[out[j].Category]
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// ByCategory returns the sorted entries of one category.
func (r *Registry) ByCategory(c plugin.Category) []*Entry {
	var out []*Entry
	for _, e := range r.Entries() {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

// Kinds returns every registered kind, sorted as Entries.
func (r *Registry) Kinds() []string {
	entries := r.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Kind
	}
	return out
}

// checkCatalog verifies structural invariants of a catalog: no parameter is
// declared twice for a kind and defaults match their declared type.
func checkCatalog(entries []*Entry) error {
	for _, e := range entries {
		seen := make(map[string]bool)
		for _, s := range e.Specs() {
			if seen[s.Name] {
				return fmt.Errorf("registry: %s: parameter %q declared twice", e.Kind, s.Name)
			}
			seen[s.Name] = true
			if s.Default == nil {
				continue
			}
			ok := false
			switch s.Type {
			case plugin.TypeString:
				_, ok = s.Default.(string)
			case plugin.TypeBool:
				_, ok = s.Default.(bool)
			case plugin.TypeInt:
				_, ok = s.Default.(int64)
			case plugin.TypeList:
				_, ok = s.Default.([]string)
			}
			if !ok {
				return fmt.Errorf("registry: %s: default for %q is %T, want %s", e.Kind, s.Name, s.Default, s.Type)
			}
		}
	}
	return nil
}
