package registry

import (
	"errors"
	"strings"
	"testing"

	"github.com/obsidianstack/hekaconf/internal/plugin"
)

func TestLookup_AMQPInput(t *testing.T) {
	e, err := Default().Lookup("AMQPInput")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if e.Category != plugin.CategoryInput {
		t.Errorf("Category = %q, want input", e.Category)
	}
	for _, name := range []string{"url", "exchange", "exchange_type"} {
		s, ok := e.Spec(name)
		if !ok {
			t.Errorf("Spec(%q) not found", name)
			continue
		}
		if !s.Required {
			t.Errorf("Spec(%q).Required = false, want true", name)
		}
	}
	if _, ok := e.Spec("decoder"); !ok {
		t.Error("common input setting decoder not found")
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Default().Lookup("NoSuchInput")
	if err == nil {
		t.Fatal("expected error for unknown kind, got nil")
	}
	if !errors.Is(err, plugin.ErrUnknownPluginKind) {
		t.Errorf("error %v does not match ErrUnknownPluginKind", err)
	}
	var uk *plugin.UnknownPluginKindError
	if !errors.As(err, &uk) || uk.Kind != "NoSuchInput" {
		t.Errorf("errors.As: got %+v", uk)
	}
}

func TestLookup_CaseSensitive(t *testing.T) {
	if _, err := Default().Lookup("amqpinput"); err == nil {
		t.Error("lowercase kind resolved; kinds must match exactly")
	}
}

func TestEntry_Naming(t *testing.T) {
	e, _ := Default().Lookup("AMQPInput")
	if got := e.Section("amqpinput"); got != "amqpinput_amqpinput" {
		t.Errorf("Section = %q", got)
	}
	if got := e.FileName("amqpinput", "toml"); got != "amqpinput_amqpinput.toml" {
		t.Errorf("FileName = %q", got)
	}
}

func TestEntry_SpecsOrder(t *testing.T) {
	e, _ := Default().Lookup("FileOutput")
	specs := e.Specs()
	if len(specs) != len(e.Common)+len(e.Params) {
		t.Fatalf("Specs len = %d, want %d", len(specs), len(e.Common)+len(e.Params))
	}
	if specs[0].Name != "message_matcher" {
		t.Errorf("first spec = %q, want common message_matcher", specs[0].Name)
	}
	if specs[len(e.Common)].Name != "path" {
		t.Errorf("first specific spec = %q, want path", specs[len(e.Common)].Name)
	}
}

func TestEntries_Sorted(t *testing.T) {
	entries := Default().Entries()
	if len(entries) == 0 {
		t.Fatal("catalog is empty")
	}
	if entries[0].Category != plugin.CategoryInput {
		t.Errorf("first category = %q, want input", entries[0].Category)
	}
	if last := entries[len(entries)-1]; last.Category != plugin.CategoryEncoder {
		t.Errorf("last category = %q, want encoder", last.Category)
	}
	for i := 1; i < len(entries); i++ {
		a, b := entries[i-1], entries[i]
		if a.Category == b.Category && a.Kind >= b.Kind {
			t.Errorf("entries out of order: %s before %s", a.Kind, b.Kind)
		}
	}
}

func TestByCategory(t *testing.T) {
	for _, c := range plugin.Categories {
		got := Default().ByCategory(c)
		if len(got) == 0 {
			t.Errorf("category %q has no kinds", c)
		}
		for _, e := range got {
			if e.Category != c {
				t.Errorf("ByCategory(%q) returned %s (%s)", c, e.Kind, e.Category)
			}
		}
	}
}

func TestCatalog_KindSuffixMatchesCategory(t *testing.T) {
	for _, e := range Default().Entries() {
		suffix := strings.ToUpper(string(e.Category[:1])) + string(e.Category[1:])
		if !strings.HasSuffix(e.Kind, suffix) {
			t.Errorf("%s: kind does not end in %q", e.Kind, suffix)
		}
	}
}

func TestCheckCatalog(t *testing.T) {
	dup := []*Entry{{
		Kind:     "DupInput",
		Category: plugin.CategoryInput,
		Common:   []plugin.ParamSpec{str("decoder")},
		Params:   []plugin.ParamSpec{str("decoder")},
	}}
	if err := checkCatalog(dup); err == nil {
		t.Error("expected error for duplicated parameter, got nil")
	}

	badDefault := []*Entry{{
		Kind:     "BadOutput",
		Category: plugin.CategoryOutput,
		Params:   []plugin.ParamSpec{withDefault(num("flush_count"), 10)},
	}}
	if err := checkCatalog(badDefault); err == nil {
		t.Error("expected error for int default that is not int64, got nil")
	}

	if err := checkCatalog(catalog()); err != nil {
		t.Errorf("built-in catalog: %v", err)
	}
}
