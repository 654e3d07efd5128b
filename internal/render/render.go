package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/obsidianstack/hekaconf/internal/plugin"
	"github.com/obsidianstack/hekaconf/internal/registry"
)

// DefaultManagedBy names the configuration system in the header comment.
const DefaultManagedBy = "puppet"

// Renderer produces TOML fragments for validated definitions.
type Renderer struct {
	managedBy string
}

// New returns a Renderer whose header names managedBy. An empty value falls
// back to DefaultManagedBy.
func New(managedBy string) *Renderer {
	if managedBy == "" {
		managedBy = DefaultManagedBy
	}
	return &Renderer{managedBy: managedBy}
}

// Render composes the fragment for one plugin instance:
//
//	# This file is controlled via <managed-by>.
//	[<prefix>_<name>]
//	type = "<Kind>"
//
//	<common settings>
//
//	# specific settings
//	<kind-specific settings>
//
// The common block and its trailing blank line are omitted when no common
// setting is present. Only parameters present in params are written, in
// catalog order, so identical input always yields identical bytes.
func (r *Renderer) Render(entry *registry.Entry, name string, params plugin.Params) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# This file is controlled via %s.\n", r.managedBy)
	fmt.Fprintf(&b, "[%s]\n", entry.Section(name))
	fmt.Fprintf(&b, "type = %s\n", quote(entry.Kind))
	b.WriteByte('\n')

	if writeSettings(&b, entry.Common, params) > 0 {
		b.WriteByte('\n')
	}

	b.WriteString("# specific settings\n")
	writeSettings(&b, entry.Params, params)

	return b.Bytes()
}

// writeSettings writes one "key = value" line per spec present in params and
// returns the number of lines written.
func writeSettings(b *bytes.Buffer, specs []plugin.ParamSpec, params plugin.Params) int {
	n := 0
	for _, s := range specs {
		v, ok := params[s.Name]
		if !ok {
			continue
		}
		fmt.Fprintf(b, "%s = %s\n", s.Name, Value(v))
		n++
	}
	return n
}

// Value formats a normalised parameter value as a TOML value: strings as
// basic strings, booleans and integers bare, lists as inline arrays of
// strings.
func Value(v any) string {
	switch t := v.(type) {
	case string:
		return quote(t)
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case []string:
		items := make([]string, len(t))
		for i, s := range t {
			items[i] = quote(s)
		}
		return "[" + strings.Join(items, ", ") + "]"
	default:
		return quote(fmt.Sprint(t))
	}
}

// quote returns s as a TOML basic string.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\f':
			b.WriteString(`\f`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
