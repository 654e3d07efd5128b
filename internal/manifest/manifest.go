package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/hekaconf/internal/plugin"
)

// Manifest is the top-level document.
type Manifest struct {
	Plugins []plugin.Definition `yaml:"plugins"`
}

// Load reads and parses the manifest at path.
func Load(path string) ([]plugin.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read file: %w", err)
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", path, err)
	}
	return defs, nil
}

// Parse decodes a manifest document. An empty document yields no definitions.
// Entries are not validated here; a bad entry fails on its own when applied.
func Parse(data []byte) ([]plugin.Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return m.Plugins, nil
}
