package plugin

import (
	"fmt"
	"strings"
)

// Ensure is the desired lifecycle state of a managed file.
type Ensure string

const (
	EnsurePresent Ensure = "present"
	EnsureAbsent  Ensure = "absent"
)

// ParseEnsure maps the manifest value to an Ensure. The empty string means present.
func ParseEnsure(s string) (Ensure, error) {
	switch Ensure(strings.ToLower(strings.TrimSpace(s))) {
	case "", EnsurePresent:
		return EnsurePresent, nil
	case EnsureAbsent:
		return EnsureAbsent, nil
	default:
		return "", fmt.Errorf("ensure %q: want present|absent", s)
	}
}

// Category groups plugin kinds that share a common settings block.
type Category string

const (
	CategoryInput    Category = "input"
	CategoryDecoder  Category = "decoder"
	CategorySplitter Category = "splitter"
	CategoryFilter   Category = "filter"
	CategoryOutput   Category = "output"
	CategoryEncoder  Category = "encoder"
)

// Categories lists every category in catalog order.
var Categories = []Category{
	CategoryInput, CategoryDecoder, CategorySplitter,
	CategoryFilter, CategoryOutput, CategoryEncoder,
}

// ParamType is the declared value type of a parameter.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeBool   ParamType = "bool"
	TypeInt    ParamType = "int"
	TypeList   ParamType = "list"
)

// ParamSpec describes one parameter accepted by a plugin kind.
type ParamSpec struct {
	Name     string
	Type     ParamType
	Required bool

	// Default is filled in when the parameter is not supplied. Nil means no
	// default. Values use the normalised Go types of Params.
	Default any
}

// Definition is one plugin instance as supplied by the caller.
type Definition struct {
	// Kind is the Heka plugin type, e.g. "AMQPInput".
	Kind string `yaml:"kind"`

	// Name identifies the instance within its kind. It is used verbatim in the
	// output file name and the section header.
	Name string `yaml:"name"`

	// Parameters maps parameter names to raw values (string, bool, int,
	// float64 or lists thereof, as decoded from YAML).
	Parameters map[string]any `yaml:"parameters"`

	// Ensure is present or absent; empty means present.
	Ensure Ensure `yaml:"ensure"`
}

// ID returns "<Kind>/<Name>", the key used in logs and reports.
func (d Definition) ID() string {
	return d.Kind + "/" + d.Name
}

// CheckName reports whether name can be used as an instance name. The name
// ends up in a file path and, unquoted, in the TOML section marker, so it is
// limited to the TOML bare-key characters A-Z a-z 0-9 _ and -.
func CheckName(name string) error {
	switch {
	case name == "":
		return &InvalidDefinitionError{Reason: "name is required"}
	case strings.ContainsAny(name, `/\`):
		return &InvalidDefinitionError{Name: name, Reason: "name must not contain a path separator"}
	}
	for _, r := range name {
		if !isBareKeyRune(r) {
			return &InvalidDefinitionError{
				Name:   name,
				Reason: fmt.Sprintf("name contains %q; only letters, digits, '_' and '-' are allowed", r),
			}
		}
	}
	return nil
}

func isBareKeyRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-'
}

// Params holds validated parameters. Values are string, bool, int64 or []string.
type Params map[string]any
