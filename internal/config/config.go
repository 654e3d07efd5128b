package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultExtension = "toml"
	DefaultOwner     = "root"
	DefaultGroup     = "root"
	DefaultMode      = FileMode(0o644)
	DefaultManagedBy = "puppet"
	DefaultWorkers   = 4
	DefaultManifest  = "/etc/hekaconf/plugins.yaml"
)

// Config is the process configuration, resolved once at startup.
type Config struct {
	// ConfigDir is the Heka configuration directory fragments are written to.
	// It must already exist. Defaults from Facts when empty.
	ConfigDir string `yaml:"config_dir" validate:"required"`

	// Extension is the file extension of rendered fragments, without the dot.
	Extension string `yaml:"extension" validate:"required,alphanum"`

	// Owner and Group own every rendered fragment. Names or numeric ids.
	Owner string `yaml:"owner" validate:"required"`
	Group string `yaml:"group" validate:"required"`

	// Mode is the permission set of every rendered fragment, in octal.
	Mode FileMode `yaml:"mode" validate:"lte=511"`

	// ManagedBy names the configuration system in the fragment header comment.
	ManagedBy string `yaml:"managed_by" validate:"required"`

	// Workers bounds the number of definitions reconciled in parallel.
	Workers int `yaml:"workers" validate:"gte=1,lte=64"`

	// Manifest is the default plugin manifest path for apply.
	Manifest string `yaml:"manifest"`

	// Facts describes the host OS. Detected from /etc/os-release when empty.
	Facts Facts `yaml:"facts"`

	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Format is one of: json | text.
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
}

// MetricsConfig controls the Prometheus textfile written after each apply.
type MetricsConfig struct {
	// Textfile is the .prom path for node_exporter's textfile collector.
	// Empty disables metrics output.
	Textfile string `yaml:"textfile" validate:"omitempty,endswith=.prom"`
}

// FileMode is an os.FileMode that reads from YAML as an octal number,
// quoted ("0644") or bare (0644).
type FileMode uint32

// UnmarshalYAML parses the node's literal text as octal.
func (m *FileMode) UnmarshalYAML(n *yaml.Node) error {
	v, err := parseMode(n.Value)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarshalYAML writes the mode as a quoted octal string.
func (m FileMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

func (m FileMode) String() string {
	return fmt.Sprintf("%04o", uint32(m))
}

// Perm returns the mode as an os.FileMode.
func (m FileMode) Perm() os.FileMode {
	return os.FileMode(m).Perm()
}

func parseMode(s string) (FileMode, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0o")
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("mode %q: want an octal permission like 0644", s)
	}
	if v > 0o777 {
		return 0, fmt.Errorf("mode %q: only permission bits are allowed", s)
	}
	return FileMode(v), nil
}

// Load reads and parses the YAML config file at path. An empty path skips
// the file and uses defaults. Environment overrides (HEKACONF_*) and OS facts
// are applied before validation.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.Facts.Family == "" {
		cfg.Facts = DetectFacts(osReleasePath)
	}
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = PathsFor(cfg.Facts).ConfigDir
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Extension: DefaultExtension,
		Owner:     DefaultOwner,
		Group:     DefaultGroup,
		Mode:      DefaultMode,
		ManagedBy: DefaultManagedBy,
		Workers:   DefaultWorkers,
		Manifest:  DefaultManifest,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// applyEnvOverrides checks for environment variables with the HEKACONF_ prefix.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("HEKACONF_CONFIG_DIR"); v != "" {
		cfg.ConfigDir = v
	}
	if v := os.Getenv("HEKACONF_OWNER"); v != "" {
		cfg.Owner = v
	}
	if v := os.Getenv("HEKACONF_GROUP"); v != "" {
		cfg.Group = v
	}
	if v := os.Getenv("HEKACONF_MODE"); v != "" {
		m, err := parseMode(v)
		if err != nil {
			return fmt.Errorf("HEKACONF_MODE: %w", err)
		}
		cfg.Mode = m
	}
	if v := os.Getenv("HEKACONF_MANIFEST"); v != "" {
		cfg.Manifest = v
	}
	if v := os.Getenv("HEKACONF_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HEKACONF_WORKERS: %q is not a number", v)
		}
		cfg.Workers = n
	}
	if v := os.Getenv("HEKACONF_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	return nil
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	err := structValidator.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = formatFieldError(fe)
	}
	return errors.New(strings.Join(msgs, "; "))
}

// formatFieldError renders a validator error using the YAML key path.
func formatFieldError(fe validator.FieldError) string {
	field := yamlPath(fe.StructNamespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s %q unknown: want %s", field, fe.Value(), strings.ReplaceAll(fe.Param(), " ", "|"))
	case "gte", "lte":
		return fmt.Sprintf("%s %v is out of range", field, fe.Value())
	case "alphanum":
		return fmt.Sprintf("%s %q must be alphanumeric", field, fe.Value())
	case "endswith":
		return fmt.Sprintf("%s %q must end in %s", field, fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// yamlKeys maps Go field names to their YAML keys for error messages.
var yamlKeys = map[string]string{
	"ConfigDir": "config_dir",
	"Extension": "extension",
	"Owner":     "owner",
	"Group":     "group",
	"Mode":      "mode",
	"ManagedBy": "managed_by",
	"Workers":   "workers",
	"Logging":   "logging",
	"Level":     "level",
	"Format":    "format",
	"Metrics":   "metrics",
	"Textfile":  "textfile",
}

// yamlPath converts "Config.Logging.Level" into "logging.level".
func yamlPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if k, ok := yamlKeys[p]; ok {
			parts[i] = k
		}
	}
	return strings.Join(parts, ".")
}
