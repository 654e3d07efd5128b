// Package config loads the hekaconf configuration file (config.yaml).
//
// Load(path) applies defaults (toml extension, root:root, 0644, 4 workers,
// managed by puppet), reads the YAML file when path is non-empty, applies
// HEKACONF_* environment overrides, fills in OS facts from /etc/os-release
// and validates the result with struct tags.
//
// The configuration directory defaults from the OS family: /usr/local/etc/heka
// on FreeBSD, /etc/heka elsewhere. It is never created.
package config
