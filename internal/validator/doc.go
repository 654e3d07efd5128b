// Package validator checks a plugin definition's parameters against its
// catalog entry before anything is rendered.
//
// Validate applies, in order: required parameters present and non-empty,
// every supplied key known to the kind, every value convertible to its
// declared type, and defaults for parameters left out. Values are normalised
// to string, bool, int64 or []string so the renderer never sees raw YAML
// types. Validation is pure; it never touches the filesystem.
package validator
