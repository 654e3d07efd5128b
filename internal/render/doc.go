// Package render turns a validated plugin definition into the TOML fragment
// Heka loads from its configuration directory.
//
// Every fragment starts with the managed-by header comment, the
// "[<prefix>_<name>]" section marker and the type declaration, followed by
// the category's common settings and the kind-specific settings. Rendering
// is deterministic so the lifecycle manager can compare bytes to decide
// whether a file needs rewriting.
package render
