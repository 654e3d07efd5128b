// Package registry is the static catalog of Heka plugin kinds.
//
// Each Entry carries the kind's category, the category's common settings and
// the kind-specific settings in render order. The category selects the shared
// common block and the ordered parameter list is the kind's body template, so
// a lookup yields everything the validator and renderer need.
//
// Default() builds the catalog once; the registry is read-only afterwards and
// safe for concurrent use without locking.
package registry
