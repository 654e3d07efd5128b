// Package cli is the hekaconf command tree:
//
//	hekaconf apply   [--manifest PATH] [--dry-run] [--watch]
//	hekaconf render  KIND NAME [key=value ...]
//	hekaconf remove  KIND NAME [--dry-run]
//	hekaconf plugins [--category CATEGORY]
//
// Every command loads the config (--config, HEKACONF_* env, OS facts) and
// builds the logger in the root's PersistentPreRunE.
package cli
