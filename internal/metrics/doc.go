// Package metrics writes a Prometheus textfile describing the last apply run,
// for node_exporter's textfile collector.
//
// Families:
//   - hekaconf_reconcile_total{action}: definitions reconciled, by lifecycle action
//   - hekaconf_reconcile_errors_total{reason}: failed definitions, by error reason
//   - hekaconf_last_run_timestamp_seconds: end of the last run, unix seconds
//   - hekaconf_last_run_duration_seconds: wall time of the last run
//
// Counters are cumulative across runs: Record parses the previous file and adds
// the new run on top. The file is written through the lifecycle manager, so it
// is replaced atomically and never read half-written.
package metrics
