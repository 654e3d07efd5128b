// Package reconcile ties the stages together. Reconcile takes one plugin
// definition through registry lookup, parameter validation, rendering and the
// file lifecycle; Apply does the same for a batch on a bounded worker pool.
//
// A failing definition never stops the others. Every definition gets an
// Outcome in the Report, either a lifecycle.Result or the error that stopped
// it, and Reason classifies errors into stable labels for logs and metrics.
package reconcile
