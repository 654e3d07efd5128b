// Package lifecycle reconciles one managed file against its desired state.
//
// The state machine has two states, Absent and Present:
//   - Absent -> Present: the rendered content is written (ActionCreated)
//   - Present -> Present: content is replaced when it differs (ActionUpdated)
//     or left alone (ActionUnchanged); owner, group and mode are re-asserted on
//     every pass and Result.Repaired reports drift
//   - Present -> Absent: the file is deleted (ActionDeleted)
//   - Absent -> Absent: nothing happens (ActionAbsent)
//
// Writes go through a temporary file in the target directory followed by a
// rename and a sync of the directory. A target that is a symlink or other
// non-regular file is replaced by a regular file, never written through. The
// manager never creates parent directories and never removes
// directories. Every filesystem failure is returned as *ReconcileError.
package lifecycle
