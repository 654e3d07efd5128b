package lifecycle

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/obsidianstack/hekaconf/internal/plugin"
)

// Default ownership and permissions for managed files.
const (
	DefaultOwner = "root"
	DefaultGroup = "root"
	DefaultMode  = os.FileMode(0o644)
)

// FileTarget is the desired state of one managed file.
type FileTarget struct {
	Path   string
	Owner  string
	Group  string
	Mode   os.FileMode
	Ensure plugin.Ensure
}

// Action describes the transition a reconciliation performed.
type Action string

const (
	ActionCreated   Action = "created"   // Absent -> Present
	ActionUpdated   Action = "updated"   // Present -> Present, content replaced
	ActionUnchanged Action = "unchanged" // Present -> Present, content identical
	ActionDeleted   Action = "deleted"   // Present -> Absent
	ActionAbsent    Action = "absent"    // Absent -> Absent
)

// Result reports the outcome of one reconciliation.
type Result struct {
	Path   string
	Action Action

	// Repaired is true when owner, group or mode had drifted and were reset.
	Repaired bool

	// DryRun is true when the action was computed but not performed.
	DryRun bool
}

// Changed reports whether the file on disk was (or would be) modified.
func (r Result) Changed() bool {
	return r.Repaired || (r.Action != ActionUnchanged && r.Action != ActionAbsent)
}

// ReconcileError carries the target path and the failing filesystem step.
type ReconcileError struct {
	Path string
	Op   string
	Err  error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("reconcile %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *ReconcileError) Unwrap() error { return e.Err }

// Manager reconciles FileTargets against the filesystem. It touches nothing
// but the target path and its own temporary file in the same directory.
type Manager struct {
	logger *slog.Logger
	dryRun bool

	// injectable for tests
	lookupIDs func(owner, group string) (uid, gid int, err error)
	chown     func(path string, uid, gid int) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithDryRun makes Reconcile compute actions without touching the disk.
func WithDryRun(dryRun bool) Option {
	return func(m *Manager) { m.dryRun = dryRun }
}

// New returns a Manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		logger:    slog.Default(),
		lookupIDs: lookupIDs,
		chown:     os.Chown,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reconcile makes the file at t.Path match t. For ensure=present content is
// the full desired file body; for ensure=absent it is ignored.
func (m *Manager) Reconcile(t FileTarget, content []byte) (Result, error) {
	ensure, err := plugin.ParseEnsure(string(t.Ensure))
	if err != nil {
		return Result{Path: t.Path}, &ReconcileError{Path: t.Path, Op: "ensure", Err: err}
	}
	if ensure == plugin.EnsureAbsent {
		return m.remove(t)
	}
	if content == nil {
		return Result{Path: t.Path}, &ReconcileError{Path: t.Path, Op: "render", Err: errors.New("no content for present target")}
	}
	return m.write(t, content)
}

func (m *Manager) remove(t FileTarget) (Result, error) {
	res := Result{Path: t.Path, DryRun: m.dryRun}

	info, err := os.Lstat(t.Path)
	if errors.Is(err, fs.ErrNotExist) {
		res.Action = ActionAbsent
		return res, nil
	}
	if err != nil {
		return res, &ReconcileError{Path: t.Path, Op: "stat", Err: err}
	}
	if info.IsDir() {
		return res, &ReconcileError{Path: t.Path, Op: "remove", Err: errors.New("target is a directory")}
	}

	res.Action = ActionDeleted
	if m.dryRun {
		return res, nil
	}
	if err := os.Remove(t.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			res.Action = ActionAbsent
			return res, nil
		}
		return res, &ReconcileError{Path: t.Path, Op: "remove", Err: err}
	}
	if err := syncDir(filepath.Dir(t.Path)); err != nil {
		return res, &ReconcileError{Path: t.Path, Op: "sync dir", Err: err}
	}
	m.logger.Info("lifecycle: removed file", "path", t.Path)
	return res, nil
}

func (m *Manager) write(t FileTarget, content []byte) (Result, error) {
	res := Result{Path: t.Path, DryRun: m.dryRun}
	mode := t.Mode.Perm()
	if mode == 0 {
		mode = DefaultMode
	}

	uid, gid, err := m.lookupIDs(t.Owner, t.Group)
	if err != nil {
		return res, &ReconcileError{Path: t.Path, Op: "lookup owner", Err: err}
	}

	info, err := os.Lstat(t.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		res.Action = ActionCreated
	case err != nil:
		return res, &ReconcileError{Path: t.Path, Op: "stat", Err: err}
	case !info.Mode().IsRegular():
		// Symlinks and other special files are replaced by a regular file.
		res.Action = ActionUpdated
	default:
		current, err := os.ReadFile(t.Path)
		if err != nil {
			return res, &ReconcileError{Path: t.Path, Op: "read", Err: err}
		}
		res.Action = ActionUpdated
		if bytes.Equal(current, content) {
			res.Action = ActionUnchanged
		}
	}

	if res.Action == ActionUnchanged {
		return m.heal(res, t.Path, info, mode, uid, gid)
	}

	if m.dryRun {
		if _, err := os.Stat(filepath.Dir(t.Path)); err != nil {
			return res, &ReconcileError{Path: t.Path, Op: "stat parent", Err: err}
		}
		return res, nil
	}
	if err := m.replace(t.Path, content, mode, uid, gid); err != nil {
		return res, err
	}
	m.logger.Info("lifecycle: wrote file", "path", t.Path, "action", res.Action)
	return res, nil
}

// heal re-asserts mode and ownership on a regular file whose content is
// already correct. info comes from Lstat of path.
func (m *Manager) heal(res Result, path string, info fs.FileInfo, mode os.FileMode, uid, gid int) (Result, error) {
	drift := info.Mode().Perm() != mode
	if curUID, curGID, ok := fileOwner(info); ok && (curUID != uid || curGID != gid) {
		drift = true
	}
	res.Repaired = drift
	if m.dryRun {
		return res, nil
	}

	if err := os.Chmod(path, mode); err != nil {
		return res, &ReconcileError{Path: path, Op: "chmod", Err: err}
	}
	if err := m.chown(path, uid, gid); err != nil {
		return res, &ReconcileError{Path: path, Op: "chown", Err: err}
	}
	if drift {
		m.logger.Warn("lifecycle: repaired ownership or mode drift", "path", path, "mode", fmt.Sprintf("%04o", mode))
	}
	return res, nil
}

// replace writes content to a temporary file next to path and renames it over
// path, so readers see either the old or the new file, never a partial one.
// The parent directory must already exist.
func (m *Manager) replace(path string, content []byte, mode os.FileMode, uid, gid int) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return &ReconcileError{Path: path, Op: "create temp", Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return &ReconcileError{Path: path, Op: "write", Err: err}
	}
	if err = tmp.Sync(); err != nil {
		return &ReconcileError{Path: path, Op: "sync", Err: err}
	}
	if err = tmp.Chmod(mode); err != nil {
		return &ReconcileError{Path: path, Op: "chmod", Err: err}
	}
	if err = m.chown(tmpName, uid, gid); err != nil {
		return &ReconcileError{Path: path, Op: "chown", Err: err}
	}
	if err = tmp.Close(); err != nil {
		return &ReconcileError{Path: path, Op: "close", Err: err}
	}
	if err = os.Rename(tmpName, path); err != nil {
		return &ReconcileError{Path: path, Op: "rename", Err: err}
	}
	if err = syncDir(dir); err != nil {
		return &ReconcileError{Path: path, Op: "sync dir", Err: err}
	}
	return nil
}

// lookupIDs resolves owner and group to numeric ids. Numeric strings are used
// as-is; names go through the system user and group databases.
func lookupIDs(owner, group string) (int, int, error) {
	if owner == "" {
		owner = DefaultOwner
	}
	if group == "" {
		group = DefaultGroup
	}

	uid, err := strconv.Atoi(owner)
	if err != nil {
		u, lerr := user.Lookup(owner)
		if lerr != nil {
			return 0, 0, fmt.Errorf("owner %q: %w", owner, lerr)
		}
		if uid, err = strconv.Atoi(u.Uid); err != nil {
			return 0, 0, fmt.Errorf("owner %q: non-numeric uid %q", owner, u.Uid)
		}
	}

	gid, err := strconv.Atoi(group)
	if err != nil {
		g, lerr := user.LookupGroup(group)
		if lerr != nil {
			return 0, 0, fmt.Errorf("group %q: %w", group, lerr)
		}
		if gid, err = strconv.Atoi(g.Gid); err != nil {
			return 0, 0, fmt.Errorf("group %q: non-numeric gid %q", group, g.Gid)
		}
	}
	return uid, gid, nil
}
