package queue

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/taskforge/pkg/safefs"
)

// Subdirectory names under a handoff root.
const (
	DirTasks   = "tasks"
	DirRunning = "running"
	DirResults = "results"
	DirPatches = "patches"
	DirLogs    = "logs"
	DirLocks   = "locks"
	DirTmp     = "tmp"
)

var subdirs = []string{DirTasks, DirRunning, DirResults, DirPatches, DirLogs, DirLocks, DirTmp}

// Root is a handoff root directory with safe, containment-checked access
// to each of its fixed subdirectories.
type Root struct {
	path string
	fs   *safefs.Root
}

// Open opens (creating if necessary) a handoff root at path, along with
// every fixed subdirectory it must contain.
func Open(path string) (*Root, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("queue: create handoff root: %w", err)
	}
	fs, err := safefs.NewRoot(path)
	if err != nil {
		return nil, fmt.Errorf("queue: open handoff root: %w", err)
	}
	for _, d := range subdirs {
		if err := fs.Mkdir(d); err != nil {
			return nil, fmt.Errorf("queue: create %s: %w", d, err)
		}
	}
	return &Root{path: path, fs: fs}, nil
}

// Path returns the absolute path of the handoff root.
func (r *Root) Path() string { return r.path }

// FS returns the safefs.Root rooted at this handoff directory.
func (r *Root) FS() *safefs.Root { return r.fs }

// TaskPath returns the path of a task file relative to the root.
func (r *Root) TaskPath(id string) string { return filepath.Join(DirTasks, id+".json") }

// RunningPath returns the path of a running-marker file relative to the root.
func (r *Root) RunningPath(id string) string { return filepath.Join(DirRunning, id+".json") }

// ResultPath returns the path of a result file relative to the root.
func (r *Root) ResultPath(id string) string { return filepath.Join(DirResults, id+".json") }

// PatchPath returns the path of a patch file relative to the root.
func (r *Root) PatchPath(id string) string { return filepath.Join(DirPatches, id+".patch") }

// LogPath returns the path of a spilled verification log relative to the root.
func (r *Root) LogPath(id string, verifyIndex int, stream string) string {
	return filepath.Join(DirLogs, fmt.Sprintf("%s_%d_%s.log", id, verifyIndex, stream))
}

// WorktreePath returns the absolute path of a task's working tree.
func (r *Root) WorktreePath(id string) string {
	return filepath.Join(r.path, DirTmp, "ws-"+id)
}

// LocksPath returns the absolute path of the locks directory.
func (r *Root) LocksPath() string {
	return filepath.Join(r.path, DirLocks)
}

// HasResult reports whether a result already exists for id -- the
// idempotency check the loop runs before claiming a task.
func (r *Root) HasResult(id string) bool {
	return r.fs.Exists(r.ResultPath(id))
}
