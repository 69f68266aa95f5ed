package queue

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/taskforge/pkg/tasktype"
)

// DeleteTask removes a task file from tasks/, used when schema
// validation fails and the task must not be retried.
func (r *Root) DeleteTask(id string) error {
	return r.fs.Unlink(r.TaskPath(id))
}

// Claim atomically moves a task file from tasks/ to running/. Because
// both paths are confined to the same handoff root, the move is a
// single os.Rename -- no reader of the queue ever observes a partial
// state.
func (r *Root) Claim(id string) error {
	src := filepath.Join(r.path, r.TaskPath(id))
	dst := filepath.Join(r.path, r.RunningPath(id))
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("queue: claim %s: %w", id, err)
	}
	return nil
}

// ReleaseRunning removes a task's running/ marker once its result has
// been durably written.
func (r *Root) ReleaseRunning(id string) error {
	return r.fs.Unlink(r.RunningPath(id))
}

// WriteResult atomically writes result under results/.
func (r *Root) WriteResult(result *tasktype.Result) error {
	data, err := tasktype.MarshalResult(result)
	if err != nil {
		return fmt.Errorf("queue: marshal result: %w", err)
	}
	return r.fs.WriteAtomic(r.ResultPath(result.TaskID), data)
}

// WritePatch atomically writes a unified diff under patches/.
func (r *Root) WritePatch(id, diff string) error {
	return r.fs.WriteAtomic(r.PatchPath(id), []byte(diff))
}

// WriteLog atomically spills a truncated-overflow verification stream
// under logs/.
func (r *Root) WriteLog(id string, verifyIndex int, stream string, data []byte) error {
	return r.fs.WriteAtomic(r.LogPath(id, verifyIndex, stream), data)
}

// RemoveLog deletes a previously spilled verification log, used to
// retract an earlier clean verify's spill once a later verify in the
// same task trips the secret gate. A missing file is not an error --
// the spill may never have happened if the stream was under the cap.
func (r *Root) RemoveLog(id string, verifyIndex int, stream string) error {
	if !r.fs.Exists(r.LogPath(id, verifyIndex, stream)) {
		return nil
	}
	return r.fs.Unlink(r.LogPath(id, verifyIndex, stream))
}

// RemoveWorktree tears down a task's working tree directory. The
// caller must have already released it via safevcs.WorktreeRemove;
// this only cleans up anything left behind (e.g. on a failed
// worktree_add).
func (r *Root) RemoveWorktree(id string) error {
	return os.RemoveAll(r.WorktreePath(id))
}
