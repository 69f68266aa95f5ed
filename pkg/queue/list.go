package queue

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/cuemby/taskforge/pkg/tasktype"
)

// Pending is one task discovered in tasks/, paired with its parsed body
// and the raw bytes (kept so a schema-invalid task can still be
// identified by id parsed best-effort, or reported via filename).
type Pending struct {
	ID   string
	Task *tasktype.Task
	Err  error
}

// ListPending enumerates tasks/ and parses each .json file found. Parse
// failures are reported per-entry (Err set, Task nil) rather than
// aborting the whole scan, so the caller can write schema_invalid
// results for individual bad files.
func (r *Root) ListPending() ([]Pending, error) {
	entries, err := r.fs.ReadDir(DirTasks)
	if err != nil {
		return nil, err
	}

	var pending []Pending
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		data, rerr := r.fs.Read(filepath.Join(DirTasks, e.Name()))
		if rerr != nil {
			pending = append(pending, Pending{ID: id, Err: rerr})
			continue
		}
		task, perr := tasktype.UnmarshalTask(data)
		if perr != nil {
			pending = append(pending, Pending{ID: id, Err: perr})
			continue
		}
		if verr := task.Validate(); verr != nil {
			pending = append(pending, Pending{ID: id, Err: verr})
			continue
		}
		pending = append(pending, Pending{ID: id, Task: task})
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pendingLess(pending[i], pending[j])
	})
	return pending, nil
}

// pendingLess orders by (priority desc, created_at asc), ties broken by
// id lexicographically. Entries with a parse error sort last within
// their id-lexicographic tier so they don't silently starve valid work.
func pendingLess(a, b Pending) bool {
	if a.Task == nil || b.Task == nil {
		if (a.Task == nil) != (b.Task == nil) {
			return b.Task == nil
		}
		return a.ID < b.ID
	}
	if a.Task.Priority != b.Task.Priority {
		return a.Task.Priority > b.Task.Priority
	}
	if !a.Task.CreatedAt.Equal(b.Task.CreatedAt) {
		return a.Task.CreatedAt.Before(b.Task.CreatedAt)
	}
	return a.ID < b.ID
}
