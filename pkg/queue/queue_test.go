package queue

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/taskforge/pkg/tasktype"
)

func writeTask(t *testing.T, root *Root, task *tasktype.Task) {
	t.Helper()
	data, err := tasktype.MarshalTask(task)
	if err != nil {
		t.Fatalf("MarshalTask: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root.Path(), root.TaskPath(task.ID)), data, 0o644); err != nil {
		t.Fatalf("write task file: %v", err)
	}
}

func TestOpen_CreatesAllSubdirs(t *testing.T) {
	root, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, d := range subdirs {
		if info, err := os.Stat(filepath.Join(root.Path(), d)); err != nil || !info.IsDir() {
			t.Errorf("subdir %s missing or not a directory: %v", d, err)
		}
	}
}

func TestListPending_OrdersByPriorityThenCreatedAtThenID(t *testing.T) {
	root, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	writeTask(t, root, &tasktype.Task{ID: "low", Scope: []string{"a"}, Priority: 1, CreatedAt: base})
	writeTask(t, root, &tasktype.Task{ID: "high", Scope: []string{"a"}, Priority: 5, CreatedAt: base})
	writeTask(t, root, &tasktype.Task{ID: "mid-early", Scope: []string{"a"}, Priority: 3, CreatedAt: base})
	writeTask(t, root, &tasktype.Task{ID: "mid-late", Scope: []string{"a"}, Priority: 3, CreatedAt: base.Add(time.Hour)})

	pending, err := root.ListPending()
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 4 {
		t.Fatalf("len(pending) = %d, want 4", len(pending))
	}
	got := []string{pending[0].ID, pending[1].ID, pending[2].ID, pending[3].ID}
	want := []string{"high", "mid-early", "mid-late", "low"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestListPending_ReportsSchemaErrorsWithoutAborting(t *testing.T) {
	root, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root.Path(), root.TaskPath("bad")), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write bad task: %v", err)
	}
	writeTask(t, root, &tasktype.Task{ID: "good", Scope: []string{"a"}})

	pending, err := root.ListPending()
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("len(pending) = %d, want 2", len(pending))
	}
	var sawBad, sawGood bool
	for _, p := range pending {
		if p.ID == "bad" && p.Err != nil {
			sawBad = true
		}
		if p.ID == "good" && p.Err == nil {
			sawGood = true
		}
	}
	if !sawBad || !sawGood {
		t.Fatalf("expected one error entry and one valid entry, got %+v", pending)
	}
}

func TestClaim_MovesTaskToRunning(t *testing.T) {
	root, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	writeTask(t, root, &tasktype.Task{ID: "t1", Scope: []string{"a"}})

	if err := root.Claim("t1"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root.Path(), root.TaskPath("t1"))); !os.IsNotExist(err) {
		t.Fatal("task file still present in tasks/ after Claim")
	}
	if _, err := os.Stat(filepath.Join(root.Path(), root.RunningPath("t1"))); err != nil {
		t.Fatalf("running marker missing after Claim: %v", err)
	}
}

func TestHasResult(t *testing.T) {
	root, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if root.HasResult("t1") {
		t.Fatal("HasResult() = true before any result written")
	}

	result := &tasktype.Result{TaskID: "t1", Status: tasktype.StatusSuccess, ExitPath: tasktype.ExitCompletedSuccess}
	if err := root.WriteResult(result); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	if !root.HasResult("t1") {
		t.Fatal("HasResult() = false after WriteResult")
	}
}

func TestWriteLog_ThenRemoveLog(t *testing.T) {
	root, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := root.WriteLog("t1", 0, "stdout", []byte("some clean output")); err != nil {
		t.Fatalf("WriteLog: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root.Path(), root.LogPath("t1", 0, "stdout"))); err != nil {
		t.Fatalf("log file missing after WriteLog: %v", err)
	}

	if err := root.RemoveLog("t1", 0, "stdout"); err != nil {
		t.Fatalf("RemoveLog: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root.Path(), root.LogPath("t1", 0, "stdout"))); !os.IsNotExist(err) {
		t.Fatal("log file still present after RemoveLog")
	}
}

func TestRemoveLog_ToleratesMissingFile(t *testing.T) {
	root, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := root.RemoveLog("nope", 3, "stderr"); err != nil {
		t.Fatalf("RemoveLog on a log that was never written returned an error: %v", err)
	}
}
