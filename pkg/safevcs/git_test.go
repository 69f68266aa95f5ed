package safevcs

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func skipIfNoGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available in PATH")
	}
}

func initRepo(t *testing.T) (*Repo, string) {
	t.Helper()
	skipIfNoGit(t)

	dir := t.TempDir()
	r := New(5 * time.Second)
	ctx := context.Background()

	if err := r.Init(ctx, dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	// Config identity so commit succeeds in CI sandboxes with no global config.
	for _, args := range [][]string{
		{"config", "user.email", "taskforge@example.invalid"},
		{"config", "user.name", "taskforge"},
	} {
		if _, _, err := r.run(ctx, dir, args...); err != nil {
			t.Fatalf("config %v: %v", args, err)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	if err := r.AddAll(ctx, dir); err != nil {
		t.Fatalf("AddAll: %v", err)
	}
	if err := r.Commit(ctx, dir, "seed"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return r, dir
}

func TestIsRepo(t *testing.T) {
	_, dir := initRepo(t)
	r := New(5 * time.Second)
	ctx := context.Background()

	if !r.IsRepo(ctx, dir) {
		t.Fatal("IsRepo() = false for initialized repo")
	}
	if r.IsRepo(ctx, t.TempDir()) {
		t.Fatal("IsRepo() = true for non-repo directory")
	}
}

func TestWorktreeAdd_RejectsExistingPath(t *testing.T) {
	r, main := initRepo(t)
	ctx := context.Background()

	ws := filepath.Join(t.TempDir(), "ws")
	if err := os.MkdirAll(ws, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	err := r.WorktreeAdd(ctx, main, ws, "feat/x")
	if err == nil {
		t.Fatal("WorktreeAdd() accepted an already-existing path")
	}
	var exists *WorktreeExistsError
	if !errors.As(err, &exists) {
		t.Fatalf("expected WorktreeExistsError, got %T: %v", err, err)
	}
}

func TestWorktreeAdd_RoundTrip(t *testing.T) {
	r, main := initRepo(t)
	ctx := context.Background()

	ws := filepath.Join(t.TempDir(), "ws")
	if err := r.WorktreeAdd(ctx, main, ws, "feat/y"); err != nil {
		t.Fatalf("WorktreeAdd: %v", err)
	}

	branch, err := r.CurrentBranch(ctx, ws)
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "feat/y" {
		t.Fatalf("CurrentBranch() = %q, want feat/y", branch)
	}

	if err := r.WorktreeRemove(ctx, main, ws); err != nil {
		t.Fatalf("WorktreeRemove: %v", err)
	}
	if _, err := os.Stat(ws); !os.IsNotExist(err) {
		t.Fatalf("worktree path still exists after removal: err=%v", err)
	}
}

func TestWorktreeAddDetached_RoundTrip(t *testing.T) {
	r, main := initRepo(t)
	ctx := context.Background()

	ws := filepath.Join(t.TempDir(), "ws")
	if err := r.WorktreeAddDetached(ctx, main, ws); err != nil {
		t.Fatalf("WorktreeAddDetached: %v", err)
	}

	branch, err := r.CurrentBranch(ctx, ws)
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "HEAD" {
		t.Fatalf("CurrentBranch() = %q, want HEAD (detached)", branch)
	}

	if err := r.WorktreeRemove(ctx, main, ws); err != nil {
		t.Fatalf("WorktreeRemove: %v", err)
	}
}

func TestWorktreeAddDetached_RejectsExistingPath(t *testing.T) {
	r, main := initRepo(t)
	ctx := context.Background()

	ws := filepath.Join(t.TempDir(), "ws")
	if err := os.MkdirAll(ws, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	err := r.WorktreeAddDetached(ctx, main, ws)
	if err == nil {
		t.Fatal("WorktreeAddDetached() accepted an already-existing path")
	}
	var exists *WorktreeExistsError
	if !errors.As(err, &exists) {
		t.Fatalf("expected WorktreeExistsError, got %T: %v", err, err)
	}
}

// TestWorktreeAddDetached_CoexistsWithCheckedOutBranch is the regression
// case the detached path exists for: the same branch is checked out in
// main while a second worktree is created for it.
func TestWorktreeAddDetached_CoexistsWithCheckedOutBranch(t *testing.T) {
	r, main := initRepo(t)
	ctx := context.Background()

	currentBranch, err := r.CurrentBranch(ctx, main)
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}

	ws := filepath.Join(t.TempDir(), "ws")
	if err := r.WorktreeAdd(ctx, main, ws, currentBranch); err == nil {
		t.Fatalf("WorktreeAdd(-b %s) unexpectedly succeeded while that branch is checked out in main", currentBranch)
	}

	ws2 := filepath.Join(t.TempDir(), "ws2")
	if err := r.WorktreeAddDetached(ctx, main, ws2); err != nil {
		t.Fatalf("WorktreeAddDetached: %v", err)
	}
	if err := r.WorktreeRemove(ctx, main, ws2); err != nil {
		t.Fatalf("WorktreeRemove: %v", err)
	}
}

func TestDiff_EmptyForCleanWorktree(t *testing.T) {
	_, dir := initRepo(t)
	r := New(5 * time.Second)
	ctx := context.Background()

	diff, err := r.Diff(ctx, dir, false)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if diff != "" {
		t.Fatalf("Diff() on clean worktree = %q, want empty", diff)
	}
}

func TestDiff_ReflectsUncommittedChange(t *testing.T) {
	_, dir := initRepo(t)
	r := New(5 * time.Second)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\nworld\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	diff, err := r.Diff(ctx, dir, false)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if diff == "" {
		t.Fatal("Diff() on dirty worktree returned empty string")
	}
}

func TestRun_RejectsRepoHooks(t *testing.T) {
	_, dir := initRepo(t)
	r := New(5 * time.Second)
	ctx := context.Background()

	hooksDir := filepath.Join(dir, ".git", "hooks")
	marker := filepath.Join(dir, "hook-ran")
	preCommit := "#!/bin/sh\ntouch " + marker + "\n"
	if err := os.WriteFile(filepath.Join(hooksDir, "pre-commit"), []byte(preCommit), 0o755); err != nil {
		t.Fatalf("write hook: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := r.AddAll(ctx, dir); err != nil {
		t.Fatalf("AddAll: %v", err)
	}
	if err := r.Commit(ctx, dir, "trigger hook"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Fatal("pre-commit hook executed despite core.hooksPath=/dev/null and --no-verify")
	}
}

func TestStatus_CleanWorktree(t *testing.T) {
	r, dir := initRepo(t)
	ctx := context.Background()

	report, err := r.Status(ctx, dir)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(report.Staged)+len(report.Unstaged)+len(report.Untracked)+len(report.Renamed) != 0 {
		t.Fatalf("Status() on clean worktree reported changes: %+v", report)
	}
}

func TestStatus_DetectsUntrackedAndModified(t *testing.T) {
	r, dir := initRepo(t)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\nmodified\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("new\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	report, err := r.Status(ctx, dir)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(report.Unstaged) != 1 || report.Unstaged[0] != "README.md" {
		t.Fatalf("Unstaged = %v, want [README.md]", report.Unstaged)
	}
	if len(report.Untracked) != 1 || report.Untracked[0] != "new.txt" {
		t.Fatalf("Untracked = %v, want [new.txt]", report.Untracked)
	}
}

func TestRun_TimesOut(t *testing.T) {
	skipIfNoGit(t)
	dir := t.TempDir()
	r := New(5 * time.Second)
	ctx := context.Background()
	if err := r.Init(ctx, dir); err != nil {
		t.Fatalf("Init: %v", err)
	}

	tight := New(1 * time.Nanosecond)
	_, _, err := tight.run(ctx, dir, "status")
	if err == nil {
		t.Fatal("run() with near-zero timeout did not fail")
	}
}
