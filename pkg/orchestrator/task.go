package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cuemby/taskforge/internal/obslog"
	"github.com/cuemby/taskforge/pkg/safety"
	"github.com/cuemby/taskforge/pkg/safevcs"
	"github.com/cuemby/taskforge/pkg/sandbox"
	"github.com/cuemby/taskforge/pkg/scanner"
	"github.com/cuemby/taskforge/pkg/tasktype"
)

const verifyLogCapBytes = 10 * 1024

// runTask executes the full per-task lifecycle (steps v-xiv of the
// orchestration loop) and always returns a Result -- never an error --
// so the caller can unconditionally write it and move on.
func (l *Loop) runTask(ctx context.Context, task *tasktype.Task) *tasktype.Result {
	log := obslog.WithTaskID(task.ID)
	started := time.Now().UTC()

	result := &tasktype.Result{
		TaskID:       task.ID,
		TaskSnapshot: *task,
		StartedAt:    started,
	}
	finish := func(status tasktype.Status, exitPath tasktype.ExitPath) *tasktype.Result {
		result.Status = status
		result.ExitPath = exitPath
		result.CompletedAt = time.Now().UTC()
		result.DurationMs = result.CompletedAt.Sub(result.StartedAt).Milliseconds()
		return result
	}

	repoStatus, err := l.repo.Status(ctx, l.cfg.RepoPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to read target repo status")
		result.Reason = "read target repo status: " + err.Error()
		return finish(tasktype.StatusError, tasktype.ExitInternalError)
	}
	if safety.IsDirty(repoStatus) {
		log.Warn().Msg("target repository is dirty, refusing to process task")
		return finish(tasktype.StatusFailed, tasktype.ExitRepoDirty)
	}

	currentBranch, err := l.repo.CurrentBranch(ctx, l.cfg.RepoPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to read current branch")
		result.Reason = "read current branch: " + err.Error()
		return finish(tasktype.StatusError, tasktype.ExitInternalError)
	}
	branch := currentBranch
	autoBranch := safety.NeedsAutoBranch(currentBranch)
	if autoBranch {
		branch = safety.AutoBranchName(task.ID)
	}
	result.Branch = branch

	if commit, cerr := l.repo.Head(ctx, l.cfg.RepoPath); cerr == nil {
		result.CommitBefore = commit
	}

	// The target repo's current branch is left checked out in the main
	// working tree; git refuses to check out the same branch a second
	// time in another worktree. Auto-branch names are fresh and safe to
	// check out with -b; an existing branch is kept by working detached
	// at HEAD instead.
	wsPath := l.queue.WorktreePath(task.ID)
	var worktreeErr error
	if autoBranch {
		worktreeErr = l.repo.WorktreeAdd(ctx, l.cfg.RepoPath, wsPath, branch)
	} else {
		worktreeErr = l.repo.WorktreeAddDetached(ctx, l.cfg.RepoPath, wsPath)
	}
	if worktreeErr != nil {
		log.Error().Err(worktreeErr).Msg("failed to create worktree")
		return finish(tasktype.StatusError, tasktype.ExitBranchCheckoutFailed)
	}
	cleanupWorktree := func() {
		if err := l.repo.WorktreeRemove(ctx, l.cfg.RepoPath, wsPath); err != nil {
			log.Warn().Err(err).Msg("failed to remove worktree via git, falling back to rmdir")
		}
		if err := l.queue.RemoveWorktree(task.ID); err != nil {
			log.Warn().Err(err).Msg("failed to remove leftover worktree directory")
		}
	}
	defer cleanupWorktree()

	// Step vii: run the AI executor inside the sandbox.
	execResult, execErr := l.runSandboxed(ctx, l.executor.Command(task), wsPath, l.cfg.Sandbox.TimeoutSec)
	if execErr != nil {
		log.Error().Err(execErr).Msg("sandbox infrastructure failure running executor")
		result.Reason = "run executor: " + execErr.Error()
		return finish(tasktype.StatusError, tasktype.ExitInternalError)
	}
	execMatches := scanOutput(execResult)
	if incident := incidentFromMatches(task.ID, execMatches); incident != nil {
		result.SecretIncident = incident
		log.Warn().Strs("patterns", incident.Patterns).Msg("secret detected in executor output")
		return finish(tasktype.StatusSecretDetected, tasktype.ExitSecretDetected)
	}
	if execResult.TimedOut {
		return finish(tasktype.StatusError, tasktype.ExitOpencodeTimeout)
	}
	if execResult.ExitCode != 0 {
		return finish(tasktype.StatusError, tasktype.ExitOpencodeCrashed)
	}

	// Step viii: run each verification command in order.
	allPassed := true
	var spilledLogs []spilledLog
	for i, v := range task.Verify {
		cmd := append([]string{v.Cmd}, v.Args...)
		runResult, err := l.runSandboxed(ctx, cmd, wsPath, v.TimeoutSec)
		if err != nil {
			log.Error().Err(err).Str("cmd", v.Cmd).Msg("sandbox infrastructure failure running verify command")
			result.Reason = fmt.Sprintf("run verify command %q: %s", v.Cmd, err.Error())
			return finish(tasktype.StatusError, tasktype.ExitInternalError)
		}

		matches := scanOutput(runResult)
		if incident := incidentFromMatches(task.ID, matches); incident != nil {
			result.SecretIncident = incident
			log.Warn().Strs("patterns", incident.Patterns).Msg("secret detected in verify output")
			l.retractSpilledLogs(task.ID, spilledLogs)
			return finish(tasktype.StatusSecretDetected, tasktype.ExitSecretDetected)
		}

		exitCode := runResult.ExitCode
		passed := !runResult.TimedOut && exitCode == v.ExpectedExit
		allPassed = allPassed && passed

		spilledLogs = append(spilledLogs, l.spillVerifyOutput(task.ID, i, runResult)...)

		result.Verification = append(result.Verification, tasktype.VerificationResult{
			Cmd:          v.Cmd,
			Args:         v.Args,
			ExitCode:     exitCode,
			ExpectedExit: v.ExpectedExit,
			Passed:       passed,
			DurationMs:   runResult.DurationMs,
			OutputTruncated: runResult.StdoutTruncated || runResult.StderrTruncated ||
				len(runResult.Stdout) > verifyLogCapBytes || len(runResult.Stderr) > verifyLogCapBytes,
		})
	}

	// Step x: scope enforcement against the actual changed-file set.
	finalStatus, err := l.repo.Status(ctx, wsPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to read worktree status")
		result.Reason = "read worktree status: " + err.Error()
		return finish(tasktype.StatusError, tasktype.ExitInternalError)
	}
	changed := mergeChangedFiles(finalStatus)
	result.FilesChanged = changed

	violations := safety.CheckScope(task.Scope, changed)
	violations = append(violations, safety.FilterForbiddenFilenames(changed)...)
	if len(violations) > 0 {
		log.Warn().Strs("violations", violations).Msg("task modified files outside its declared scope")
		return finish(tasktype.StatusFailed, tasktype.ExitScopeViolation)
	}

	// Step xi: emit the patch.
	diff, err := l.repo.Diff(ctx, wsPath, false)
	if err != nil {
		log.Error().Err(err).Msg("failed to compute diff")
		result.Reason = "compute diff: " + err.Error()
		return finish(tasktype.StatusError, tasktype.ExitInternalError)
	}
	if err := l.queue.WritePatch(task.ID, diff); err != nil {
		log.Error().Err(err).Msg("failed to write patch")
		result.Reason = "write patch: " + err.Error()
		return finish(tasktype.StatusError, tasktype.ExitInternalError)
	}
	result.Artifacts.PatchPath = l.queue.PatchPath(task.ID)

	if commit, cerr := l.repo.Head(ctx, wsPath); cerr == nil {
		result.CommitAfter = commit
	}

	if allPassed {
		return finish(tasktype.StatusSuccess, tasktype.ExitCompletedSuccess)
	}
	return finish(tasktype.StatusFailed, tasktype.ExitCompletedFailed)
}

// runSandboxed runs cmd inside the sandbox with the worktree mounted
// read-write, applying the loop's configured resource limits and env
// allow-list.
func (l *Loop) runSandboxed(ctx context.Context, cmd []string, wsPath string, timeoutSec int) (*sandbox.RunResult, error) {
	spec := sandbox.RunSpec{
		Image:          l.cfg.Sandbox.Image,
		Cmd:            cmd,
		WorkspaceMount: sandbox.Mount{Source: wsPath, Dest: "/workspace"},
		Limits:         l.sandboxLimits(),
		Timeout:        time.Duration(timeoutSec) * time.Second,
		Env:            l.allowlistedEnv(),
		UID:            uint32(os.Getuid()),
		GID:            uint32(os.Getgid()),
	}
	return l.runner.Run(ctx, spec)
}

func (l *Loop) sandboxLimits() sandbox.Limits {
	return sandbox.Limits{
		CPUCores:    l.cfg.Sandbox.CPUCores,
		MemoryBytes: l.cfg.Sandbox.MemoryMB * 1024 * 1024,
		PidsLimit:   l.cfg.Sandbox.PidsLimit,
	}
}

func (l *Loop) allowlistedEnv() []string {
	var env []string
	for _, name := range l.cfg.Sandbox.EnvAllowlist {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, fmt.Sprintf("%s=%s", name, v))
		}
	}
	return env
}

// scanOutput returns the matches the sandbox runner already found by
// scanning stdout/stderr live as the process produced them. This is
// deliberately NOT a re-scan of r.Stdout/r.Stderr: those strings are
// truncated to the sandbox's retention cap for display/spill, while
// StdoutMatches/StderrMatches cover the full, untruncated stream.
func scanOutput(r *sandbox.RunResult) []scanner.Match {
	var matches []scanner.Match
	matches = append(matches, r.StdoutMatches...)
	matches = append(matches, r.StderrMatches...)
	return matches
}

// spillVerifyOutput writes the retained (scanned-clean; this is only
// ever reached once scanOutput found no matches) stdout/stderr of a
// verify command to logs/ when it exceeds the in-result cap. The
// retained text is bounded by the sandbox's output retention cap, not
// silently dropped beyond it -- a capped stream carries a visible
// truncation sentinel instead.
func (l *Loop) spillVerifyOutput(taskID string, index int, r *sandbox.RunResult) []spilledLog {
	var spilled []spilledLog
	if len(r.Stdout) > verifyLogCapBytes {
		if err := l.queue.WriteLog(taskID, index, "stdout", []byte(r.Stdout)); err != nil {
			l.logger.Warn().Err(err).Str("task_id", taskID).Msg("failed to spill verify stdout log")
		} else {
			spilled = append(spilled, spilledLog{index: index, stream: "stdout"})
		}
	}
	if len(r.Stderr) > verifyLogCapBytes {
		if err := l.queue.WriteLog(taskID, index, "stderr", []byte(r.Stderr)); err != nil {
			l.logger.Warn().Err(err).Str("task_id", taskID).Msg("failed to spill verify stderr log")
		} else {
			spilled = append(spilled, spilledLog{index: index, stream: "stderr"})
		}
	}
	return spilled
}

// spilledLog identifies one verify-log file written under logs/, so a
// later secret_detected in the same task can retract it.
type spilledLog struct {
	index  int
	stream string
}

// retractSpilledLogs removes logs/ spills from earlier, scanned-clean
// verify steps once a later verify step in the same task trips the
// secret gate -- keeps the secret_detected invariant from being read
// around via an earlier step's spill file.
func (l *Loop) retractSpilledLogs(taskID string, spilled []spilledLog) {
	for _, s := range spilled {
		if err := l.queue.RemoveLog(taskID, s.index, s.stream); err != nil {
			l.logger.Warn().Err(err).Str("task_id", taskID).Msg("failed to retract verify log spill after secret detection")
		}
	}
}

// mergeChangedFiles flattens a status report into one changed-file set
// for scope enforcement and the result record's files_changed.
func mergeChangedFiles(s safevcs.StatusReport) []string {
	seen := map[string]bool{}
	var files []string
	add := func(list []string) {
		for _, f := range list {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	add(s.Staged)
	add(s.Unstaged)
	add(s.Untracked)
	add(s.Renamed)
	return files
}
