package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/taskforge/internal/config"
	"github.com/cuemby/taskforge/internal/obslog"
	"github.com/cuemby/taskforge/internal/obsmetrics"
	"github.com/cuemby/taskforge/internal/resultindex"
	"github.com/cuemby/taskforge/pkg/locks"
	"github.com/cuemby/taskforge/pkg/queue"
	"github.com/cuemby/taskforge/pkg/safevcs"
	"github.com/cuemby/taskforge/pkg/sandbox"
	"github.com/cuemby/taskforge/pkg/tasktype"
)

// Loop is the orchestrator's main task-processing loop: single active
// worker per handoff root, tasks processed strictly sequentially.
type Loop struct {
	cfg      config.Config
	queue    *queue.Root
	repo     *safevcs.Repo
	runner   *sandbox.Runner
	executor Executor
	index    *resultindex.Index
	logger   zerolog.Logger

	mu     sync.Mutex
	worker *locks.WorkerLock
}

// New builds a Loop from its dependencies. executor may be nil to use
// the EchoExecutor placeholder. index may be nil; when set, every result
// written is also upserted into the secondary index.
func New(cfg config.Config, q *queue.Root, repo *safevcs.Repo, runner *sandbox.Runner, executor Executor, index *resultindex.Index) *Loop {
	if executor == nil {
		executor = EchoExecutor{}
	}
	return &Loop{
		cfg:      cfg,
		queue:    q,
		repo:     repo,
		runner:   runner,
		executor: executor,
		index:    index,
		logger:   obslog.WithComponent("orchestrator"),
	}
}

// Preflight verifies the container engine is reachable and the
// configured sandbox image is present. It is a fatal error before any
// task is touched -- the worker never claims a task it cannot sandbox.
func (l *Loop) Preflight(ctx context.Context) error {
	if !l.runner.IsEngineAvailable(ctx) {
		return fmt.Errorf("orchestrator: container engine not reachable")
	}
	if !l.runner.IsImageAvailable(ctx, l.cfg.Sandbox.Image) {
		return fmt.Errorf("orchestrator: sandbox image %s not present", l.cfg.Sandbox.Image)
	}
	return nil
}

// Run acquires the worker lock and processes passes until ctx is
// canceled (SIGINT/SIGTERM) or, in once mode, after a single pass.
func (l *Loop) Run(ctx context.Context, once bool) error {
	worker, err := locks.AcquireWorker(l.queue.LocksPath())
	if err != nil {
		return fmt.Errorf("orchestrator: acquire worker lock: %w", err)
	}
	l.mu.Lock()
	l.worker = worker
	l.mu.Unlock()
	obsmetrics.WorkerLockHeld.Set(1)
	defer func() {
		worker.Release()
		obsmetrics.WorkerLockHeld.Set(0)
	}()

	l.logger.Info().Bool("once", once).Msg("orchestrator loop starting")

	for {
		stop, err := l.runPass(ctx)
		if err != nil {
			l.logger.Error().Err(err).Msg("pass failed")
		}
		if once || stop {
			return err
		}

		select {
		case <-ctx.Done():
			l.logger.Info().Msg("shutdown signal received, exiting after current pass")
			return nil
		case <-time.After(l.cfg.PollInterval()):
		}
	}
}

// runPass processes every currently-pending task once, in priority
// order, stopping early if a task's failure carries stop_on_failure.
func (l *Loop) runPass(ctx context.Context) (stopLoop bool, err error) {
	pending, err := l.queue.ListPending()
	if err != nil {
		return false, fmt.Errorf("orchestrator: list pending: %w", err)
	}

	for _, p := range pending {
		select {
		case <-ctx.Done():
			return false, nil
		default:
		}

		if stop := l.handleOne(ctx, p); stop {
			return true, nil
		}
	}
	return false, nil
}

// handleOne runs the full per-task lifecycle for one pending entry and
// reports whether the outer pass should stop.
func (l *Loop) handleOne(ctx context.Context, p queue.Pending) (stopLoop bool) {
	log := obslog.WithTaskID(p.ID)

	if p.Err != nil {
		log.Warn().Err(p.Err).Msg("task failed schema validation")
		l.writeImmediateResult(p.ID, nil, tasktype.StatusError, tasktype.ExitSchemaInvalid, p.Err.Error())
		if derr := l.queue.DeleteTask(p.ID); derr != nil {
			log.Error().Err(derr).Msg("failed to delete schema-invalid task file")
		}
		return false
	}

	if l.queue.HasResult(p.ID) {
		log.Info().Msg("idempotent skip: result already exists")
		if derr := l.queue.DeleteTask(p.ID); derr != nil {
			log.Error().Err(derr).Msg("failed to delete duplicate task file")
		}
		return false
	}

	taskLock, ok, err := locks.AcquireTask(l.queue.LocksPath(), p.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to acquire task lock")
		return false
	}
	if !ok {
		log.Info().Msg("task lock held by another operator, skipping this pass")
		return false
	}
	defer taskLock.Release()

	if err := l.queue.Claim(p.ID); err != nil {
		log.Error().Err(err).Msg("failed to claim task")
		return false
	}

	timer := obsmetrics.NewTimer()
	result := l.runTask(ctx, p.Task)
	obsmetrics.TaskDuration.WithLabelValues(string(result.ExitPath)).Observe(timer.Duration().Seconds())
	obsmetrics.TasksTotal.WithLabelValues(string(result.ExitPath)).Inc()

	if err := l.queue.WriteResult(result); err != nil {
		log.Error().Err(err).Msg("failed to write result")
	}
	l.indexResult(result)
	if err := l.queue.ReleaseRunning(p.ID); err != nil {
		log.Error().Err(err).Msg("failed to remove running marker")
	}

	if result.ExitPath == tasktype.ExitCompletedFailed && p.Task.StopsOnFailure() {
		log.Warn().Msg("stop_on_failure set, halting loop pass")
		return true
	}
	return false
}

// writeImmediateResult writes a minimal result for tasks that never
// reach the full lifecycle (schema_invalid has no task snapshot worth
// trusting).
func (l *Loop) writeImmediateResult(id string, task *tasktype.Task, status tasktype.Status, exitPath tasktype.ExitPath, reason string) {
	now := time.Now().UTC()
	result := &tasktype.Result{
		TaskID:      id,
		Status:      status,
		ExitPath:    exitPath,
		StartedAt:   now,
		CompletedAt: now,
	}
	if task != nil {
		result.TaskSnapshot = *task
	}
	result.Reason = reason
	if err := l.queue.WriteResult(result); err != nil {
		l.logger.Error().Err(err).Str("task_id", id).Msg("failed to write immediate result")
		return
	}
	l.indexResult(result)
}

// indexResult upserts result into the secondary index, if one is
// configured. The filesystem write above is always the authoritative
// step; a failure here only degrades status/doctor queries.
func (l *Loop) indexResult(result *tasktype.Result) {
	if l.index == nil {
		return
	}
	if err := l.index.Put(result); err != nil {
		l.logger.Warn().Err(err).Str("task_id", result.TaskID).Msg("failed to update result index")
	}
}
