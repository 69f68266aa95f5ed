package orchestrator

import "github.com/cuemby/taskforge/pkg/tasktype"

// Executor produces the argv the sandbox runs as the AI code-modification
// step, given a task. The real executor (an external AI coding agent) is
// out of scope for this core; it is treated as an opaque command
// invoked inside the sandbox, identically to a verification command.
//
// EchoExecutor is the placeholder used when no real executor is wired:
// it runs a no-op inside the worktree so the rest of the lifecycle
// (scope check, patch emission, verification) can be exercised without
// depending on an external agent binary being present in the image.
type Executor interface {
	Command(task *tasktype.Task) []string
}

// EchoExecutor is the no-op Executor used until a real AI executor
// binary is wired into the sandbox image.
type EchoExecutor struct{}

func (EchoExecutor) Command(task *tasktype.Task) []string {
	return []string{"/bin/sh", "-c", "true"}
}
