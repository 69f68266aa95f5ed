/*
Package orchestrator implements the core task lifecycle: polling
tasks/, claiming one task at a time under the worker lock, materializing
an isolated worktree, invoking the sandbox for the executor and every
verification command, scanning all captured output for secrets,
enforcing scope, and writing a durable result.

The Loop type mirrors the ticker-plus-stopCh reconciliation shape used
elsewhere in taskforge's ambient stack, but drives its ticks from
context cancellation (SIGINT/SIGTERM) rather than a bare channel close,
so a single context.Context threads cleanly through every blocking
VCS/sandbox call the lifecycle makes.
*/
package orchestrator
