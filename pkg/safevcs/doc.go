/*
Package safevcs performs git operations on behalf of taskforge while
guaranteeing that attacker-controlled hook scripts checked into a target
repository can never execute.

Every invocation pins core.hooksPath to /dev/null, disables auto-gc and
advisory output, runs under a wall-clock timeout, and uses a minimal,
explicit environment rather than inheriting the caller's. Nothing in this
package ever execs a repository-provided script: worktrees are created off
a known commit, diffs and status are read-only, and commits use a
caller-supplied message rather than an editor or commit-msg hook.
*/
package safevcs
