/*
Package locks implements the filesystem-based locking primitives that
arbitrate the only shared mutable state in taskforge: the handoff root.

A worker lock (__worker__.lock) is a singleton per handoff root,
reclaimed automatically when the pid that holds it is no longer alive on
the same host. A task lock (<id>.lock) is acquired non-blockingly per
task id; if present, the caller treats the task as held by another
operator and moves on rather than waiting.
*/
package locks
