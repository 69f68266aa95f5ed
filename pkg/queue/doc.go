/*
Package queue implements the handoff directory: the fixed set of
subdirectories (tasks, running, results, patches, logs, locks, tmp)
that the orchestration loop uses as its only channel of shared state.

Queue transitions that matter for correctness -- moving a task file from
tasks/ to running/, and writing a result into results/ -- go through
safefs so that every write is containment-checked and, for results,
atomic.
*/
package queue
