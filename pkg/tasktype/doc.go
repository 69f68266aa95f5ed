/*
Package tasktype defines Task and Result, the two schema-validated records
that cross the filesystem boundary between taskforge's queue and its
orchestration loop.

A Task is immutable once accepted: it names a prompt for the AI executor,
the scope of files the executor may touch, and the verification commands
that must pass before the result counts as a success. A Result is the
canonical, single record of a task's lifecycle outcome, written exactly
once per task id.

Both types round-trip through JSON unchanged: unmarshaling a marshaled
Task or Result yields an equal value, and unknown additive fields in a
Result produced by a newer producer are tolerated by any reader that
decodes into this package's struct.
*/
package tasktype
