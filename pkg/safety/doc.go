/*
Package safety implements the gates the orchestration loop checks around
each task: the target repository must be clean before a worktree is
carved from it, a branch checked out on main/master must be replaced
with a per-task feature branch, the file names an executor creates must
never look like a credential, and the files it actually touched must
stay inside the task's declared scope.

None of these gates are advisory. Each one maps directly to an exit_path
the loop can record: repo_dirty, branch_checkout_failed, scope_violation.
*/
package safety
