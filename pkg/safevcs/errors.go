package safevcs

import "fmt"

// CommandError wraps a failed git invocation with its stderr output.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("safevcs: git %v: %v: %s", e.Args, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// WorktreeExistsError is returned by WorktreeAdd when the target path
// already exists.
type WorktreeExistsError struct {
	Path string
}

func (e *WorktreeExistsError) Error() string {
	return fmt.Sprintf("safevcs: worktree path %q already exists", e.Path)
}
