package safety

import "fmt"

// NeedsAutoBranch reports whether current is one of the protected
// trunk branch names that must never be worked on directly.
func NeedsAutoBranch(current string) bool {
	return current == "main" || current == "master"
}

// AutoBranchName returns the feature branch name a task is auto-branched
// onto when it would otherwise run against a trunk branch.
func AutoBranchName(taskID string) string {
	return fmt.Sprintf("feat/ai/%s", taskID)
}
