package safety

import "github.com/cuemby/taskforge/pkg/safevcs"

// IsDirty reports whether a status report has any uncommitted change:
// staged, unstaged, untracked, or renamed.
func IsDirty(report safevcs.StatusReport) bool {
	return len(report.Staged) > 0 || len(report.Unstaged) > 0 ||
		len(report.Untracked) > 0 || len(report.Renamed) > 0
}
