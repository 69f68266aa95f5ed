package sandbox

import (
	"time"

	"github.com/cuemby/taskforge/pkg/scanner"
)

// DefaultNamespace is the containerd namespace taskforge uses for its
// sandboxed executions, kept separate from any other tenant of the same
// containerd daemon.
const DefaultNamespace = "taskforge"

// DefaultSocketPath is the default containerd socket path.
const DefaultSocketPath = "/run/containerd/containerd.sock"

// Limits bounds the resources a sandboxed process may consume.
type Limits struct {
	CPUCores    float64 // 0 means unlimited
	MemoryBytes int64   // 0 means unlimited
	PidsLimit   int64   // 0 means unlimited
}

// RunSpec describes one command execution inside the sandbox.
type RunSpec struct {
	// Image is the OCI image reference the command runs inside.
	Image string
	// Cmd is the argv of the process to execute as PID 1.
	Cmd []string
	// Env is the allow-listed environment passed to the process. Nothing
	// from the host environment is inherited.
	Env []string
	// WorkspaceMount binds a host directory read-write into the
	// container at Dest. Used to expose the git worktree under
	// verification.
	WorkspaceMount Mount
	// UID and GID run the process as, mapped to the host invoker's
	// identity rather than root.
	UID uint32
	GID uint32
	// Limits bounds CPU, memory, and process count.
	Limits Limits
	// Timeout bounds wall-clock execution; on expiry the process is
	// sent SIGKILL.
	Timeout time.Duration
	// MaxOutputBytes caps how much combined stdout+stderr is retained
	// per stream before truncation.
	MaxOutputBytes int64
}

// Mount describes a single bind mount into the sandbox.
type Mount struct {
	Source   string
	Dest     string
	ReadOnly bool
}

// RunResult is the outcome of one sandboxed execution.
type RunResult struct {
	ExitCode int
	// Stdout and Stderr hold up to MaxOutputBytes of captured output for
	// display/spill purposes. They are NOT the basis for secret
	// detection -- StdoutMatches/StderrMatches are computed by scanning
	// every byte as it arrives, so a secret past the retention cap is
	// still caught.
	Stdout          string
	Stderr          string
	StdoutTruncated bool
	StderrTruncated bool
	// StdoutMatches and StderrMatches are the scanner matches found in
	// the full output stream, independent of how much of that stream
	// was retained in Stdout/Stderr.
	StdoutMatches []scanner.Match
	StderrMatches []scanner.Match
	TimedOut      bool
	DurationMs    int64
}

const defaultMaxOutputBytes = 2 * 1024 * 1024
