package tasktype

import "time"

// ExitPath is the closed enum naming the terminal transition of a task.
// Exactly one is recorded per Result.
type ExitPath string

const (
	ExitCompletedSuccess     ExitPath = "completed_success"
	ExitCompletedFailed      ExitPath = "completed_failed"
	ExitWorkerLocked         ExitPath = "worker_locked"
	ExitSchemaInvalid        ExitPath = "schema_invalid"
	ExitIdempotentSkip       ExitPath = "idempotent_skip"
	ExitBranchCheckoutFailed ExitPath = "branch_checkout_failed"
	ExitRepoDirty            ExitPath = "repo_dirty"
	ExitOpencodeTimeout      ExitPath = "opencode_timeout"
	ExitOpencodeCrashed      ExitPath = "opencode_crashed"
	ExitVerifyFailed         ExitPath = "verify_failed"
	ExitScopeViolation       ExitPath = "scope_violation"
	ExitSecretDetected       ExitPath = "secret_detected"
	ExitInternalError        ExitPath = "internal_error"
)

// Status is the coarse-grained outcome bucket reported alongside ExitPath.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusFailed         Status = "failed"
	StatusError          Status = "error"
	StatusSecretDetected  Status = "secret_detected"
)

// VerificationResult records the outcome of one verify command.
type VerificationResult struct {
	Cmd             string   `json:"cmd"`
	Args            []string `json:"args,omitempty"`
	ExitCode        int      `json:"exit_code"`
	ExpectedExit    int      `json:"expected_exit"`
	Passed          bool     `json:"passed"`
	DurationMs      int64    `json:"duration_ms"`
	OutputTruncated bool     `json:"output_truncated"`
}

// Artifacts names the side files produced for a task, if any.
type Artifacts struct {
	LogPath   string `json:"log_path,omitempty"`
	PatchPath string `json:"patch_path,omitempty"`
}

// SecretIncident correlates a secret-detection event without revealing
// any matched text: only pattern names and a non-reversible hash.
type SecretIncident struct {
	Patterns     []string `json:"patterns"`
	MatchCount   int      `json:"match_count"`
	IncidentHash string   `json:"incident_hash"`
}

// Result is the canonical record of one task's lifecycle outcome. Exactly
// one Result exists per task id.
type Result struct {
	TaskID         string               `json:"task_id"`
	TaskSnapshot   Task                 `json:"task_snapshot"`
	Status         Status               `json:"status"`
	ExitPath       ExitPath             `json:"exit_path"`
	StartedAt      time.Time            `json:"started_at"`
	CompletedAt    time.Time            `json:"completed_at"`
	DurationMs     int64                `json:"duration_ms"`
	Verification   []VerificationResult `json:"verification,omitempty"`
	Branch         string               `json:"branch,omitempty"`
	CommitBefore   string               `json:"commit_before,omitempty"`
	CommitAfter    string               `json:"commit_after,omitempty"`
	FilesChanged   []string             `json:"files_changed,omitempty"`
	Artifacts      Artifacts            `json:"artifacts"`
	SecretIncident *SecretIncident      `json:"secret_incident,omitempty"`

	// Reason carries a free-form error message for exit paths that have
	// no other structured explanation -- internal_error and
	// schema_invalid. Left empty on every other exit path.
	Reason string `json:"reason,omitempty"`

	// InsecureRunnerUsed must be false in production. It exists so tests
	// can exercise the pipeline with a non-sandboxed runner while that
	// fact remains visible and auditable in every resulting record.
	InsecureRunnerUsed bool `json:"insecure_runner_used"`
}

// Validate checks the Result invariants: completion cannot precede start,
// and a secret_detected result must carry no artifacts or patch.
func (r *Result) Validate() error {
	if r.CompletedAt.Before(r.StartedAt) {
		return errInvalidResult("completed_at precedes started_at")
	}
	if r.Status == StatusSecretDetected {
		if r.Artifacts.LogPath != "" || r.Artifacts.PatchPath != "" {
			return errInvalidResult("secret_detected result must not carry artifacts")
		}
	}
	return nil
}

type resultValidationError struct{ reason string }

func (e *resultValidationError) Error() string { return "tasktype: invalid result: " + e.reason }

func errInvalidResult(reason string) error { return &resultValidationError{reason: reason} }
