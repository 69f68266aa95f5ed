package tasktype

import (
	"testing"
	"time"
)

func TestResult_Validate(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("completed before started is rejected", func(t *testing.T) {
		r := Result{StartedAt: base, CompletedAt: base.Add(-time.Second)}
		if err := r.Validate(); err == nil {
			t.Fatal("Validate() accepted completed_at before started_at")
		}
	})

	t.Run("secret_detected with artifacts is rejected", func(t *testing.T) {
		r := Result{
			StartedAt:   base,
			CompletedAt: base,
			Status:      StatusSecretDetected,
			Artifacts:   Artifacts{PatchPath: "patches/t1.patch"},
		}
		if err := r.Validate(); err == nil {
			t.Fatal("Validate() accepted secret_detected result carrying a patch")
		}
	})

	t.Run("well formed result is accepted", func(t *testing.T) {
		r := Result{
			StartedAt:   base,
			CompletedAt: base.Add(time.Second),
			Status:      StatusSuccess,
			ExitPath:    ExitCompletedSuccess,
		}
		if err := r.Validate(); err != nil {
			t.Fatalf("Validate() rejected a well-formed result: %v", err)
		}
	})
}

func TestResult_JSONRoundTrip(t *testing.T) {
	original := &Result{
		TaskID:      "t1",
		Status:      StatusSuccess,
		ExitPath:    ExitCompletedSuccess,
		StartedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CompletedAt: time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC),
		DurationMs:  5000,
		Verification: []VerificationResult{
			{Cmd: "true", ExitCode: 0, ExpectedExit: 0, Passed: true},
		},
		Branch:       "feat/ai/t1",
		CommitBefore: "abc123",
		Artifacts:    Artifacts{PatchPath: "patches/t1.patch"},
	}

	encoded, err := MarshalResult(original)
	if err != nil {
		t.Fatalf("MarshalResult: %v", err)
	}
	decoded, err := UnmarshalResult(encoded)
	if err != nil {
		t.Fatalf("UnmarshalResult: %v", err)
	}

	if decoded.TaskID != original.TaskID || decoded.ExitPath != original.ExitPath ||
		decoded.DurationMs != original.DurationMs || decoded.Artifacts.PatchPath != original.Artifacts.PatchPath {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestResult_UnmarshalToleratesAdditiveFields(t *testing.T) {
	data := []byte(`{"task_id":"t1","status":"success","exit_path":"completed_success","future_field":"ignored"}`)
	r, err := UnmarshalResult(data)
	if err != nil {
		t.Fatalf("UnmarshalResult with additive field: %v", err)
	}
	if r.TaskID != "t1" {
		t.Fatalf("TaskID = %q, want t1", r.TaskID)
	}
}
