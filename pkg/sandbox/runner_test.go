package sandbox

import "testing"

func TestStreamCapture_TruncatesAtLimitWithSentinel(t *testing.T) {
	c := newStreamCapture(10)
	n, err := c.Write([]byte("0123456789ABCDEF"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 16 {
		t.Fatalf("Write() returned n=%d, want 16 (writer must report full length written)", n)
	}
	if !c.truncated {
		t.Fatal("truncated = false, want true after exceeding limit")
	}
	got := c.String()
	if got != "0123456789"+outputTruncationSentinel {
		t.Fatalf("String() = %q, want first 10 bytes plus truncation sentinel", got)
	}
}

func TestStreamCapture_UnderLimitNotTruncated(t *testing.T) {
	c := newStreamCapture(1024)
	c.Write([]byte("hello"))
	if c.truncated {
		t.Fatal("truncated = true for output under the limit")
	}
	if got := c.String(); got != "hello" {
		t.Fatalf("String() = %q, want hello", got)
	}
}

func TestStreamCapture_SubsequentWritesAfterFullAreDropped(t *testing.T) {
	c := newStreamCapture(5)
	c.Write([]byte("12345"))
	c.Write([]byte("67890"))
	got := c.String()
	if got != "12345"+outputTruncationSentinel {
		t.Fatalf("String() = %q, want 12345 plus sentinel, unchanged by post-limit writes", got)
	}
}

// TestStreamCapture_ScansBeyondRetentionLimit is the regression case for
// the retention cap ever gating secret detection: a secret arriving after
// the buffer has already filled must still be reported.
func TestStreamCapture_ScansBeyondRetentionLimit(t *testing.T) {
	c := newStreamCapture(4)
	c.Write([]byte("AAAA"))
	c.Write([]byte("sk-abcdefghij1234567890abcd"))
	matches := c.finalize()
	if len(matches) != 1 {
		t.Fatalf("finalize() returned %d matches, want 1 (retention cap must not gate scanning)", len(matches))
	}
	if matches[0].PatternName != "OPENAI_KEY" {
		t.Fatalf("matches[0].PatternName = %q, want OPENAI_KEY", matches[0].PatternName)
	}
}

// TestStreamCapture_ScansAcrossChunkBoundary exercises the scanner's
// cross-chunk carry-over in the wired streamCapture path, not just the
// standalone scanner package.
func TestStreamCapture_ScansAcrossChunkBoundary(t *testing.T) {
	c := newStreamCapture(1 << 20)
	secret := "sk-abcdefghij1234567890abcd"
	mid := len(secret) / 2
	c.Write([]byte(secret[:mid]))
	c.Write([]byte(secret[mid:]))
	matches := c.finalize()
	if len(matches) != 1 {
		t.Fatalf("finalize() returned %d matches across a split secret, want exactly 1", len(matches))
	}
}

func TestSpecOpts_IncludesHardeningOptions(t *testing.T) {
	spec := RunSpec{
		Image: "docker.io/library/alpine:latest",
		Cmd:   []string{"/bin/sh", "-c", "true"},
		Env:   []string{"PATH=/usr/bin"},
		Limits: Limits{
			CPUCores:    1,
			MemoryBytes: 256 * 1024 * 1024,
			PidsLimit:   64,
		},
		WorkspaceMount: Mount{Source: "/host/ws", Dest: "/workspace", ReadOnly: false},
	}
	opts := specOpts(spec)
	if len(opts) == 0 {
		t.Fatal("specOpts returned no options")
	}
	// The hardening options (no-new-privileges, readonly rootfs, capability
	// drop, network namespace isolation) plus process args/env are always
	// present regardless of spec contents; resource/mount options are
	// added on top when requested.
	minExpected := 8
	if len(opts) < minExpected {
		t.Fatalf("specOpts returned %d options, want at least %d", len(opts), minExpected)
	}
}
