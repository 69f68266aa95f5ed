package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"
	"github.com/google/uuid"
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/cuemby/taskforge/internal/obslog"
	"github.com/cuemby/taskforge/pkg/scanner"
)

// Runner executes commands inside locked-down containerd containers.
type Runner struct {
	client    *containerd.Client
	namespace string
}

// NewRunner connects to the containerd socket at socketPath. An empty
// socketPath selects DefaultSocketPath.
func NewRunner(socketPath string) (*Runner, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	client, err := containerd.New(socketPath)
	if err != nil {
		return nil, fmt.Errorf("sandbox: connect to containerd: %w", err)
	}
	return &Runner{client: client, namespace: DefaultNamespace}, nil
}

// Close closes the containerd client connection.
func (rnr *Runner) Close() error {
	if rnr.client == nil {
		return nil
	}
	return rnr.client.Close()
}

// IsEngineAvailable reports whether the containerd daemon is reachable.
func (rnr *Runner) IsEngineAvailable(ctx context.Context) bool {
	if rnr.client == nil {
		return false
	}
	_, err := rnr.client.Version(ctx)
	return err == nil
}

// IsImageAvailable reports whether imageRef is present in the local
// content store, pulling it is left to the caller.
func (rnr *Runner) IsImageAvailable(ctx context.Context, imageRef string) bool {
	ctx = namespaces.WithNamespace(ctx, rnr.namespace)
	_, err := rnr.client.GetImage(ctx, imageRef)
	return err == nil
}

// PullImage pulls imageRef from its registry and unpacks it.
func (rnr *Runner) PullImage(ctx context.Context, imageRef string) error {
	ctx = namespaces.WithNamespace(ctx, rnr.namespace)
	_, err := rnr.client.Pull(ctx, imageRef, containerd.WithPullUnpack)
	if err != nil {
		return fmt.Errorf("sandbox: pull image %s: %w", imageRef, err)
	}
	return nil
}

// Run executes spec inside a fresh, network-isolated container and
// returns its captured output and exit code. The container and its
// snapshot are deleted before Run returns, regardless of outcome.
func (rnr *Runner) Run(ctx context.Context, spec RunSpec) (*RunResult, error) {
	log := obslog.WithComponent("sandbox")

	ctx = namespaces.WithNamespace(ctx, rnr.namespace)

	image, err := rnr.client.GetImage(ctx, spec.Image)
	if err != nil {
		return nil, fmt.Errorf("sandbox: image %s not present: %w", spec.Image, err)
	}

	id := "tf-" + uuid.NewString()
	opts := specOpts(spec)

	container, err := rnr.client.NewContainer(
		ctx,
		id,
		containerd.WithImage(image),
		containerd.WithNewSnapshot(id+"-snapshot", image),
		containerd.WithNewSpec(opts...),
	)
	if err != nil {
		return nil, fmt.Errorf("sandbox: create container: %w", err)
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if derr := container.Delete(dctx, containerd.WithSnapshotCleanup); derr != nil {
			log.Warn().Err(derr).Str("container_id", id).Msg("failed to delete sandbox container")
		}
	}()

	maxBytes := spec.MaxOutputBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxOutputBytes
	}
	stdout := newStreamCapture(maxBytes)
	stderr := newStreamCapture(maxBytes)

	task, err := container.NewTask(ctx, cio.NewCreator(cio.WithStreams(nil, stdout, stderr)))
	if err != nil {
		return nil, fmt.Errorf("sandbox: create task: %w", err)
	}
	defer func() {
		if _, derr := task.Delete(context.Background()); derr != nil {
			log.Warn().Err(derr).Str("container_id", id).Msg("failed to delete sandbox task")
		}
	}()

	statusC, err := task.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("sandbox: wait on task: %w", err)
	}

	start := time.Now()
	if err := task.Start(ctx); err != nil {
		return nil, fmt.Errorf("sandbox: start task: %w", err)
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := &RunResult{}
	select {
	case status := <-statusC:
		result.ExitCode = int(status.ExitCode())
	case <-runCtx.Done():
		result.TimedOut = true
		if err := task.Kill(ctx, syscall.SIGKILL); err != nil {
			log.Warn().Err(err).Str("container_id", id).Msg("failed to SIGKILL timed-out sandbox task")
		}
		<-statusC
		result.ExitCode = -1
	}
	result.DurationMs = time.Since(start).Milliseconds()
	result.Stdout, result.StdoutTruncated = stdout.String(), stdout.truncated
	result.Stderr, result.StderrTruncated = stderr.String(), stderr.truncated
	result.StdoutMatches = stdout.finalize()
	result.StderrMatches = stderr.finalize()

	return result, nil
}

// specOpts translates a RunSpec into the hardened OCI spec options every
// sandboxed container gets: no capabilities, no new privileges, a
// read-only rootfs, a writable tmpfs /tmp, and CPU/memory/pids limits.
func specOpts(spec RunSpec) []oci.SpecOpts {
	opts := []oci.SpecOpts{
		oci.WithProcessArgs(spec.Cmd...),
		oci.WithEnv(spec.Env),
		oci.WithCapabilities(nil),
		oci.WithNoNewPrivileges,
		oci.WithRootFSReadonly(),
		oci.WithUIDGID(spec.UID, spec.GID),
		// Network isolation is containerd's implicit default once no CNI
		// plugin runs and no host network namespace option is set (an
		// unconfigured netns has only loopback, no routes out). Asserted
		// explicitly here since the spec treats network=none as a hard
		// requirement rather than an incidental default.
		oci.WithLinuxNamespace(specs.LinuxNamespace{Type: specs.NetworkNamespace}),
		oci.WithMounts([]specs.Mount{
			{
				Destination: "/tmp",
				Type:        "tmpfs",
				Source:      "tmpfs",
				Options:     []string{"nosuid", "noexec", "nodev", "size=67108864"},
			},
		}),
	}

	if spec.WorkspaceMount.Source != "" {
		mountOpts := []string{"rbind"}
		if spec.WorkspaceMount.ReadOnly {
			mountOpts = append(mountOpts, "ro")
		} else {
			mountOpts = append(mountOpts, "rw")
		}
		opts = append(opts, oci.WithMounts([]specs.Mount{
			{
				Source:      spec.WorkspaceMount.Source,
				Destination: spec.WorkspaceMount.Dest,
				Type:        "bind",
				Options:     mountOpts,
			},
		}))
	}

	if spec.Limits.CPUCores > 0 {
		shares := uint64(spec.Limits.CPUCores * 1024)
		quota := int64(spec.Limits.CPUCores * 100000)
		opts = append(opts, oci.WithCPUShares(shares), oci.WithCPUCFS(quota, 100000))
	}
	if spec.Limits.MemoryBytes > 0 {
		opts = append(opts, oci.WithMemoryLimit(uint64(spec.Limits.MemoryBytes)))
	}
	if spec.Limits.PidsLimit > 0 {
		opts = append(opts, oci.WithPidsLimit(int64(spec.Limits.PidsLimit)))
	}

	return opts
}

// outputTruncationSentinel is appended to a retained stream's display
// text when it was capped, mirroring safevcs's diff-truncation marker:
// truncation is always visible, never silent.
const outputTruncationSentinel = "\n...[truncated: output exceeds retention cap]\n"

// streamCapture is an io.Writer wired as a container's stdout/stderr
// sink. Every write is fed to a live scanner.Scanner as bytes arrive, so
// secret detection covers the entire stream regardless of how much of
// it is retained; a separate bytes.Buffer, capped at limit, retains
// only a bounded prefix for display and log-spill purposes.
type streamCapture struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int64
	truncated bool
	scan      *scanner.Scanner
	matches   []scanner.Match
}

func newStreamCapture(limit int64) *streamCapture {
	return &streamCapture{limit: limit, scan: scanner.New()}
}

func (c *streamCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.matches = append(c.matches, c.scan.Scan(p)...)

	remaining := c.limit - int64(c.buf.Len())
	switch {
	case remaining <= 0:
		c.truncated = true
	case int64(len(p)) > remaining:
		c.buf.Write(p[:remaining])
		c.truncated = true
	default:
		c.buf.Write(p)
	}
	return len(p), nil
}

func (c *streamCapture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.truncated {
		return c.buf.String() + outputTruncationSentinel
	}
	return c.buf.String()
}

// finalize flushes the scanner's trailing tail buffer and returns every
// match found across the full stream. Must be called exactly once,
// after all writes have completed.
func (c *streamCapture) finalize() []scanner.Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches = append(c.matches, c.scan.Finalize()...)
	return c.matches
}
