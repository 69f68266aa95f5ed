/*
Package sandbox runs a single command inside a locked-down containerd
container and returns its exit code and captured output.

Every container created here gets no network namespace, a read-only
rootfs, every Linux capability dropped, no-new-privileges, a tmpfs /tmp,
and explicit CPU/memory/pids limits. The package never shells out to a
container CLI; it talks to containerd directly through its Go client, the
same way taskforge's ambient runtime package does, so that resource
limits and mounts are expressed as typed OCI spec options rather than
string flags.

A Runner is tied to one containerd namespace and socket. Each call to
Run creates a throwaway container and snapshot, starts it, waits for
exit or timeout, and deletes both before returning -- nothing sandboxed
survives past the call that created it.
*/
package sandbox
