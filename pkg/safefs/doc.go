/*
Package safefs mediates every filesystem access made by taskforge's core.

All operations are confined to a root directory: the target path must
resolve inside that root, and no ancestor directory below the root may be a
symlink at the moment of access. This defeats the classic TOCTOU race where
an attacker swaps a regular file or directory component for a symlink
between a check (lstat) and a use (open).

# Threat model

Safe-FS exists because taskforge's orchestration loop writes task results,
patches, and logs into a handoff directory, and reads back an AI-generated
diff from a worktree it does not otherwise trust. Two attacks are in scope:

  - Path escape: a crafted relative path (".." segments, absolute paths, or
    a symlinked ancestor) that resolves outside the intended root.
  - Symlink substitution: a file that is a regular file at lstat time but a
    symlink to something else (e.g. /etc/shadow) by the time it is opened.

Every exported function re-validates containment on every call rather than
caching a resolved root, because the filesystem underneath an untrusted
worktree can change between calls.
*/
package safefs
