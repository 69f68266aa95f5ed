package locks

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// WorkerLockName is the fixed filename of the singleton worker lock.
const WorkerLockName = "__worker__.lock"

// BusyError is returned when the worker lock is held by another live
// process on this host.
type BusyError struct {
	Holder Record
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("locks: worker lock held by pid %d on %s", e.Holder.PID, e.Holder.Host)
}

// WorkerLock guards exclusive ownership of one handoff root.
type WorkerLock struct {
	path string
}

// AcquireWorker attempts to take the worker lock under locksDir. If a
// lock file is present, it is reclaimed (removed and re-attempted)
// whenever it names a pid that is no longer alive on this host;
// otherwise AcquireWorker returns a *BusyError.
func AcquireWorker(locksDir string) (*WorkerLock, error) {
	if err := os.MkdirAll(locksDir, 0o755); err != nil {
		return nil, fmt.Errorf("locks: create locks dir: %w", err)
	}
	path := filepath.Join(locksDir, WorkerLockName)

	for attempt := 0; attempt < 2; attempt++ {
		rec := newRecord("", 0)
		data, err := marshalRecord(rec)
		if err != nil {
			return nil, err
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			if _, werr := f.Write(data); werr != nil {
				f.Close()
				os.Remove(path)
				return nil, fmt.Errorf("locks: write worker lock: %w", werr)
			}
			f.Close()
			return &WorkerLock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("locks: create worker lock: %w", err)
		}

		existing, rerr := os.ReadFile(path)
		if rerr != nil {
			// Lock disappeared between the failed create and the read; retry.
			continue
		}
		holder, perr := unmarshalRecord(existing)
		if perr != nil {
			// Unreadable lock file: treat as stale and reclaim it.
			os.Remove(path)
			continue
		}
		if isStale(holder) {
			os.Remove(path)
			continue
		}
		return nil, &BusyError{Holder: holder}
	}
	return nil, fmt.Errorf("locks: could not acquire worker lock at %s", path)
}

// Release removes the worker lock. Safe to call on a nil receiver.
func (w *WorkerLock) Release() error {
	if w == nil {
		return nil
	}
	return os.Remove(w.path)
}

// InspectWorker reports the holder of the worker lock under locksDir
// without attempting to acquire or reclaim it, for read-only diagnostics.
func InspectWorker(locksDir string) (rec Record, held bool, err error) {
	data, err := os.ReadFile(filepath.Join(locksDir, WorkerLockName))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("locks: read worker lock: %w", err)
	}
	rec, err = unmarshalRecord(data)
	if err != nil {
		return Record{}, false, fmt.Errorf("locks: parse worker lock: %w", err)
	}
	return rec, true, nil
}

// IsStale reports whether rec names a pid that is no longer alive on
// this host, for read-only diagnostics.
func IsStale(rec Record) bool {
	return isStale(rec)
}

func isStale(holder Record) bool {
	host, _ := os.Hostname()
	if holder.Host != host {
		// Can't check liveness of a pid on another host; assume live.
		return false
	}
	return !pidAlive(holder.PID)
}

func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds; signal 0 probes liveness
	// without affecting the target process.
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}
