package tokenfile

import (
	"fmt"
	"os"
	"time"
)

// staleLockAge is the age past which a leftover lock file (e.g. from a
// crashed process) is broken.
const staleLockAge = 30 * time.Second

// withLock runs fn while holding an advisory lock next to path. The lock is
// an O_EXCL-created sibling file, portable across platforms.
func withLock(path string, timeout time.Duration, fn func() error) error {
	lockPath := path + ".lock"

	deadline := time.Now().Add(timeout)
	for {
		file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
		if err == nil {
			_ = file.Close()
			defer func() { _ = os.Remove(lockPath) }()
			return fn()
		}

		if !os.IsExist(err) {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}

		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > staleLockAge {
			_ = os.Remove(lockPath)
			continue
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timeout acquiring lock after %v", timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
