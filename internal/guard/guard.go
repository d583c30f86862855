// Package guard refuses to run a migration while either browser is
// running, and serializes migrations against the same destination with a
// file lock. Both checks happen before any file is touched.
package guard

import (
	"fmt"
	"os"
	"strings"

	"github.com/gofrs/flock"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/lherron/histmig/internal/domain"
)

// Checker reports whether it is safe to touch the history stores.
type Checker interface {
	CheckSafeToRun() error
}

// ProcessChecker scans the process table for browser executables. Any
// match aborts the run, even for the read-only source, favoring safety
// over availability.
type ProcessChecker struct {
	// Names are lowercase substrings matched against process names.
	Names []string
}

// NewProcessChecker returns a checker matching Safari and Chrome
// processes.
func NewProcessChecker() *ProcessChecker {
	return &ProcessChecker{Names: []string{"safari", "chrome"}}
}

// CheckSafeToRun returns *domain.LockedError naming the first browser
// process found running. It has no side effects beyond inspection.
func (c *ProcessChecker) CheckSafeToRun() error {
	procs, err := process.Processes()
	if err != nil {
		return fmt.Errorf("failed to list processes: %w", err)
	}

	self := int32(os.Getpid())
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		name, err := p.Name()
		if err != nil {
			// Processes can exit between listing and inspection.
			continue
		}
		lower := strings.ToLower(name)
		for _, want := range c.Names {
			if strings.Contains(lower, want) {
				return &domain.LockedError{Process: name}
			}
		}
	}

	return nil
}

// RunLock holds an exclusive file lock next to the destination so two
// migrations cannot race each other. The process check alone cannot see
// another histmig instance that has already passed its own check.
type RunLock struct {
	fl *flock.Flock
}

// AcquireRunLock takes the lock without blocking. A held lock surfaces as
// *domain.LockedError.
func AcquireRunLock(destPath string) (*RunLock, error) {
	fl := flock.New(destPath + ".histmig.lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		return nil, &domain.LockedError{Process: "another histmig migration"}
	}
	return &RunLock{fl: fl}, nil
}

// Release drops the lock and removes the lock file.
func (l *RunLock) Release() {
	path := l.fl.Path()
	_ = l.fl.Unlock()
	_ = os.Remove(path)
}
