// Package backup copies the destination history database aside before any
// mutation and restores it on failure. Restore is the last line of defense:
// it must work even when the destination file has been corrupted, so it
// only depends on the backup copy being readable.
package backup

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Handle owns a backup copy of the destination file. Exactly one of
// Release or Restore should be called per handle: Release after a
// successful commit (the backup stays on disk for the user), Restore on
// failure (the backup is copied back and then deleted).
type Handle struct {
	originalPath string
	backupPath   string
}

// Create copies the destination file to a timestamped sibling path and
// returns a handle owning that copy. Fails if the destination is missing
// or the copy cannot be written.
func Create(destPath string) (*Handle, error) {
	if _, err := os.Stat(destPath); err != nil {
		return nil, fmt.Errorf("failed to stat destination: %w", err)
	}

	backupPath := uniquePath(fmt.Sprintf("%s.backup-%s", destPath, time.Now().Format("20060102-150405")))
	if err := CopyFile(destPath, backupPath); err != nil {
		return nil, fmt.Errorf("failed to create backup: %w", err)
	}

	return &Handle{originalPath: destPath, backupPath: backupPath}, nil
}

// Path returns the location of the backup copy.
func (h *Handle) Path() string {
	return h.backupPath
}

// Restore copies the backup back over the destination and deletes the
// backup copy. The destination file does not need to exist or be valid.
func (h *Handle) Restore() error {
	if err := CopyFile(h.backupPath, h.originalPath); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	if err := os.Remove(h.backupPath); err != nil {
		return fmt.Errorf("failed to remove backup after restore: %w", err)
	}
	return nil
}

// Release gives up ownership after a successful commit. The backup file
// is retained on disk until the user deletes it.
func (h *Handle) Release() {}

// CopyFile copies src to dst, truncating dst if it exists, preserving the
// source file mode, and fsyncing before returning.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("failed to sync %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}

	return nil
}

// uniquePath appends a numeric suffix when the timestamped name already
// exists (two runs within the same second).
func uniquePath(path string) string {
	candidate := path
	for i := 2; ; i++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", path, i)
	}
}
