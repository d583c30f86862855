package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

func TestCreateCopiesDestination(t *testing.T) {
	dest := writeFile(t, t.TempDir(), "History", "original contents")

	handle, err := Create(dest)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	data, err := os.ReadFile(handle.Path())
	if err != nil {
		t.Fatalf("Failed to read backup: %v", err)
	}
	if string(data) != "original contents" {
		t.Errorf("Backup contents mismatch: got %q", data)
	}
}

func TestCreateMissingDestination(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("Expected error for missing destination, got nil")
	}
}

func TestCreateTwiceYieldsDistinctPaths(t *testing.T) {
	dest := writeFile(t, t.TempDir(), "History", "contents")

	first, err := Create(dest)
	if err != nil {
		t.Fatalf("First Create failed: %v", err)
	}
	second, err := Create(dest)
	if err != nil {
		t.Fatalf("Second Create failed: %v", err)
	}

	if first.Path() == second.Path() {
		t.Errorf("Backups collided at %s", first.Path())
	}
}

func TestRestoreRevertsAndDeletesBackup(t *testing.T) {
	dest := writeFile(t, t.TempDir(), "History", "pre-run state")

	handle, err := Create(dest)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Simulate a partial write
	if err := os.WriteFile(dest, []byte("corrupted mid-migration"), 0644); err != nil {
		t.Fatalf("Failed to overwrite destination: %v", err)
	}

	if err := handle.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("Failed to read destination: %v", err)
	}
	if !bytes.Equal(data, []byte("pre-run state")) {
		t.Errorf("Destination not restored: got %q", data)
	}

	if _, err := os.Stat(handle.Path()); !os.IsNotExist(err) {
		t.Errorf("Backup should be deleted after restore, stat err = %v", err)
	}
}

func TestRestoreWorksWhenDestinationGone(t *testing.T) {
	// Restore is the last line of defense: it must not require the
	// destination file to exist or be valid.
	dest := writeFile(t, t.TempDir(), "History", "pre-run state")

	handle, err := Create(dest)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := os.Remove(dest); err != nil {
		t.Fatalf("Failed to remove destination: %v", err)
	}

	if err := handle.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("Failed to read destination: %v", err)
	}
	if string(data) != "pre-run state" {
		t.Errorf("Destination not restored: got %q", data)
	}
}

func TestReleaseKeepsBackup(t *testing.T) {
	dest := writeFile(t, t.TempDir(), "History", "contents")

	handle, err := Create(dest)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	handle.Release()

	if _, err := os.Stat(handle.Path()); err != nil {
		t.Errorf("Backup should be retained after release: %v", err)
	}
}
