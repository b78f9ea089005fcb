package fileutil

import (
	"path/filepath"
	"testing"

	"sceneforge/internal/testsupport"
)

func TestDirectoryHashIsStableAndChangeSensitive(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "a.uasset"), 128)
	testsupport.WriteFile(t, filepath.Join(dir, "sub", "b.uasset"), 256)

	first, err := DirectoryHash(dir, nil)
	if err != nil {
		t.Fatalf("DirectoryHash: %v", err)
	}
	second, err := DirectoryHash(dir, nil)
	if err != nil {
		t.Fatalf("DirectoryHash again: %v", err)
	}
	if first != second {
		t.Fatal("hash not stable across scans")
	}

	testsupport.WriteFile(t, filepath.Join(dir, "c.uasset"), 64)
	changed, err := DirectoryHash(dir, nil)
	if err != nil {
		t.Fatalf("DirectoryHash after change: %v", err)
	}
	if changed == first {
		t.Fatal("hash did not change after adding a file")
	}
}

func TestDirectoryHashExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "a.uasset"), 128)

	base, err := DirectoryHash(dir, []string{".uasset"})
	if err != nil {
		t.Fatalf("DirectoryHash: %v", err)
	}

	// A file outside the filter must not affect the hash.
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), 32)
	filtered, err := DirectoryHash(dir, []string{".uasset"})
	if err != nil {
		t.Fatalf("DirectoryHash filtered: %v", err)
	}
	if filtered != base {
		t.Fatal("filtered hash changed for an excluded file")
	}
}

func TestCountFiles(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "frame_0001.png"), 10)
	testsupport.WriteFile(t, filepath.Join(dir, "frame_0002.png"), 10)
	testsupport.WriteFile(t, filepath.Join(dir, "render.log"), 10)
	testsupport.WriteFile(t, filepath.Join(dir, "nested", "frame_0003.png"), 10)

	if got := CountFiles(dir); got != 3 {
		t.Fatalf("CountFiles = %d, want 3 direct files", got)
	}
	if got := CountFiles(dir, ".png"); got != 2 {
		t.Fatalf("CountFiles(.png) = %d, want 2", got)
	}
	if got := CountFiles(filepath.Join(dir, "missing")); got != 0 {
		t.Fatalf("CountFiles(missing) = %d, want 0", got)
	}
}

func TestDirStats(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "a.bin"), 100)
	testsupport.WriteFile(t, filepath.Join(dir, "sub", "b.bin"), 200)

	files, bytes, err := DirStats(dir)
	if err != nil {
		t.Fatalf("DirStats: %v", err)
	}
	if files != 2 || bytes != 300 {
		t.Fatalf("DirStats = %d files, %d bytes", files, bytes)
	}
}
