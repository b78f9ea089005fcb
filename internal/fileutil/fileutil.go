package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DirectoryHash fingerprints a directory's content for change detection. The
// hash covers each file's relative path, size, and modification time, sorted,
// so it is stable across scans without reading file bodies. When extensions is
// non-empty only matching files contribute.
func DirectoryHash(root string, extensions []string) (string, error) {
	type entry struct {
		rel   string
		size  int64
		mtime int64
	}

	extSet := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = struct{}{}
	}

	var entries []entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if len(extSet) > 0 {
			if _, ok := extSet[strings.ToLower(filepath.Ext(path))]; !ok {
				return nil
			}
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entries = append(entries, entry{rel: rel, size: info.Size(), mtime: info.ModTime().Unix()})
		return nil
	})
	if err != nil {
		return "", err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })

	hasher := sha256.New()
	for _, e := range entries {
		hasher.Write([]byte(e.rel))
		hasher.Write([]byte(strconv.FormatInt(e.size, 10)))
		hasher.Write([]byte(strconv.FormatInt(e.mtime, 10)))
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// CountFiles returns how many files directly inside dir carry one of the
// given extensions. A missing directory counts as zero; waiter liveness
// probes call this before the job has produced any output.
func CountFiles(dir string, extensions ...string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if len(extensions) == 0 {
			count++
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, want := range extensions {
			if ext == strings.ToLower(want) {
				count++
				break
			}
		}
	}
	return count
}

// DirStats walks root and returns its file count and total size in bytes.
func DirStats(root string) (int, int64, error) {
	var files int
	var bytes int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files++
		bytes += info.Size()
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return files, bytes, nil
}
