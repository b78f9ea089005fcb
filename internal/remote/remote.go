package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Lister enumerates the top-level names under one logical directory level of
// the remote baked-scene store. Names are opaque strings to callers; the
// registry treats each one as a scene identity.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// DirLister lists a locally mounted mirror of the remote store. Deployments
// that mount the object store (or rsync a listing snapshot) point mirror_dir
// at it; entries that are not directories are skipped.
type DirLister struct {
	Dir string
}

// List returns the scene names found in the mirror directory.
func (l DirLister) List(ctx context.Context) ([]string, error) {
	if strings.TrimSpace(l.Dir) == "" {
		return nil, errors.New("remote mirror directory is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("list remote mirror: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := strings.TrimSpace(entry.Name())
		if name == "" || strings.HasPrefix(name, ".") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
