package registry

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Sync reconciles the registry against a remote listing of top-level scene
// names. Unknown names are inserted as remotely existing scenes with their
// derived baked path; known names refresh remote existence, baked path, and
// verification time without touching local_path, content_hash, or
// downloaded_at. Malformed listing entries are skipped. The whole
// reconciliation commits atomically.
func (s *Store) Sync(ctx context.Context, names []string) (SyncResult, error) {
	var result SyncResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin sync tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := timestamp(time.Now())

	for _, raw := range names {
		name := strings.TrimSpace(strings.Trim(raw, "/"))
		if name == "" || name == "." || strings.ContainsAny(name, "/\\") {
			continue
		}

		var exists int
		row := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM scenes WHERE scene_name = ?`, name)
		if err := row.Scan(&exists); err != nil {
			return SyncResult{}, fmt.Errorf("probe scene %q: %w", name, err)
		}

		bakedPath := s.derivedBakedPath(name)
		if exists == 0 {
			_, err := tx.ExecContext(
				ctx,
				`INSERT INTO scenes (scene_name, bos_baked_path, bos_exists, bos_last_verified, last_updated)
                VALUES (?, ?, 1, ?, ?)`,
				name, bakedPath, now, now,
			)
			if err != nil {
				return SyncResult{}, fmt.Errorf("insert scene %q: %w", name, err)
			}
			result.Added = append(result.Added, name)
			continue
		}

		_, err := tx.ExecContext(
			ctx,
			`UPDATE scenes
             SET bos_exists = 1, bos_baked_path = ?, bos_last_verified = ?, last_updated = ?
             WHERE scene_name = ?`,
			bakedPath, now, now, name,
		)
		if err != nil {
			return SyncResult{}, fmt.Errorf("refresh scene %q: %w", name, err)
		}
		result.Updated = append(result.Updated, name)
	}

	if err := tx.Commit(); err != nil {
		return SyncResult{}, fmt.Errorf("commit sync: %w", err)
	}
	return result, nil
}

func (s *Store) derivedBakedPath(name string) string {
	prefix := s.bakedPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + name + "/"
}
