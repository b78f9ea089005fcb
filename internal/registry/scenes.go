package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const sceneColumns = "scene_name, bos_baked_path, local_path, content_hash, file_count, total_size_bytes, bos_exists, bos_last_verified, downloaded_at, last_updated, metadata"

// UpsertScene inserts or updates a scene record. Fields left nil on the upsert
// keep their stored values; last_updated always refreshes. The write is
// all-or-nothing for the entry.
func (s *Store) UpsertScene(ctx context.Context, scene SceneUpsert) error {
	if err := requireName("scene name", scene.Name); err != nil {
		return err
	}
	if err := requireName("baked path", scene.BakedPath); err != nil {
		return err
	}

	now := timestamp(time.Now())
	var verified any
	if scene.Exists == nil || *scene.Exists {
		verified = now
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO scenes (
            scene_name, bos_baked_path, local_path, content_hash,
            bos_exists, bos_last_verified, last_updated, metadata
        ) VALUES (?, ?, ?, ?, COALESCE(?, 1), ?, ?, ?)
        ON CONFLICT(scene_name) DO UPDATE SET
            bos_baked_path = excluded.bos_baked_path,
            local_path = COALESCE(excluded.local_path, scenes.local_path),
            content_hash = COALESCE(excluded.content_hash, scenes.content_hash),
            bos_exists = COALESCE(?, scenes.bos_exists),
            bos_last_verified = COALESCE(excluded.bos_last_verified, scenes.bos_last_verified),
            metadata = COALESCE(excluded.metadata, scenes.metadata),
            last_updated = excluded.last_updated`,
		scene.Name,
		scene.BakedPath,
		nullableString(scene.LocalPath),
		nullableString(scene.ContentHash),
		nullableBool(scene.Exists),
		verified,
		now,
		nullableString(scene.Metadata),
		nullableBool(scene.Exists),
	)
	if err != nil {
		return fmt.Errorf("upsert scene: %w", err)
	}
	return nil
}

// GetScene fetches a scene by name, or nil when absent.
func (s *Store) GetScene(ctx context.Context, name string) (*Scene, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sceneColumns+` FROM scenes WHERE scene_name = ?`, name)
	scene, err := scanScene(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scene: %w", err)
	}
	return scene, nil
}

// ListScenes returns scenes ordered by name, optionally restricted to those
// with a recorded download.
func (s *Store) ListScenes(ctx context.Context, downloadedOnly bool) ([]*Scene, error) {
	query := `SELECT ` + sceneColumns + ` FROM scenes`
	if downloadedOnly {
		query += ` WHERE downloaded_at IS NOT NULL`
	}
	query += ` ORDER BY scene_name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	var scenes []*Scene
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, scene)
	}
	return scenes, rows.Err()
}

// ListMissingScenes returns scenes whose remote copy was last seen absent.
func (s *Store) ListMissingScenes(ctx context.Context) ([]*Scene, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sceneColumns+` FROM scenes WHERE bos_exists = 0 ORDER BY scene_name`)
	if err != nil {
		return nil, fmt.Errorf("list missing scenes: %w", err)
	}
	defer rows.Close()

	var scenes []*Scene
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, scene)
	}
	return scenes, rows.Err()
}

// MarkSceneDownloaded records a completed local download for the scene.
func (s *Store) MarkSceneDownloaded(ctx context.Context, name, localPath, contentHash string) error {
	now := timestamp(time.Now())
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE scenes
         SET local_path = ?, content_hash = ?, downloaded_at = ?, last_updated = ?
         WHERE scene_name = ?`,
		localPath, contentHash, now, now, name,
	)
	if err != nil {
		return fmt.Errorf("mark scene downloaded: %w", err)
	}
	return requireRow(res, "scene", name)
}

// SceneDownloaded reports whether a scene has a local copy, optionally
// verifying the recorded content hash.
func (s *Store) SceneDownloaded(ctx context.Context, name, expectedHash string) (bool, error) {
	scene, err := s.GetScene(ctx, name)
	if err != nil {
		return false, err
	}
	if scene == nil || scene.DownloadedAt == nil {
		return false, nil
	}
	if expectedHash != "" {
		return scene.ContentHash == expectedHash, nil
	}
	return true, nil
}

// UpdateSceneStats refreshes a scene's file count and total size.
func (s *Store) UpdateSceneStats(ctx context.Context, name string, fileCount int, totalSizeBytes int64) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE scenes SET file_count = ?, total_size_bytes = ?, last_updated = ? WHERE scene_name = ?`,
		fileCount, totalSizeBytes, timestamp(time.Now()), name,
	)
	if err != nil {
		return fmt.Errorf("update scene stats: %w", err)
	}
	return requireRow(res, "scene", name)
}

// MarkSceneRemote records the scene's remote existence as of now.
func (s *Store) MarkSceneRemote(ctx context.Context, name string, exists bool) error {
	now := timestamp(time.Now())
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE scenes SET bos_exists = ?, bos_last_verified = ?, last_updated = ? WHERE scene_name = ?`,
		boolToInt(exists), now, now, name,
	)
	if err != nil {
		return fmt.Errorf("mark scene remote: %w", err)
	}
	return requireRow(res, "scene", name)
}

// DeleteScene removes a scene with its maps and sequences. Administrative
// only; workflow code never deletes entries.
func (s *Store) DeleteScene(ctx context.Context, name string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sequences WHERE scene_name = ?`, name); err != nil {
		return false, fmt.Errorf("delete sequences: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM maps WHERE scene_name = ?`, name); err != nil {
		return false, fmt.Errorf("delete maps: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM scenes WHERE scene_name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete scene: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}
	return affected > 0, nil
}

func scanScene(scanner interface{ Scan(dest ...any) error }) (*Scene, error) {
	var (
		name        string
		bakedPath   string
		localPath   sql.NullString
		contentHash sql.NullString
		fileCount   int
		totalBytes  int64
		remoteRaw   sql.NullInt64
		verifiedRaw sql.NullString
		downloadRaw sql.NullString
		updatedRaw  sql.NullString
		metadata    sql.NullString
	)

	if err := scanner.Scan(
		&name,
		&bakedPath,
		&localPath,
		&contentHash,
		&fileCount,
		&totalBytes,
		&remoteRaw,
		&verifiedRaw,
		&downloadRaw,
		&updatedRaw,
		&metadata,
	); err != nil {
		return nil, err
	}

	scene := &Scene{
		Name:           name,
		BakedPath:      bakedPath,
		LocalPath:      localPath.String,
		ContentHash:    contentHash.String,
		FileCount:      fileCount,
		TotalSizeBytes: totalBytes,
		RemoteExists:   remoteRaw.Valid && remoteRaw.Int64 != 0,
		RemoteVerified: timePtr(verifiedRaw),
		DownloadedAt:   timePtr(downloadRaw),
		Metadata:       metadata.String,
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		scene.LastUpdated = updated
	}
	return scene, nil
}

func requireRow(res sql.Result, kind, name string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %q is not registered", kind, name)
	}
	return nil
}
