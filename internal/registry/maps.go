package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const mapColumns = "scene_name, map_name, map_path, navmesh_baked, navmesh_hash, navmesh_baked_at, metadata"

// UpsertMap inserts or updates a map record under a scene. Navmesh bake state
// is preserved across upserts.
func (s *Store) UpsertMap(ctx context.Context, m MapUpsert) error {
	if err := requireName("scene name", m.SceneName); err != nil {
		return err
	}
	if err := requireName("map name", m.MapName); err != nil {
		return err
	}
	if err := requireName("map path", m.MapPath); err != nil {
		return err
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO maps (scene_name, map_name, map_path, metadata)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(scene_name, map_name) DO UPDATE SET
            map_path = excluded.map_path,
            metadata = COALESCE(excluded.metadata, maps.metadata)`,
		m.SceneName,
		m.MapName,
		m.MapPath,
		nullableString(m.Metadata),
	)
	if err != nil {
		return fmt.Errorf("upsert map: %w", err)
	}
	return nil
}

// MarkNavmeshBaked records a completed navmesh bake for a map.
func (s *Store) MarkNavmeshBaked(ctx context.Context, sceneName, mapName, navmeshHash string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE maps
         SET navmesh_baked = 1, navmesh_hash = ?, navmesh_baked_at = ?
         WHERE scene_name = ? AND map_name = ?`,
		navmeshHash, timestamp(time.Now()), sceneName, mapName,
	)
	if err != nil {
		return fmt.Errorf("mark navmesh baked: %w", err)
	}
	return requireRow(res, "map", sceneName+"/"+mapName)
}

// NavmeshBaked reports whether a map's navmesh is baked, optionally verifying
// the recorded hash.
func (s *Store) NavmeshBaked(ctx context.Context, sceneName, mapName, expectedHash string) (bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT navmesh_baked, navmesh_hash FROM maps WHERE scene_name = ? AND map_name = ?`,
		sceneName, mapName,
	)
	var baked int
	var hash sql.NullString
	if err := row.Scan(&baked, &hash); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("query navmesh state: %w", err)
	}
	if baked == 0 {
		return false, nil
	}
	if expectedHash != "" {
		return hash.String == expectedHash, nil
	}
	return true, nil
}

// ListMaps returns maps, optionally filtered by scene and bake state.
func (s *Store) ListMaps(ctx context.Context, sceneName string, navmeshBaked *bool) ([]*Map, error) {
	query := `SELECT ` + mapColumns + ` FROM maps WHERE 1=1`
	var args []any
	if sceneName != "" {
		query += ` AND scene_name = ?`
		args = append(args, sceneName)
	}
	if navmeshBaked != nil {
		query += ` AND navmesh_baked = ?`
		args = append(args, boolToInt(*navmeshBaked))
	}
	query += ` ORDER BY scene_name, map_name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	defer rows.Close()

	var maps []*Map
	for rows.Next() {
		var (
			m        Map
			baked    int
			hash     sql.NullString
			bakedAt  sql.NullString
			metadata sql.NullString
		)
		if err := rows.Scan(&m.SceneName, &m.MapName, &m.MapPath, &baked, &hash, &bakedAt, &metadata); err != nil {
			return nil, err
		}
		m.NavmeshBaked = baked != 0
		m.NavmeshHash = hash.String
		m.NavmeshBakedAt = timePtr(bakedAt)
		m.Metadata = metadata.String
		maps = append(maps, &m)
	}
	return maps, rows.Err()
}
