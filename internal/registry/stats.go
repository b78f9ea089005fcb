package registry

import (
	"context"
	"database/sql"
	"fmt"
)

// Statistics returns an aggregate snapshot of the registry. Reads reflect the
// last committed write; the local store has no eventual-consistency window.
func (s *Store) Statistics(ctx context.Context) (Statistics, error) {
	var stats Statistics

	row := s.db.QueryRowContext(ctx, `
        SELECT COUNT(*),
               COUNT(CASE WHEN downloaded_at IS NOT NULL THEN 1 END),
               COALESCE(SUM(file_count), 0),
               COALESCE(SUM(total_size_bytes), 0)
        FROM scenes`)
	if err := row.Scan(
		&stats.Scenes.Total,
		&stats.Scenes.Downloaded,
		&stats.Scenes.TotalFiles,
		&stats.Scenes.TotalBytes,
	); err != nil {
		return Statistics{}, fmt.Errorf("scene statistics: %w", err)
	}

	row = s.db.QueryRowContext(ctx, `
        SELECT COUNT(*),
               COUNT(CASE WHEN navmesh_baked = 1 THEN 1 END)
        FROM maps`)
	if err := row.Scan(&stats.Maps.Total, &stats.Maps.NavmeshBaked); err != nil {
		return Statistics{}, fmt.Errorf("map statistics: %w", err)
	}

	var durationSeconds sql.NullFloat64
	row = s.db.QueryRowContext(ctx, `
        SELECT COUNT(*),
               COUNT(CASE WHEN uploaded_at IS NOT NULL THEN 1 END),
               SUM(duration_seconds)
        FROM sequences`)
	if err := row.Scan(&stats.Sequences.Total, &stats.Sequences.Uploaded, &durationSeconds); err != nil {
		return Statistics{}, fmt.Errorf("sequence statistics: %w", err)
	}
	if durationSeconds.Valid {
		stats.Sequences.DurationHours = durationSeconds.Float64 / 3600
	}

	return stats, nil
}
