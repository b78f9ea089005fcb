package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const sequenceColumns = "scene_name, map_name, sequence_name, sequence_path, bos_path, seed, duration_seconds, created_at, uploaded_at, metadata"

// UpsertSequence inserts or updates a generated level-sequence record.
// created_at and uploaded_at survive upserts.
func (s *Store) UpsertSequence(ctx context.Context, seq SequenceUpsert) error {
	if err := requireName("scene name", seq.SceneName); err != nil {
		return err
	}
	if err := requireName("map name", seq.MapName); err != nil {
		return err
	}
	if err := requireName("sequence name", seq.SequenceName); err != nil {
		return err
	}
	if err := requireName("sequence path", seq.SequencePath); err != nil {
		return err
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sequences (
            scene_name, map_name, sequence_name, sequence_path,
            bos_path, seed, duration_seconds, created_at, metadata
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(scene_name, map_name, sequence_name) DO UPDATE SET
            sequence_path = excluded.sequence_path,
            bos_path = COALESCE(excluded.bos_path, sequences.bos_path),
            seed = COALESCE(excluded.seed, sequences.seed),
            duration_seconds = COALESCE(excluded.duration_seconds, sequences.duration_seconds),
            metadata = COALESCE(excluded.metadata, sequences.metadata)`,
		seq.SceneName,
		seq.MapName,
		seq.SequenceName,
		seq.SequencePath,
		nullableString(seq.RemotePath),
		nullableInt64(seq.Seed),
		nullableFloat64(seq.DurationSeconds),
		timestamp(time.Now()),
		nullableString(seq.Metadata),
	)
	if err != nil {
		return fmt.Errorf("upsert sequence: %w", err)
	}
	return nil
}

// MarkSequenceUploaded records the remote location of an uploaded sequence.
func (s *Store) MarkSequenceUploaded(ctx context.Context, sceneName, mapName, sequenceName, remotePath string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sequences SET bos_path = ?, uploaded_at = ?
         WHERE scene_name = ? AND map_name = ? AND sequence_name = ?`,
		remotePath, timestamp(time.Now()), sceneName, mapName, sequenceName,
	)
	if err != nil {
		return fmt.Errorf("mark sequence uploaded: %w", err)
	}
	return requireRow(res, "sequence", sceneName+"/"+mapName+"/"+sequenceName)
}

// ListSequences returns sequences newest first, optionally filtered by scene,
// map, and upload state.
func (s *Store) ListSequences(ctx context.Context, sceneName, mapName string, uploadedOnly bool) ([]*Sequence, error) {
	query := `SELECT ` + sequenceColumns + ` FROM sequences WHERE 1=1`
	var args []any
	if sceneName != "" {
		query += ` AND scene_name = ?`
		args = append(args, sceneName)
	}
	if mapName != "" {
		query += ` AND map_name = ?`
		args = append(args, mapName)
	}
	if uploadedOnly {
		query += ` AND uploaded_at IS NOT NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()

	var sequences []*Sequence
	for rows.Next() {
		var (
			seq        Sequence
			remotePath sql.NullString
			seed       sql.NullInt64
			duration   sql.NullFloat64
			createdRaw sql.NullString
			uploadRaw  sql.NullString
			metadata   sql.NullString
		)
		if err := rows.Scan(
			&seq.SceneName,
			&seq.MapName,
			&seq.SequenceName,
			&seq.SequencePath,
			&remotePath,
			&seed,
			&duration,
			&createdRaw,
			&uploadRaw,
			&metadata,
		); err != nil {
			return nil, err
		}
		seq.RemotePath = remotePath.String
		if seed.Valid {
			v := seed.Int64
			seq.Seed = &v
		}
		if duration.Valid {
			v := duration.Float64
			seq.DurationSeconds = &v
		}
		if created, err := parseTimeString(createdRaw.String); err == nil {
			seq.CreatedAt = created
		}
		seq.UploadedAt = timePtr(uploadRaw)
		seq.Metadata = metadata.String
		sequences = append(sequences, &seq)
	}
	return sequences, rows.Err()
}
