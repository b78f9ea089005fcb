package registry

import "time"

// Scene tracks one content scene's remote/local existence and download state.
type Scene struct {
	Name            string
	BakedPath       string
	LocalPath       string
	ContentHash     string
	FileCount       int
	TotalSizeBytes  int64
	RemoteExists    bool
	RemoteVerified  *time.Time
	DownloadedAt    *time.Time
	LastUpdated     time.Time
	Metadata        string
}

// Downloaded reports whether the scene has a local copy on record.
func (s Scene) Downloaded() bool {
	return s.DownloadedAt != nil
}

// Map tracks one map inside a scene and its navmesh bake state.
type Map struct {
	SceneName      string
	MapName        string
	MapPath        string
	NavmeshBaked   bool
	NavmeshHash    string
	NavmeshBakedAt *time.Time
	Metadata       string
}

// Sequence tracks one generated level sequence and its upload state.
type Sequence struct {
	SceneName       string
	MapName         string
	SequenceName    string
	SequencePath    string
	RemotePath      string
	Seed            *int64
	DurationSeconds *float64
	CreatedAt       time.Time
	UploadedAt      *time.Time
	Metadata        string
}

// SceneUpsert carries the fields a scene write supplies. Nil optional fields
// leave the stored value untouched on update; BakedPath is always required
// because a scene's identity is anchored to its remote baked location.
type SceneUpsert struct {
	Name        string
	BakedPath   string
	LocalPath   *string
	ContentHash *string
	Exists      *bool
	Metadata    *string
}

// MapUpsert carries the fields a map write supplies. Navmesh state is managed
// through MarkNavmeshBaked and is never clobbered by an upsert.
type MapUpsert struct {
	SceneName string
	MapName   string
	MapPath   string
	Metadata  *string
}

// SequenceUpsert carries the fields a sequence write supplies.
type SequenceUpsert struct {
	SceneName       string
	MapName         string
	SequenceName    string
	SequencePath    string
	Seed            *int64
	DurationSeconds *float64
	RemotePath      *string
	Metadata        *string
}

// SyncResult reports which scene names a remote reconciliation inserted and
// which it refreshed.
type SyncResult struct {
	Added   []string
	Updated []string
}

// SceneStats aggregates the scenes table.
type SceneStats struct {
	Total      int
	Downloaded int
	TotalFiles int64
	TotalBytes int64
}

// MapStats aggregates the maps table.
type MapStats struct {
	Total        int
	NavmeshBaked int
}

// SequenceStats aggregates the sequences table.
type SequenceStats struct {
	Total         int
	Uploaded      int
	DurationHours float64
}

// Statistics is a consistent aggregate snapshot of the registry.
type Statistics struct {
	Scenes    SceneStats
	Maps      MapStats
	Sequences SequenceStats
}
