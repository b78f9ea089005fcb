package registry_test

import (
	"context"
	"testing"

	"sceneforge/internal/config"
	"sceneforge/internal/registry"
	"sceneforge/internal/testsupport"
)

func openTestStore(t *testing.T, opts ...testsupport.ConfigOption) (*registry.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store, err := registry.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, cfg
}

func strPtr(s string) *string { return &s }

func TestOpenIsIdempotent(t *testing.T) {
	store, cfg := openTestStore(t)
	store.Close()

	// Migrations must not reapply against an existing database.
	again, err := registry.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	if _, err := again.Statistics(context.Background()); err != nil {
		t.Fatalf("statistics after reopen: %v", err)
	}
}

func TestUpsertScenePreservesUnsuppliedFields(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertScene(ctx, registry.SceneUpsert{
		Name:      "harbor",
		BakedPath: "bos://world-data/baked/harbor/",
		LocalPath: strPtr("/data/scenes/harbor"),
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Second write supplies no local path; the stored one must survive.
	if err := store.UpsertScene(ctx, registry.SceneUpsert{
		Name:        "harbor",
		BakedPath:   "bos://world-data/baked/harbor/",
		ContentHash: strPtr("abc123"),
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	scene, err := store.GetScene(ctx, "harbor")
	if err != nil {
		t.Fatalf("GetScene: %v", err)
	}
	if scene == nil {
		t.Fatal("scene not found")
	}
	if scene.LocalPath != "/data/scenes/harbor" {
		t.Fatalf("local path = %q, want preserved value", scene.LocalPath)
	}
	if scene.ContentHash != "abc123" {
		t.Fatalf("content hash = %q", scene.ContentHash)
	}
}

func TestGetSceneReturnsNilWhenAbsent(t *testing.T) {
	store, _ := openTestStore(t)
	scene, err := store.GetScene(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetScene: %v", err)
	}
	if scene != nil {
		t.Fatalf("scene = %+v, want nil", scene)
	}
}

func TestSyncAddsAndRefreshesScenes(t *testing.T) {
	store, _ := openTestStore(t, testsupport.WithBakedPrefix("bos://world-data/baked/"))
	ctx := context.Background()

	// Pre-existing scene with local state that sync must not clobber.
	if err := store.UpsertScene(ctx, registry.SceneUpsert{
		Name:      "harbor",
		BakedPath: "bos://world-data/baked/harbor/",
		LocalPath: strPtr("/data/scenes/harbor"),
	}); err != nil {
		t.Fatalf("seed scene: %v", err)
	}
	if err := store.MarkSceneDownloaded(ctx, "harbor", "/data/scenes/harbor", "hash1"); err != nil {
		t.Fatalf("mark downloaded: %v", err)
	}

	result, err := store.Sync(ctx, []string{"harbor", "tundra", "  ", "bad/name", "."})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(result.Added) != 1 || result.Added[0] != "tundra" {
		t.Fatalf("added = %v, want [tundra]", result.Added)
	}
	if len(result.Updated) != 1 || result.Updated[0] != "harbor" {
		t.Fatalf("updated = %v, want [harbor]", result.Updated)
	}

	harbor, err := store.GetScene(ctx, "harbor")
	if err != nil {
		t.Fatalf("GetScene harbor: %v", err)
	}
	if !harbor.RemoteExists || harbor.RemoteVerified == nil {
		t.Fatalf("harbor remote state = %+v", harbor)
	}
	if harbor.LocalPath != "/data/scenes/harbor" || harbor.DownloadedAt == nil {
		t.Fatal("sync clobbered local download state")
	}

	tundra, err := store.GetScene(ctx, "tundra")
	if err != nil {
		t.Fatalf("GetScene tundra: %v", err)
	}
	if tundra.BakedPath != "bos://world-data/baked/tundra/" {
		t.Fatalf("tundra baked path = %q", tundra.BakedPath)
	}
	if tundra.Downloaded() {
		t.Fatal("new scene should not be marked downloaded")
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	first, err := store.Sync(ctx, []string{"harbor", "tundra"})
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if len(first.Added) != 2 {
		t.Fatalf("first added = %v", first.Added)
	}

	second, err := store.Sync(ctx, []string{"harbor", "tundra"})
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if len(second.Added) != 0 || len(second.Updated) != 2 {
		t.Fatalf("second sync = %+v, want pure refresh", second)
	}
}

func TestSceneDownloadedChecksHash(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertScene(ctx, registry.SceneUpsert{
		Name:      "harbor",
		BakedPath: "bos://world-data/baked/harbor/",
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.MarkSceneDownloaded(ctx, "harbor", "/data/scenes/harbor", "hash1"); err != nil {
		t.Fatalf("mark downloaded: %v", err)
	}

	ok, err := store.SceneDownloaded(ctx, "harbor", "hash1")
	if err != nil || !ok {
		t.Fatalf("SceneDownloaded(hash1) = %v, %v", ok, err)
	}
	ok, err = store.SceneDownloaded(ctx, "harbor", "other")
	if err != nil || ok {
		t.Fatalf("SceneDownloaded(other) = %v, %v", ok, err)
	}
}

func TestMarkSceneDownloadedRequiresRegisteredScene(t *testing.T) {
	store, _ := openTestStore(t)
	if err := store.MarkSceneDownloaded(context.Background(), "ghost", "/tmp/x", "h"); err == nil {
		t.Fatal("expected error for unregistered scene")
	}
}

func TestUpsertMapAndSequenceBeforeSceneIsRegistered(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	// The sequence scanner indexes a content tree before any remote sync has
	// registered its scene; child rows must not require a parent scene row.
	if err := store.UpsertMap(ctx, registry.MapUpsert{
		SceneName: "frontier",
		MapName:   "Frontier_Main",
		MapPath:   "/Game/Scenes/Frontier/Maps/Frontier_Main",
	}); err != nil {
		t.Fatalf("UpsertMap without scene row: %v", err)
	}
	if err := store.UpsertSequence(ctx, registry.SequenceUpsert{
		SceneName:    "frontier",
		MapName:      "Frontier_Main",
		SequenceName: "LS_Opening",
		SequencePath: "/Game/Scenes/Frontier/Sequences/LS_Opening",
	}); err != nil {
		t.Fatalf("UpsertSequence without scene row: %v", err)
	}

	sequences, err := store.ListSequences(ctx, "frontier", "", false)
	if err != nil {
		t.Fatalf("ListSequences: %v", err)
	}
	if len(sequences) != 1 {
		t.Fatalf("sequences = %d, want 1", len(sequences))
	}
}

func TestMapNavmeshLifecycle(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertMap(ctx, registry.MapUpsert{
		SceneName: "harbor",
		MapName:   "Harbor_Main",
		MapPath:   "/Game/Scenes/Harbor/Maps/Harbor_Main",
	}); err != nil {
		t.Fatalf("UpsertMap: %v", err)
	}

	baked, err := store.NavmeshBaked(ctx, "harbor", "Harbor_Main", "")
	if err != nil || baked {
		t.Fatalf("fresh map baked = %v, %v", baked, err)
	}

	if err := store.MarkNavmeshBaked(ctx, "harbor", "Harbor_Main", "geo1"); err != nil {
		t.Fatalf("MarkNavmeshBaked: %v", err)
	}

	baked, err = store.NavmeshBaked(ctx, "harbor", "Harbor_Main", "geo1")
	if err != nil || !baked {
		t.Fatalf("baked(geo1) = %v, %v", baked, err)
	}
	// A changed content hash invalidates the bake.
	baked, err = store.NavmeshBaked(ctx, "harbor", "Harbor_Main", "geo2")
	if err != nil || baked {
		t.Fatalf("baked(geo2) = %v, %v", baked, err)
	}
}

func TestSequenceUploadLifecycle(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	seed := int64(42)
	duration := 30.0
	if err := store.UpsertSequence(ctx, registry.SequenceUpsert{
		SceneName:       "harbor",
		MapName:         "Harbor_Main",
		SequenceName:    "LS_Flyover",
		SequencePath:    "/Game/Scenes/Harbor/Sequences/LS_Flyover",
		Seed:            &seed,
		DurationSeconds: &duration,
	}); err != nil {
		t.Fatalf("UpsertSequence: %v", err)
	}

	if err := store.MarkSequenceUploaded(ctx, "harbor", "Harbor_Main", "LS_Flyover",
		"bos://world-data/sequences/harbor/LS_Flyover/"); err != nil {
		t.Fatalf("MarkSequenceUploaded: %v", err)
	}

	uploaded, err := store.ListSequences(ctx, "harbor", "", true)
	if err != nil {
		t.Fatalf("ListSequences: %v", err)
	}
	if len(uploaded) != 1 || uploaded[0].UploadedAt == nil {
		t.Fatalf("uploaded = %+v", uploaded)
	}
	if uploaded[0].Seed == nil || *uploaded[0].Seed != 42 {
		t.Fatalf("seed = %v", uploaded[0].Seed)
	}
}

func TestStatisticsAggregates(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"harbor", "tundra"} {
		if err := store.UpsertScene(ctx, registry.SceneUpsert{
			Name:      name,
			BakedPath: "bos://world-data/baked/" + name + "/",
		}); err != nil {
			t.Fatalf("upsert %s: %v", name, err)
		}
	}
	if err := store.MarkSceneDownloaded(ctx, "harbor", "/data/scenes/harbor", "h"); err != nil {
		t.Fatalf("mark downloaded: %v", err)
	}
	if err := store.UpdateSceneStats(ctx, "harbor", 120, 4096); err != nil {
		t.Fatalf("UpdateSceneStats: %v", err)
	}

	if err := store.UpsertMap(ctx, registry.MapUpsert{
		SceneName: "harbor",
		MapName:   "Harbor_Main",
		MapPath:   "/Game/Scenes/Harbor/Maps/Harbor_Main",
	}); err != nil {
		t.Fatalf("UpsertMap: %v", err)
	}
	if err := store.MarkNavmeshBaked(ctx, "harbor", "Harbor_Main", "g"); err != nil {
		t.Fatalf("MarkNavmeshBaked: %v", err)
	}

	duration := 7200.0
	if err := store.UpsertSequence(ctx, registry.SequenceUpsert{
		SceneName:       "harbor",
		MapName:         "Harbor_Main",
		SequenceName:    "LS_Flyover",
		SequencePath:    "/Game/Scenes/Harbor/Sequences/LS_Flyover",
		DurationSeconds: &duration,
	}); err != nil {
		t.Fatalf("UpsertSequence: %v", err)
	}

	stats, err := store.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.Scenes.Total != 2 || stats.Scenes.Downloaded != 1 {
		t.Fatalf("scene stats = %+v", stats.Scenes)
	}
	if stats.Scenes.TotalFiles != 120 || stats.Scenes.TotalBytes != 4096 {
		t.Fatalf("scene totals = %+v", stats.Scenes)
	}
	if stats.Maps.Total != 1 || stats.Maps.NavmeshBaked != 1 {
		t.Fatalf("map stats = %+v", stats.Maps)
	}
	if stats.Sequences.Total != 1 || stats.Sequences.DurationHours != 2 {
		t.Fatalf("sequence stats = %+v", stats.Sequences)
	}
}

func TestDeleteSceneCascades(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertScene(ctx, registry.SceneUpsert{Name: "harbor", BakedPath: "bos://b/harbor/"}); err != nil {
		t.Fatalf("upsert scene: %v", err)
	}
	if err := store.UpsertMap(ctx, registry.MapUpsert{
		SceneName: "harbor",
		MapName:   "Harbor_Main",
		MapPath:   "/Game/Scenes/Harbor/Maps/Harbor_Main",
	}); err != nil {
		t.Fatalf("upsert map: %v", err)
	}
	if err := store.UpsertSequence(ctx, registry.SequenceUpsert{
		SceneName:    "harbor",
		MapName:      "Harbor_Main",
		SequenceName: "LS_A",
		SequencePath: "/Game/Scenes/Harbor/Sequences/LS_A",
	}); err != nil {
		t.Fatalf("upsert sequence: %v", err)
	}

	deleted, err := store.DeleteScene(ctx, "harbor")
	if err != nil || !deleted {
		t.Fatalf("DeleteScene = %v, %v", deleted, err)
	}

	stats, err := store.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.Scenes.Total != 0 || stats.Maps.Total != 0 || stats.Sequences.Total != 0 {
		t.Fatalf("stats after delete = %+v", stats)
	}

	deleted, err = store.DeleteScene(ctx, "harbor")
	if err != nil || deleted {
		t.Fatalf("second delete = %v, %v", deleted, err)
	}
}
