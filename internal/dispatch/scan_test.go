package dispatch

import (
	"context"
	"path/filepath"
	"testing"

	"sceneforge/internal/manifest"
	"sceneforge/internal/testsupport"
)

func TestSequenceScannerIndexesAssets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)

	contentDir := t.TempDir()
	for _, path := range []string{
		"Scenes/Harbor/Harbor_Main/LS_Flyover.uasset",
		"Scenes/Harbor/Harbor_Main/LS_Chase.uasset",
		"Scenes/Harbor/Harbor_Docks/LS_Intro.uasset",
		"Scenes/Harbor/Harbor_Main/BP_Spawner.uasset", // not a sequence
		"Scenes/Harbor/readme.txt",
	} {
		testsupport.WriteFile(t, filepath.Join(contentDir, filepath.FromSlash(path)), 16)
	}

	scanner := NewSequenceScanner(store, contentDir, nil)
	m, err := manifest.New(manifest.ScanSequencesPayload{
		ContentRoot: "/Game/Scenes/Harbor",
		SceneName:   "harbor",
	}, "")
	if err != nil {
		t.Fatalf("manifest.New: %v", err)
	}

	result, err := scanner.Execute(context.Background(), m, t.TempDir())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Detail != "indexed 3 sequences" {
		t.Fatalf("detail = %q", result.Detail)
	}

	sequences, err := store.ListSequences(context.Background(), "harbor", "", false)
	if err != nil {
		t.Fatalf("ListSequences: %v", err)
	}
	if len(sequences) != 3 {
		t.Fatalf("sequences = %d, want 3", len(sequences))
	}

	byName := make(map[string]string)
	for _, seq := range sequences {
		byName[seq.SequenceName] = seq.SequencePath
	}
	if got := byName["LS_Flyover"]; got != "/Game/Scenes/Harbor/Harbor_Main/LS_Flyover" {
		t.Fatalf("LS_Flyover path = %q", got)
	}
}

func TestSequenceScannerRescanIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)

	contentDir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(contentDir, "Scenes", "Harbor", "Harbor_Main", "LS_Flyover.uasset"), 16)

	scanner := NewSequenceScanner(store, contentDir, nil)
	m, err := manifest.New(manifest.ScanSequencesPayload{
		ContentRoot: "/Game/Scenes/Harbor",
		SceneName:   "harbor",
	}, "")
	if err != nil {
		t.Fatalf("manifest.New: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := scanner.Execute(context.Background(), m, t.TempDir()); err != nil {
			t.Fatalf("Execute %d: %v", i, err)
		}
	}

	sequences, err := store.ListSequences(context.Background(), "harbor", "", false)
	if err != nil {
		t.Fatalf("ListSequences: %v", err)
	}
	if len(sequences) != 1 {
		t.Fatalf("sequences = %d, want 1 after rescans", len(sequences))
	}
}

func TestSequenceScannerStripsUppercaseExtension(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)

	contentDir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(contentDir, "Scenes", "Harbor", "Harbor_Main", "LS_Night.UASSET"), 16)

	scanner := NewSequenceScanner(store, contentDir, nil)
	m, err := manifest.New(manifest.ScanSequencesPayload{
		ContentRoot: "/Game/Scenes/Harbor",
		SceneName:   "harbor",
	}, "")
	if err != nil {
		t.Fatalf("manifest.New: %v", err)
	}

	if _, err := scanner.Execute(context.Background(), m, t.TempDir()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	sequences, err := store.ListSequences(context.Background(), "harbor", "", false)
	if err != nil {
		t.Fatalf("ListSequences: %v", err)
	}
	if len(sequences) != 1 {
		t.Fatalf("sequences = %d, want 1", len(sequences))
	}
	if sequences[0].SequenceName != "LS_Night" {
		t.Fatalf("sequence name = %q, want extension stripped", sequences[0].SequenceName)
	}
	if sequences[0].SequencePath != "/Game/Scenes/Harbor/Harbor_Main/LS_Night" {
		t.Fatalf("sequence path = %q, want extension stripped", sequences[0].SequencePath)
	}
}

func TestSequenceScannerRejectsForeignPayload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	scanner := NewSequenceScanner(store, t.TempDir(), nil)

	if _, err := scanner.Execute(context.Background(), renderManifest(t), t.TempDir()); err == nil {
		t.Fatal("expected payload type rejection")
	}
}
