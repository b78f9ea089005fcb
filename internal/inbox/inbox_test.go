package inbox

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sceneforge/internal/manifest"
	"sceneforge/internal/testsupport"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	q, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return q
}

func newTestManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.New(manifest.ScanSequencesPayload{
		ContentRoot: "/Game/Scenes/Harbor",
	}, "test job")
	if err != nil {
		t.Fatalf("manifest.New: %v", err)
	}
	return m
}

func TestSubmitClaimArchiveLifecycle(t *testing.T) {
	q := newTestQueue(t)
	m := newTestManifest(t)

	path, err := q.Submit(m)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if path != filepath.Join(q.InboxDir(), m.Filename()) {
		t.Fatalf("submit returned %q, want the inbox path", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("submitted manifest missing: %v", err)
	}

	claimed, err := q.Claim()
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed == nil {
		t.Fatal("expected a claimed item")
	}
	if claimed.Manifest.JobID != m.JobID {
		t.Fatalf("claimed %q, want %q", claimed.Manifest.JobID, m.JobID)
	}
	if filepath.Dir(claimed.Path) != filepath.Join(q.Root(), "processing") {
		t.Fatalf("claimed path %q not in processing", claimed.Path)
	}

	// Inbox is now empty.
	again, err := q.Claim()
	if err != nil {
		t.Fatalf("second Claim: %v", err)
	}
	if again != nil {
		t.Fatalf("second claim got %q, want nothing", again.Manifest.JobID)
	}

	if err := claimed.Archive(true); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	counts, err := q.Counts()
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.Completed != 1 || counts.Pending != 0 || counts.Processing != 0 {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestSubmitRejectsDuplicateJob(t *testing.T) {
	q := newTestQueue(t)
	m := newTestManifest(t)

	if _, err := q.Submit(m); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := q.Submit(m); err == nil {
		t.Fatal("expected duplicate submission to fail")
	}
}

func TestClaimOrderIsOldestFirst(t *testing.T) {
	q := newTestQueue(t)

	first := newTestManifest(t)
	second := newTestManifest(t)
	for _, m := range []*manifest.Manifest{first, second} {
		if _, err := q.Submit(m); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	// Make ordering unambiguous regardless of filesystem timestamp resolution.
	old := time.Now().Add(-time.Minute)
	if err := os.Chtimes(filepath.Join(q.InboxDir(), first.Filename()), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	claimed, err := q.Claim()
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed == nil || claimed.Manifest.JobID != first.JobID {
		t.Fatalf("claimed %+v, want oldest job %q", claimed, first.JobID)
	}
}

func TestConcurrentClaimersGetAtMostOneEach(t *testing.T) {
	q := newTestQueue(t)
	if _, err := q.Submit(newTestManifest(t)); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	const claimers = 8
	var wg sync.WaitGroup
	results := make([]*Claimed, claimers)
	errs := make([]error, claimers)

	wg.Add(claimers)
	for i := 0; i < claimers; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = q.Claim()
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < claimers; i++ {
		if errs[i] != nil {
			t.Fatalf("claimer %d: %v", i, errs[i])
		}
		if results[i] != nil {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

func TestMalformedManifestIsQuarantined(t *testing.T) {
	q := newTestQueue(t)
	bad := filepath.Join(q.InboxDir(), "job-bad-1.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write malformed manifest: %v", err)
	}

	claimed, err := q.Claim()
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed != nil {
		t.Fatalf("claimed %q from a malformed manifest", claimed.Manifest.JobID)
	}

	counts, err := q.Counts()
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.Poison != 1 || counts.Pending != 0 {
		t.Fatalf("counts = %+v, want one poison item", counts)
	}
}

func TestRecoverRequeuesStrandedItems(t *testing.T) {
	q := newTestQueue(t)
	m := newTestManifest(t)
	if _, err := q.Submit(m); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := q.Claim(); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	// Simulate a worker crash: the item stays in processing/.
	recovered, err := q.Recover()
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("recovered = %d, want 1", recovered)
	}

	claimed, err := q.Claim()
	if err != nil {
		t.Fatalf("Claim after recover: %v", err)
	}
	if claimed == nil || claimed.Manifest.JobID != m.JobID {
		t.Fatal("recovered item should be claimable again")
	}
}

func TestHiddenAndForeignFilesAreIgnored(t *testing.T) {
	q := newTestQueue(t)
	for _, name := range []string{".partial.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(q.InboxDir(), name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	claimed, err := q.Claim()
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed != nil {
		t.Fatal("claimed a non-manifest file")
	}
	counts, err := q.Counts()
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.Pending != 0 {
		t.Fatalf("pending = %d, want 0", counts.Pending)
	}
}
