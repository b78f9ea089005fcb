package inbox

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sceneforge/internal/config"
	"sceneforge/internal/logging"
	"sceneforge/internal/manifest"
)

// Subdirectories of the queue root. Presence of a manifest file in inbox means
// pending; processing means claimed by exactly one worker; completed/failed
// archive terminal jobs; poison quarantines manifests that cannot be parsed.
const (
	dirInbox      = "inbox"
	dirProcessing = "processing"
	dirCompleted  = "completed"
	dirFailed     = "failed"
	dirPoison     = "poison"
)

// Queue is a directory acting as a single-writer-per-file, multiple-reader
// message bus. Submission is atomic file creation; a claim is a single atomic
// rename so two workers can never both succeed on the same item.
type Queue struct {
	root   string
	logger *slog.Logger
}

// Open prepares the queue directory tree rooted at cfg.Paths.QueueDir.
func Open(cfg *config.Config, logger *slog.Logger) (*Queue, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	root := cfg.Paths.QueueDir
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("queue directory is not configured")
	}
	for _, sub := range []string{dirInbox, dirProcessing, dirCompleted, dirFailed, dirPoison} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create queue directory %s: %w", sub, err)
		}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Queue{root: root, logger: logging.WithComponent(logger, "inbox")}, nil
}

// Root returns the queue root directory.
func (q *Queue) Root() string { return q.root }

// InboxDir returns the watch directory submitters write manifests into.
func (q *Queue) InboxDir() string { return filepath.Join(q.root, dirInbox) }

// Submit writes the manifest into the inbox under its job-id-derived filename
// and returns the manifest's path there. Submission never blocks on consumers.
func (q *Queue) Submit(m *manifest.Manifest) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	target := filepath.Join(q.InboxDir(), m.Filename())
	if _, err := os.Lstat(target); err == nil {
		return "", fmt.Errorf("job %s is already queued", m.JobID)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat queue item: %w", err)
	}
	if err := manifest.WriteFile(m, target); err != nil {
		return "", err
	}
	return target, nil
}

// Claimed is a queue item exclusively held by one worker. The manifest file
// lives in processing/ until Archive moves it to its terminal directory.
type Claimed struct {
	Manifest *manifest.Manifest
	Path     string

	queue *Queue
}

// Claim atomically takes one pending item, oldest first, or returns nil when
// the inbox is empty. Manifests that cannot be parsed are quarantined in
// poison/ rather than retried forever. A rename lost to a concurrent claimer
// is not an error; the scan simply moves on.
func (q *Queue) Claim() (*Claimed, error) {
	candidates, err := q.pendingFiles()
	if err != nil {
		return nil, err
	}

	for _, name := range candidates {
		src := filepath.Join(q.InboxDir(), name)
		dst := filepath.Join(q.root, dirProcessing, name)

		if err := os.Rename(src, dst); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("claim queue item %s: %w", name, err)
		}

		m, err := manifest.ReadFile(dst)
		if err != nil {
			q.quarantine(dst, err)
			continue
		}
		return &Claimed{Manifest: m, Path: dst, queue: q}, nil
	}
	return nil, nil
}

// Archive moves a claimed item to completed/ or failed/ after its terminal state.
func (c *Claimed) Archive(success bool) error {
	target := dirFailed
	if success {
		target = dirCompleted
	}
	dst := filepath.Join(c.queue.root, target, filepath.Base(c.Path))
	if err := os.Rename(c.Path, dst); err != nil {
		return fmt.Errorf("archive queue item: %w", err)
	}
	c.Path = dst
	return nil
}

// Recover returns items stranded in processing/ to the inbox. Run at daemon
// startup so jobs claimed by a crashed worker are not lost.
func (q *Queue) Recover() (int, error) {
	entries, err := os.ReadDir(filepath.Join(q.root, dirProcessing))
	if err != nil {
		return 0, fmt.Errorf("scan processing directory: %w", err)
	}
	recovered := 0
	for _, entry := range entries {
		if entry.IsDir() || !isManifestName(entry.Name()) {
			continue
		}
		src := filepath.Join(q.root, dirProcessing, entry.Name())
		dst := filepath.Join(q.InboxDir(), entry.Name())
		if err := os.Rename(src, dst); err != nil {
			return recovered, fmt.Errorf("requeue %s: %w", entry.Name(), err)
		}
		q.logger.Warn("requeued item stranded in processing", logging.String("item", entry.Name()))
		recovered++
	}
	return recovered, nil
}

// Counts summarizes queue occupancy per lifecycle directory.
type Counts struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Poison     int
}

// Counts reports how many items sit in each queue directory.
func (q *Queue) Counts() (Counts, error) {
	var counts Counts
	for _, probe := range []struct {
		sub string
		dst *int
	}{
		{dirInbox, &counts.Pending},
		{dirProcessing, &counts.Processing},
		{dirCompleted, &counts.Completed},
		{dirFailed, &counts.Failed},
		{dirPoison, &counts.Poison},
	} {
		entries, err := os.ReadDir(filepath.Join(q.root, probe.sub))
		if err != nil {
			return Counts{}, fmt.Errorf("scan %s: %w", probe.sub, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && isManifestName(entry.Name()) {
				*probe.dst++
			}
		}
	}
	return counts, nil
}

func (q *Queue) pendingFiles() ([]string, error) {
	dir := q.InboxDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan inbox: %w", err)
	}

	type candidate struct {
		name  string
		mtime int64
	}
	candidates := make([]candidate, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isManifestName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat inbox item %s: %w", entry.Name(), err)
		}
		candidates = append(candidates, candidate{name: entry.Name(), mtime: info.ModTime().UnixNano()})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].mtime != candidates[j].mtime {
			return candidates[i].mtime < candidates[j].mtime
		}
		return candidates[i].name < candidates[j].name
	})

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}
	return names, nil
}

func (q *Queue) quarantine(path string, cause error) {
	dst := filepath.Join(q.root, dirPoison, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		q.logger.Error("quarantine malformed manifest failed",
			logging.String("item", filepath.Base(path)),
			logging.Error(err))
		return
	}
	q.logger.Warn("quarantined malformed manifest",
		logging.String("item", filepath.Base(path)),
		logging.Error(cause))
}

func isManifestName(name string) bool {
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".")
}
