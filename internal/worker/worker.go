package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"sceneforge/internal/config"
	"sceneforge/internal/dispatch"
	"sceneforge/internal/inbox"
	"sceneforge/internal/logging"
	"sceneforge/internal/manifest"
)

// Worker drains the job inbox and hands claimed manifests to the dispatcher.
// A file lock enforces one worker per queue directory; stranded in-flight
// jobs from a previous run are requeued on start.
type Worker struct {
	cfg        *config.Config
	logger     *slog.Logger
	queue      *inbox.Queue
	dispatcher *dispatch.Dispatcher

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a worker with initialized dependencies.
func New(cfg *config.Config, queue *inbox.Queue, dispatcher *dispatch.Dispatcher, logger *slog.Logger) (*Worker, error) {
	if cfg == nil || queue == nil || dispatcher == nil {
		return nil, errors.New("worker requires config, queue, and dispatcher")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "sceneforged.lock")
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	return &Worker{
		cfg:        cfg,
		logger:     logging.WithComponent(logger, "worker"),
		queue:      queue,
		dispatcher: dispatcher,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// LockPath returns the single-instance lock file location.
func (w *Worker) LockPath() string { return w.lockPath }

// Running reports whether the poll loop is active.
func (w *Worker) Running() bool { return w.running.Load() }

// Start acquires the instance lock, requeues stranded jobs, and launches the
// poll loop. It returns immediately; use Stop for a drained shutdown.
func (w *Worker) Start(ctx context.Context) error {
	if w.running.Load() {
		return errors.New("worker already running")
	}

	ok, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire worker lock: %w", err)
	}
	if !ok {
		return errors.New("another worker already holds the queue lock")
	}

	recovered, err := w.queue.Recover()
	if err != nil {
		_ = w.lock.Unlock()
		return fmt.Errorf("recover in-flight jobs: %w", err)
	}
	if recovered > 0 {
		w.logger.Info("requeued stranded jobs", logging.Int("count", recovered))
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running.Store(true)
	w.wg.Add(1)
	go w.run(runCtx)

	w.logger.Info("worker started",
		logging.String("queue", w.queue.Root()),
		logging.String("lock", w.lockPath))
	return nil
}

// Stop cancels the poll loop, waits for the in-flight job to finish, and
// releases the instance lock.
func (w *Worker) Stop() {
	if !w.running.Load() {
		return
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.wg.Wait()
	if err := w.lock.Unlock(); err != nil {
		w.logger.Warn("release worker lock failed", logging.Error(err))
	}
	w.running.Store(false)
	w.logger.Info("worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	interval := w.cfg.QueuePollInterval()
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		w.drain(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// drain claims and processes jobs until the inbox is empty or the context is
// canceled. Jobs run one at a time; the queue order is oldest first.
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		claimed, err := w.queue.Claim()
		if err != nil {
			w.logger.Error("claim job failed", logging.Error(err))
			return
		}
		if claimed == nil {
			return
		}
		w.process(ctx, claimed)
	}
}

// ProcessOne claims at most one pending job and runs it to its terminal
// state. It reports whether a job was processed.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimed, err := w.queue.Claim()
	if err != nil {
		return false, err
	}
	if claimed == nil {
		return false, nil
	}
	w.process(ctx, claimed)
	return true, nil
}

// ProcessManifest dispatches a manifest handed to the worker directly,
// bypassing the queue. The terminal status still lands under the job's output
// directory, so a manifest the worker is not specialized for leaves a failed
// record behind and the error carries the rejection.
func (w *Worker) ProcessManifest(ctx context.Context, m *manifest.Manifest) error {
	_, err := w.dispatcher.Dispatch(ctx, m)
	return err
}

func (w *Worker) process(ctx context.Context, claimed *inbox.Claimed) {
	m := claimed.Manifest
	_, err := w.dispatcher.Dispatch(ctx, m)
	if err != nil {
		w.logger.Error("job dispatch failed",
			logging.String(logging.FieldJobID, m.JobID),
			logging.String(logging.FieldJobType, string(m.JobType)),
			logging.Error(err))
	}
	if archiveErr := claimed.Archive(err == nil); archiveErr != nil {
		w.logger.Error("archive job failed",
			logging.String(logging.FieldJobID, m.JobID),
			logging.Error(archiveErr))
	}
}
