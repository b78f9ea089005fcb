package main

import (
	"log/slog"
	"path/filepath"

	"sceneforge/internal/config"
	"sceneforge/internal/dispatch"
	"sceneforge/internal/engine"
	"sceneforge/internal/inbox"
	"sceneforge/internal/manifest"
	"sceneforge/internal/registry"
	"sceneforge/internal/worker"
)

// buildWorker wires the daemon's processing stack: inbox queue, registry
// store, history log, and the per-type executors behind the dispatcher.
func buildWorker(cfg *config.Config, logger *slog.Logger) (*worker.Worker, *registry.Store, error) {
	queue, err := inbox.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store, err := registry.Open(cfg)
	if err != nil {
		return nil, nil, err
	}

	var history *dispatch.History
	if cfg.History.Enabled {
		history = dispatch.NewHistory(cfg.HistoryLogPath(), logger)
	}
	dispatcher := dispatch.New(cfg, logger, history)

	executor, err := engine.NewCommandExecutor(cfg, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	for _, jobType := range []manifest.JobType{
		manifest.JobBakeNavmesh,
		manifest.JobRecord,
		manifest.JobRender,
		manifest.JobExport,
		manifest.JobGenLevelSequence,
	} {
		dispatcher.Register(jobType, executor)
	}

	contentDir := filepath.Join(filepath.Dir(cfg.Engine.ProjectPath), "Content")
	dispatcher.Register(manifest.JobScanSequences,
		dispatch.NewSequenceScanner(store, contentDir, logger))

	w, err := worker.New(cfg, queue, dispatcher, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return w, store, nil
}
