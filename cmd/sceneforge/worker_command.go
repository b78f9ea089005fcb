package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"sceneforge/internal/config"
	"sceneforge/internal/dispatch"
	"sceneforge/internal/engine"
	"sceneforge/internal/inbox"
	"sceneforge/internal/logging"
	"sceneforge/internal/manifest"
	"sceneforge/internal/registry"
	"sceneforge/internal/worker"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the queue worker",
	}

	workerCmd.AddCommand(newWorkerRunCommand(ctx))
	workerCmd.AddCommand(newWorkerOnceCommand(ctx))

	return workerCmd
}

func newWorkerRunCommand(ctx *commandContext) *cobra.Command {
	var jobTypeFlag string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the inbox and process jobs until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}
			only, err := parseJobTypeFlag(jobTypeFlag)
			if err != nil {
				return err
			}

			w, store, err := buildWorker(cfg, logger, only)
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := w.Start(runCtx); err != nil {
				return err
			}
			<-runCtx.Done()
			w.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&jobTypeFlag, "job-type", "", "Only handle this job type; other manifests are rejected")
	return cmd
}

func newWorkerOnceCommand(ctx *commandContext) *cobra.Command {
	var jobTypeFlag string
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Process a single job and exit",
		Long:  "Claims at most one pending job from the inbox, or processes the given manifest file directly when --manifest is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}
			only, err := parseJobTypeFlag(jobTypeFlag)
			if err != nil {
				return err
			}

			w, store, err := buildWorker(cfg, logger, only)
			if err != nil {
				return err
			}
			defer store.Close()

			if manifestPath != "" {
				m, err := manifest.ReadFile(manifestPath)
				if err != nil {
					return err
				}
				return w.ProcessManifest(cmd.Context(), m)
			}

			processed, err := w.ProcessOne(cmd.Context())
			if err != nil {
				return err
			}
			if !processed {
				fmt.Fprintln(cmd.OutOrStdout(), "Inbox is empty")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&jobTypeFlag, "job-type", "", "Only handle this job type; other manifests are rejected")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Process this manifest file instead of claiming from the inbox")
	return cmd
}

func parseJobTypeFlag(value string) (manifest.JobType, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", nil
	}
	jobType, ok := manifest.ParseJobType(trimmed)
	if !ok {
		return "", fmt.Errorf("unknown job type %q", value)
	}
	return jobType, nil
}

var engineJobTypes = []manifest.JobType{
	manifest.JobBakeNavmesh,
	manifest.JobRecord,
	manifest.JobRender,
	manifest.JobExport,
	manifest.JobGenLevelSequence,
}

// buildWorker assembles the queue, registry, dispatcher, and executors behind
// one worker instance. A non-empty only restricts the dispatcher to that job
// type; manifests of any other type are rejected with a terminal failed
// status. The caller owns closing the returned registry store.
func buildWorker(cfg *config.Config, logger *slog.Logger, only manifest.JobType) (*worker.Worker, *registry.Store, error) {
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

	wantEngine := only == ""
	for _, jobType := range engineJobTypes {
		if jobType == only {
			wantEngine = true
		}
	}
	if wantEngine {
		executor, err := engine.NewCommandExecutor(cfg, logger)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		for _, jobType := range engineJobTypes {
			if only != "" && jobType != only {
				continue
			}
			dispatcher.Register(jobType, executor)
		}
	}

	if only == "" || only == manifest.JobScanSequences {
		contentDir := filepath.Join(filepath.Dir(cfg.Engine.ProjectPath), "Content")
		dispatcher.Register(manifest.JobScanSequences,
			dispatch.NewSequenceScanner(store, contentDir, logger))
	}

	w, err := worker.New(cfg, queue, dispatcher, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return w, store, nil
}
