package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"sceneforge/internal/fileutil"
	"sceneforge/internal/status"
)

func newWaitCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration
	var timeout time.Duration
	var framesDir string

	cmd := &cobra.Command{
		Use:   "wait <job-id>",
		Short: "Block until a job reaches a terminal status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return waitForJob(cmd, ctx, args[0], interval, timeout, framesDir)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Status poll interval (default from config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this duration (default from config)")
	cmd.Flags().StringVar(&framesDir, "frames-dir", "", "Watch this directory's file count as a liveness signal")
	return cmd
}

// waitForJob polls the job's status file until it goes terminal. A zero
// interval or timeout falls back to the configured workflow values.
func waitForJob(cmd *cobra.Command, ctx *commandContext, jobID string, interval, timeout time.Duration, framesDir string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if interval <= 0 {
		interval = cfg.WaitPollInterval()
	}
	if timeout <= 0 {
		timeout = cfg.WaitTimeout()
	}

	waiter := &status.Waiter{
		Interval: interval,
		Timeout:  timeout,
		Logger:   ctx.cliLogger(),
	}
	if framesDir != "" {
		waiter.FrameCount = func() int {
			return fileutil.CountFiles(framesDir)
		}
	}

	statusPath := status.PathFor(filepath.Join(cfg.Paths.OutputDir, jobID))
	record, err := waiter.Wait(cmd.Context(), statusPath)

	out := cmd.OutOrStdout()
	if record != nil {
		fmt.Fprintf(out, "Job %s: %s\n", jobID, record.State)
		if record.Message != "" {
			fmt.Fprintf(out, "  message: %s\n", record.Message)
		}
		if record.Reason != "" {
			fmt.Fprintf(out, "  reason:  %s\n", record.Reason)
		}
		if record.Progress != nil && record.Progress.TotalFrames > 0 {
			fmt.Fprintf(out, "  frames:  %d/%d\n",
				record.Progress.CurrentFrame, record.Progress.TotalFrames)
		}
	}
	return err
}
