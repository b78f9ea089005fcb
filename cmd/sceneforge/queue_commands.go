package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sceneforge/internal/fileutil"
	"sceneforge/internal/inbox"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Job queue inspection and maintenance",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueRecoverCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts per queue stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			queue, err := inbox.Open(cfg, ctx.cliLogger())
			if err != nil {
				return err
			}
			counts, err := queue.Counts()
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Pending", strconv.Itoa(counts.Pending)},
				{"Processing", strconv.Itoa(counts.Processing)},
				{"Completed", strconv.Itoa(counts.Completed)},
				{"Failed", strconv.Itoa(counts.Failed)},
				{"Poison", strconv.Itoa(counts.Poison)},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Stage", "Jobs"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			fmt.Fprintf(out, "Queue root: %s\n", queue.Root())
			if free, err := fileutil.FreeBytes(queue.Root()); err == nil {
				fmt.Fprintf(out, "Free space: %s\n", humanize.Bytes(free))
			}
			return nil
		},
	}
}

func newQueueRecoverCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Requeue jobs stranded in the processing stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			queue, err := inbox.Open(cfg, ctx.cliLogger())
			if err != nil {
				return err
			}
			recovered, err := queue.Recover()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d job(s)\n", recovered)
			return nil
		},
	}
}
