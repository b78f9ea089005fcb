package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sceneforge/internal/inbox"
	"sceneforge/internal/manifest"
)

type submitOptions struct {
	description string
	wait        bool
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var jobFile string

	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a job manifest to the inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobFile == "" {
				return cmd.Help()
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			m, err := manifest.ReadFile(jobFile)
			if err != nil {
				return err
			}
			queue, err := inbox.Open(cfg, ctx.cliLogger())
			if err != nil {
				return err
			}
			path, err := queue.Submit(m)
			if err != nil {
				return err
			}
			printSubmitted(cmd, m, path)
			return nil
		},
	}
	submitCmd.Flags().StringVar(&jobFile, "job-file", "", "Submit a prebuilt manifest file as-is")

	submitCmd.AddCommand(newSubmitBakeNavmeshCommand(ctx))
	submitCmd.AddCommand(newSubmitRecordCommand(ctx))
	submitCmd.AddCommand(newSubmitRenderCommand(ctx))
	submitCmd.AddCommand(newSubmitExportCommand(ctx))
	submitCmd.AddCommand(newSubmitGenSequenceCommand(ctx))
	submitCmd.AddCommand(newSubmitScanSequencesCommand(ctx))

	return submitCmd
}

func addSubmitFlags(cmd *cobra.Command, opts *submitOptions) {
	cmd.Flags().StringVar(&opts.description, "description", "", "Free-form manifest description")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "Block until the job reaches a terminal status")
}

// submitManifest builds the manifest, drops it in the inbox, and optionally
// waits for the terminal status.
func submitManifest(cmd *cobra.Command, ctx *commandContext, payload manifest.Payload, opts submitOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	m, err := manifest.New(payload, opts.description)
	if err != nil {
		return err
	}

	queue, err := inbox.Open(cfg, ctx.cliLogger())
	if err != nil {
		return err
	}
	path, err := queue.Submit(m)
	if err != nil {
		return err
	}
	printSubmitted(cmd, m, path)

	if !opts.wait {
		return nil
	}
	return waitForJob(cmd, ctx, m.JobID, 0, 0, "")
}

func printSubmitted(cmd *cobra.Command, m *manifest.Manifest, path string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Submitted %s\n", m.JobID)
	fmt.Fprintf(out, "  type:     %s\n", displayJobType(m.JobType))
	fmt.Fprintf(out, "  manifest: %s\n", path)
}

func newSubmitBakeNavmeshCommand(ctx *commandContext) *cobra.Command {
	var opts submitOptions
	var payload manifest.BakeNavmeshPayload

	cmd := &cobra.Command{
		Use:   "bake-navmesh",
		Short: "Bake navigation meshes for one or more maps",
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitManifest(cmd, ctx, payload, opts)
		},
	}
	cmd.Flags().StringArrayVar(&payload.MapPaths, "map", nil, "Map asset path (repeatable)")
	cmd.Flags().BoolVar(&payload.AutoScale, "auto-scale", false, "Scale bake bounds to map geometry")
	cmd.Flags().StringVar(&payload.OutputDir, "output-dir", "", "Override artifact output directory")
	_ = cmd.MarkFlagRequired("map")
	addSubmitFlags(cmd, &opts)
	return cmd
}

func newSubmitRecordCommand(ctx *commandContext) *cobra.Command {
	var opts submitOptions
	var payload manifest.RecordPayload

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a take on a map",
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitManifest(cmd, ctx, payload, opts)
		},
	}
	cmd.Flags().StringVar(&payload.MapPath, "map", "", "Map asset path")
	cmd.Flags().StringVar(&payload.SequencePath, "sequence", "", "Target sequence asset path")
	cmd.Flags().Float64Var(&payload.RecordingDuration, "duration", 0, "Recording duration in seconds")
	cmd.Flags().Float64Var(&payload.PreRecordingWait, "pre-wait", 0, "Warm-up wait in seconds")
	cmd.Flags().Float64Var(&payload.PostRecordingWait, "post-wait", 0, "Cool-down wait in seconds")
	_ = cmd.MarkFlagRequired("map")
	addSubmitFlags(cmd, &opts)
	return cmd
}

func newSubmitRenderCommand(ctx *commandContext) *cobra.Command {
	var opts submitOptions
	var payload manifest.RenderPayload

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a level sequence to frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitManifest(cmd, ctx, payload, opts)
		},
	}
	cmd.Flags().StringVar(&payload.MapPath, "map", "", "Map asset path")
	cmd.Flags().StringVar(&payload.SequencePath, "sequence", "", "Sequence asset path")
	cmd.Flags().IntVar(&payload.FrameRange.StartFrame, "start", 0, "First frame")
	cmd.Flags().IntVar(&payload.FrameRange.EndFrame, "end", 0, "Last frame")
	cmd.Flags().IntVar(&payload.FrameRange.Step, "step", 0, "Frame step (default 1)")
	cmd.Flags().StringVar(&payload.Resolution, "resolution", "", "Output resolution, e.g. 1920x1080")
	cmd.Flags().StringVar(&payload.OutputDir, "output-dir", "", "Override artifact output directory")
	_ = cmd.MarkFlagRequired("map")
	_ = cmd.MarkFlagRequired("sequence")
	_ = cmd.MarkFlagRequired("end")
	addSubmitFlags(cmd, &opts)
	return cmd
}

func newSubmitExportCommand(ctx *commandContext) *cobra.Command {
	var opts submitOptions
	var payload manifest.ExportPayload

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export camera and track data from a sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitManifest(cmd, ctx, payload, opts)
		},
	}
	cmd.Flags().StringVar(&payload.SequencePath, "sequence", "", "Sequence asset path")
	cmd.Flags().IntVar(&payload.FrameRange.StartFrame, "start", 0, "First frame")
	cmd.Flags().IntVar(&payload.FrameRange.EndFrame, "end", 0, "Last frame")
	cmd.Flags().IntVar(&payload.FrameRange.Step, "step", 0, "Frame step (default 1)")
	cmd.Flags().StringVar(&payload.Format, "format", "", "Export format")
	cmd.Flags().StringVar(&payload.OutputDir, "output-dir", "", "Override artifact output directory")
	_ = cmd.MarkFlagRequired("sequence")
	_ = cmd.MarkFlagRequired("end")
	addSubmitFlags(cmd, &opts)
	return cmd
}

func newSubmitGenSequenceCommand(ctx *commandContext) *cobra.Command {
	var opts submitOptions
	var payload manifest.GenLevelSequencePayload

	cmd := &cobra.Command{
		Use:   "gen-sequence",
		Short: "Generate a procedural level sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitManifest(cmd, ctx, payload, opts)
		},
	}
	cmd.Flags().StringVar(&payload.MapPath, "map", "", "Map asset path")
	cmd.Flags().StringVar(&payload.SequenceName, "name", "", "Name for the generated sequence")
	cmd.Flags().Int64Var(&payload.Seed, "seed", 0, "Generation seed")
	cmd.Flags().Float64Var(&payload.DurationSeconds, "duration", 0, "Sequence duration in seconds")
	cmd.Flags().StringVar(&payload.OutputDir, "output-dir", "", "Override artifact output directory")
	_ = cmd.MarkFlagRequired("map")
	_ = cmd.MarkFlagRequired("name")
	addSubmitFlags(cmd, &opts)
	return cmd
}

func newSubmitScanSequencesCommand(ctx *commandContext) *cobra.Command {
	var opts submitOptions
	var payload manifest.ScanSequencesPayload

	cmd := &cobra.Command{
		Use:   "scan-sequences",
		Short: "Index sequence assets under a content root into the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitManifest(cmd, ctx, payload, opts)
		},
	}
	cmd.Flags().StringVar(&payload.ContentRoot, "content-root", "", "Content root asset path to scan")
	cmd.Flags().StringVar(&payload.SceneName, "scene", "", "Attribute found sequences to this scene")
	_ = cmd.MarkFlagRequired("content-root")
	addSubmitFlags(cmd, &opts)
	return cmd
}
