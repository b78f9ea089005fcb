package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sceneforge/internal/config"
	"sceneforge/internal/fileutil"
	"sceneforge/internal/registry"
	"sceneforge/internal/remote"
)

func newRegistryCommand(ctx *commandContext) *cobra.Command {
	registryCmd := &cobra.Command{
		Use:   "registry",
		Short: "Scene registry queries and maintenance",
	}

	registryCmd.AddCommand(newRegistrySyncCommand(ctx))
	registryCmd.AddCommand(newRegistryStatsCommand(ctx))
	registryCmd.AddCommand(newRegistryScenesCommand(ctx))
	registryCmd.AddCommand(newRegistryMapsCommand(ctx))
	registryCmd.AddCommand(newRegistrySequencesCommand(ctx))
	registryCmd.AddCommand(newRegistryMarkDownloadedCommand(ctx))

	return registryCmd
}

func newRegistryMarkDownloadedCommand(ctx *commandContext) *cobra.Command {
	var localPath string

	cmd := &cobra.Command{
		Use:   "mark-downloaded <scene>",
		Short: "Record a finished local scene download",
		Long:  "Fingerprints the downloaded directory and records its path, hash, and size against the scene.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			resolved, err := config.ExpandPath(localPath)
			if err != nil {
				return err
			}

			hash, err := fileutil.DirectoryHash(resolved, nil)
			if err != nil {
				return fmt.Errorf("fingerprint %s: %w", resolved, err)
			}
			files, bytes, err := fileutil.DirStats(resolved)
			if err != nil {
				return fmt.Errorf("measure %s: %w", resolved, err)
			}

			store, err := openRegistry(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.MarkSceneDownloaded(cmd.Context(), name, resolved, hash); err != nil {
				return err
			}
			if err := store.UpdateSceneStats(cmd.Context(), name, files, bytes); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Scene %s: %d files, %s, hash %s\n",
				name, files, displayBytes(bytes), hash[:12])
			return nil
		},
	}
	cmd.Flags().StringVar(&localPath, "local-path", "", "Directory holding the downloaded scene")
	_ = cmd.MarkFlagRequired("local-path")
	return cmd
}

func openRegistry(ctx *commandContext) (*registry.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return registry.Open(cfg)
}

func newRegistrySyncCommand(ctx *commandContext) *cobra.Command {
	var mirrorDir string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the registry against the remote scene listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := mirrorDir
			if dir == "" {
				dir = cfg.Remote.MirrorDir
			}
			lister := remote.DirLister{Dir: dir}
			names, err := lister.List(cmd.Context())
			if err != nil {
				return err
			}

			store, err := openRegistry(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := store.Sync(cmd.Context(), names)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added %d scene(s), refreshed %d scene(s)\n",
				len(result.Added), len(result.Updated))
			if len(result.Added) > 0 {
				fmt.Fprintf(out, "  new: %s\n", strings.Join(result.Added, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mirrorDir, "mirror-dir", "", "Override the configured remote mirror directory")
	return cmd
}

func newRegistryStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate registry statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRegistry(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Statistics(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Scenes", strconv.Itoa(stats.Scenes.Total)},
				{"Scenes downloaded", strconv.Itoa(stats.Scenes.Downloaded)},
				{"Scene files", strconv.FormatInt(stats.Scenes.TotalFiles, 10)},
				{"Scene data", displayBytes(stats.Scenes.TotalBytes)},
				{"Maps", strconv.Itoa(stats.Maps.Total)},
				{"Maps with navmesh", strconv.Itoa(stats.Maps.NavmeshBaked)},
				{"Sequences", strconv.Itoa(stats.Sequences.Total)},
				{"Sequences uploaded", strconv.Itoa(stats.Sequences.Uploaded)},
				{"Sequence hours", fmt.Sprintf("%.1f", stats.Sequences.DurationHours)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Metric", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newRegistryScenesCommand(ctx *commandContext) *cobra.Command {
	var downloadedOnly bool
	var missingOnly bool

	cmd := &cobra.Command{
		Use:   "scenes",
		Short: "List registered scenes",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRegistry(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			var scenes []*registry.Scene
			if missingOnly {
				scenes, err = store.ListMissingScenes(cmd.Context())
			} else {
				scenes, err = store.ListScenes(cmd.Context(), downloadedOnly)
			}
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(scenes))
			for _, scene := range scenes {
				rows = append(rows, []string{
					scene.Name,
					displayBool(scene.RemoteExists),
					displayBool(scene.Downloaded()),
					strconv.Itoa(scene.FileCount),
					displayBytes(scene.TotalSizeBytes),
					displayTime(&scene.LastUpdated),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Scene", "Remote", "Local", "Files", "Size", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&downloadedOnly, "downloaded", false, "Only scenes with a local copy")
	cmd.Flags().BoolVar(&missingOnly, "missing", false, "Only remote scenes without a local copy")
	return cmd
}

func newRegistryMapsCommand(ctx *commandContext) *cobra.Command {
	var sceneName string

	cmd := &cobra.Command{
		Use:   "maps",
		Short: "List registered maps",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRegistry(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			maps, err := store.ListMaps(cmd.Context(), sceneName, nil)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(maps))
			for _, m := range maps {
				rows = append(rows, []string{
					m.SceneName,
					m.MapName,
					displayBool(m.NavmeshBaked),
					displayTime(m.NavmeshBakedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Scene", "Map", "Navmesh", "Baked"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&sceneName, "scene", "", "Filter by scene name")
	return cmd
}

func newRegistrySequencesCommand(ctx *commandContext) *cobra.Command {
	var sceneName string
	var mapName string
	var uploadedOnly bool

	cmd := &cobra.Command{
		Use:   "sequences",
		Short: "List registered sequences",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRegistry(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			sequences, err := store.ListSequences(cmd.Context(), sceneName, mapName, uploadedOnly)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(sequences))
			for _, seq := range sequences {
				duration := "-"
				if seq.DurationSeconds != nil {
					duration = fmt.Sprintf("%.1fs", *seq.DurationSeconds)
				}
				rows = append(rows, []string{
					seq.SceneName,
					seq.MapName,
					seq.SequenceName,
					duration,
					displayBool(seq.UploadedAt != nil),
					displayTime(&seq.CreatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Scene", "Map", "Sequence", "Duration", "Uploaded", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&sceneName, "scene", "", "Filter by scene name")
	cmd.Flags().StringVar(&mapName, "map", "", "Filter by map name")
	cmd.Flags().BoolVar(&uploadedOnly, "uploaded", false, "Only sequences uploaded to the remote store")
	return cmd
}
