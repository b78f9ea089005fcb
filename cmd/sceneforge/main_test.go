package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sceneforge/internal/manifest"
	"sceneforge/internal/status"
)

func writeCLIConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	content := fmt.Sprintf(
		"[paths]\nqueue_dir = %q\noutput_dir = %q\nlog_dir = %q\ndatabase_dir = %q\n",
		filepath.Join(base, "queue"),
		filepath.Join(base, "output"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "db"),
	)
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLISubmitAndQueueStatus(t *testing.T) {
	configPath := writeCLIConfig(t)

	out, _, err := runCLI(t, configPath, "submit", "render",
		"--map", "/Game/Scenes/Harbor/Maps/Harbor_Main",
		"--sequence", "/Game/Scenes/Harbor/Sequences/LS_Flyover",
		"--end", "120")
	if err != nil {
		t.Fatalf("submit render: %v", err)
	}
	if !strings.Contains(out, "Submitted job-") {
		t.Fatalf("unexpected submit output: %q", out)
	}
	if !strings.Contains(out, "Render") {
		t.Fatalf("submit output missing job type: %q", out)
	}
	if !strings.Contains(out, filepath.Join("queue", "inbox")) {
		t.Fatalf("submit output missing inbox manifest path: %q", out)
	}

	out, _, err = runCLI(t, configPath, "queue", "status")
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	if !strings.Contains(out, "Pending") || !strings.Contains(out, "Queue root:") {
		t.Fatalf("unexpected queue status output: %q", out)
	}
}

func TestCLISubmitRejectsBadAssetPath(t *testing.T) {
	configPath := writeCLIConfig(t)

	_, _, err := runCLI(t, configPath, "submit", "render",
		"--map", "Harbor_Main",
		"--sequence", "/Game/Scenes/Harbor/Sequences/LS_Flyover",
		"--end", "10")
	if err == nil {
		t.Fatal("expected validation error for relative asset path")
	}
}

func TestCLIWorkerOnceSpecializedRejectsMismatch(t *testing.T) {
	configPath := writeCLIConfig(t)
	base := filepath.Dir(configPath)

	m, err := manifest.New(manifest.RenderPayload{
		MapPath:      "/Game/Scenes/Harbor/Maps/Harbor_Main",
		SequencePath: "/Game/Scenes/Harbor/Sequences/LS_Flyover",
		FrameRange:   manifest.FrameRange{EndFrame: 10},
	}, "")
	if err != nil {
		t.Fatalf("manifest.New: %v", err)
	}
	manifestPath := filepath.Join(base, m.Filename())
	if err := manifest.WriteFile(m, manifestPath); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	// A worker specialized for sequence scanning must refuse a render
	// manifest with a non-zero exit and a terminal failed status.
	_, _, err = runCLI(t, configPath, "worker", "once",
		"--job-type", "scan_sequences", "--manifest", manifestPath)
	if err == nil {
		t.Fatal("expected the specialized worker to reject the manifest")
	}
	if !strings.Contains(err.Error(), "no executor") {
		t.Fatalf("err = %v, want executor rejection", err)
	}

	record, err := status.Read(status.PathFor(filepath.Join(base, "output", m.JobID)))
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	if record.State != status.StateFailed {
		t.Fatalf("state = %q, want failed", record.State)
	}
}

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"job failed", fmt.Errorf("%w: out of memory", status.ErrJobFailed), 2},
		{"wait timeout", fmt.Errorf("%w after 30m", status.ErrWaitTimeout), 3},
		{"generic", errors.New("boom"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Fatalf("exitCode = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDisplayHelpers(t *testing.T) {
	if got := displayJobType(manifest.JobBakeNavmesh); got != "Bake Navmesh" {
		t.Fatalf("displayJobType = %q", got)
	}
	if got := displayBytes(-1); got != "0 B" {
		t.Fatalf("displayBytes(-1) = %q", got)
	}
	if got := displayTime(nil); got != "-" {
		t.Fatalf("displayTime(nil) = %q", got)
	}
	now := time.Now()
	if got := displayTime(&now); got == "-" {
		t.Fatal("displayTime for a real timestamp returned placeholder")
	}
	if displayBool(true) != "yes" || displayBool(false) != "no" {
		t.Fatal("displayBool mapping")
	}
}
