package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sceneforge/internal/config"
	"sceneforge/internal/logging"
	"sceneforge/internal/manifest"
)

// Result reports what an engine run produced. OutputDir is where the run
// wrote its artifacts and its status file.
type Result struct {
	OutputDir string
	Detail    string
}

// Executor runs one job to completion. Implementations own the job's status
// file for the duration of the run; the worker writes the terminal state
// after Execute returns.
type Executor interface {
	Execute(ctx context.Context, m *manifest.Manifest, outputDir string) (*Result, error)
}

// Runner abstracts process execution for testability.
type Runner interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the command executor.
type Option func(*CommandExecutor)

// WithRunner injects a custom process runner (primarily for tests).
func WithRunner(r Runner) Option {
	return func(c *CommandExecutor) {
		if r != nil {
			c.runner = r
		}
	}
}

// CommandExecutor launches the content engine headless and hands it the job
// manifest. The engine process owns progress reporting through the status
// file while it runs.
type CommandExecutor struct {
	binary      string
	projectPath string
	extraArgs   []string
	timeout     time.Duration
	logger      *slog.Logger
	runner      Runner
}

// NewCommandExecutor builds an executor from the engine configuration.
func NewCommandExecutor(cfg *config.Config, logger *slog.Logger, opts ...Option) (*CommandExecutor, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	binary := strings.TrimSpace(cfg.Engine.Binary)
	if binary == "" {
		return nil, errors.New("engine binary required")
	}
	project := strings.TrimSpace(cfg.Engine.ProjectPath)
	if project == "" {
		return nil, errors.New("engine project path required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	executor := &CommandExecutor{
		binary:      binary,
		projectPath: project,
		extraArgs:   append([]string(nil), cfg.Engine.ExtraArgs...),
		timeout:     cfg.EngineTimeout(),
		logger:      logging.WithComponent(logger, "engine"),
		runner:      commandRunner{},
	}
	for _, opt := range opts {
		opt(executor)
	}
	return executor, nil
}

// Execute writes the manifest into the job's output directory and runs the
// engine against it. The engine exit code decides success; Execute returns an
// error for any non-zero exit, timeout included.
func (c *CommandExecutor) Execute(ctx context.Context, m *manifest.Manifest, outputDir string) (*Result, error) {
	if m == nil {
		return nil, errors.New("manifest required")
	}
	if strings.TrimSpace(outputDir) == "" {
		return nil, errors.New("output directory required")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	manifestPath := filepath.Join(outputDir, m.Filename())
	if err := manifest.WriteFile(m, manifestPath); err != nil {
		return nil, fmt.Errorf("stage manifest for engine: %w", err)
	}

	args, err := c.buildArgs(m, manifestPath, outputDir)
	if err != nil {
		return nil, err
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Info("launching engine job",
		logging.String(logging.FieldJobID, m.JobID),
		logging.String(logging.FieldJobType, string(m.JobType)),
		logging.String("binary", c.binary))

	start := time.Now()
	tail := newLineTail(20)
	err = c.runner.Run(runCtx, c.binary, args, func(line string) {
		tail.add(line)
		c.logger.Debug("engine output", logging.String(logging.FieldJobID, m.JobID), logging.String("line", line))
	})
	if err != nil {
		if runCtx.Err() != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("engine run exceeded %s: %w", c.timeout, runCtx.Err())
		}
		if last := tail.String(); last != "" {
			return nil, fmt.Errorf("engine run failed: %w\nlast output:\n%s", err, last)
		}
		return nil, fmt.Errorf("engine run failed: %w", err)
	}

	elapsed := time.Since(start).Round(time.Second)
	c.logger.Info("engine job finished",
		logging.String(logging.FieldJobID, m.JobID),
		logging.Duration("elapsed", elapsed))

	return &Result{
		OutputDir: outputDir,
		Detail:    fmt.Sprintf("%s finished in %s", m.JobType, elapsed),
	}, nil
}

// buildArgs assembles the headless engine invocation for one job. The
// per-type arguments select the map to load; everything else the engine reads
// from the staged manifest.
func (c *CommandExecutor) buildArgs(m *manifest.Manifest, manifestPath, outputDir string) ([]string, error) {
	args := []string{c.projectPath}

	switch p := m.Payload.(type) {
	case *manifest.BakeNavmeshPayload:
		// Map list lives in the manifest; the bake commandlet iterates it.
	case *manifest.RecordPayload:
		args = append(args, p.MapPath)
	case *manifest.RenderPayload:
		args = append(args, p.MapPath)
		if res := parseResolution(p.Resolution); res != nil {
			args = append(args, fmt.Sprintf("-ResX=%d", res[0]), fmt.Sprintf("-ResY=%d", res[1]))
		}
	case *manifest.ExportPayload:
		// Export resolves its sequence from the manifest.
	case *manifest.GenLevelSequencePayload:
		args = append(args, p.MapPath)
	default:
		return nil, fmt.Errorf("job type %q has no engine invocation", m.JobType)
	}

	args = append(args,
		"-run=SceneForgeJob",
		"-JobManifest="+manifestPath,
		"-JobOutputDir="+outputDir,
		"-unattended",
		"-nosplash",
		"-nop4",
		"-stdout",
		"-FullStdOutLogOutput",
	)
	args = append(args, c.extraArgs...)
	return args, nil
}

// parseResolution accepts "1920x1080" style strings; anything else is
// ignored and the engine default applies.
func parseResolution(value string) []int {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(value)), "x", 2)
	if len(parts) != 2 {
		return nil
	}
	var x, y int
	if _, err := fmt.Sscanf(parts[0], "%d", &x); err != nil || x <= 0 {
		return nil
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &y); err != nil || y <= 0 {
		return nil
	}
	return []int{x, y}
}

type lineTail struct {
	mu    sync.Mutex
	limit int
	lines []string
}

func newLineTail(limit int) *lineTail {
	return &lineTail{limit: limit}
}

func (t *lineTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.limit {
		t.lines = t.lines[len(t.lines)-t.limit:]
	}
}

func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(strings.Join(t.lines, "\n"))
}

type commandRunner struct{}

func (commandRunner) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onOutput != nil {
				onOutput(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
