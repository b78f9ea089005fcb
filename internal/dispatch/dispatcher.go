package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"sceneforge/internal/config"
	"sceneforge/internal/engine"
	"sceneforge/internal/logging"
	"sceneforge/internal/manifest"
	"sceneforge/internal/status"
)

// Outcome summarizes one dispatched job after its terminal status is on disk.
type Outcome struct {
	State     status.State
	Detail    string
	OutputDir string
}

// Dispatcher routes claimed manifests to the executor registered for their
// job type and owns the job's status file around the run. A terminal status
// write is mandatory; history recording is best-effort.
type Dispatcher struct {
	outputRoot string
	executors  map[manifest.JobType]engine.Executor
	history    *History
	logger     *slog.Logger
}

// New builds a dispatcher writing job output under cfg.Paths.OutputDir.
func New(cfg *config.Config, logger *slog.Logger, history *History) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		outputRoot: cfg.Paths.OutputDir,
		executors:  make(map[manifest.JobType]engine.Executor),
		history:    history,
		logger:     logging.WithComponent(logger, "dispatch"),
	}
}

// Register installs the executor for one job type. Later registrations for
// the same type replace earlier ones.
func (d *Dispatcher) Register(jobType manifest.JobType, executor engine.Executor) {
	if executor == nil {
		return
	}
	d.executors[jobType] = executor
}

// Handles reports whether an executor is registered for the job type.
func (d *Dispatcher) Handles(jobType manifest.JobType) bool {
	_, ok := d.executors[jobType]
	return ok
}

// OutputDir returns where a job's artifacts and status file live.
func (d *Dispatcher) OutputDir(jobID string) string {
	return filepath.Join(d.outputRoot, jobID)
}

// Dispatch runs one manifest end to end: pending status, execution, terminal
// status, history entry. The returned error is tagged with a sentinel from
// this package; a non-nil error always means the job failed.
func (d *Dispatcher) Dispatch(ctx context.Context, m *manifest.Manifest) (Outcome, error) {
	if err := m.Validate(); err != nil {
		return Outcome{}, Wrap(ErrValidation, jobID(m), "validate", "", err)
	}

	outputDir := d.OutputDir(m.JobID)

	executor, ok := d.executors[m.JobType]
	if !ok {
		err := Wrap(ErrTypeMismatch, m.JobID, "route",
			fmt.Sprintf("no executor for job type %q", m.JobType), nil)
		d.writeRejection(m, outputDir, err)
		d.record(m, outputDir, status.StateFailed, FailureReason(err))
		return Outcome{State: status.StateFailed, OutputDir: outputDir}, err
	}

	writer, err := status.NewWriter(outputDir, m.JobID)
	if err != nil {
		return Outcome{}, Wrap(ErrProtocol, m.JobID, "init status", "", err)
	}
	if err := writer.Running("job claimed"); err != nil {
		return Outcome{}, Wrap(ErrProtocol, m.JobID, "mark running", "", err)
	}

	d.logger.Info("dispatching job",
		logging.String(logging.FieldJobID, m.JobID),
		logging.String(logging.FieldJobType, string(m.JobType)))

	result, execErr := executor.Execute(ctx, m, outputDir)
	if execErr != nil {
		if errors.Is(execErr, context.DeadlineExceeded) {
			execErr = Wrap(ErrTimeout, m.JobID, "execute", "", execErr)
		} else if !isDispatchError(execErr) {
			execErr = Wrap(ErrExecutor, m.JobID, "execute", "", execErr)
		}
		reason := FailureReason(execErr)
		if err := writer.Fail(reason); err != nil {
			return Outcome{}, errors.Join(execErr, Wrap(ErrProtocol, m.JobID, "write terminal status", "", err))
		}
		d.record(m, outputDir, status.StateFailed, reason)
		d.logger.Error("job failed",
			logging.String(logging.FieldJobID, m.JobID),
			logging.Error(execErr))
		return Outcome{State: status.StateFailed, Detail: reason, OutputDir: outputDir}, execErr
	}

	detail := ""
	if result != nil {
		detail = result.Detail
	}
	if err := writer.Complete(true, detail); err != nil {
		return Outcome{}, Wrap(ErrProtocol, m.JobID, "write terminal status", "", err)
	}
	d.record(m, outputDir, status.StateCompleted, detail)
	d.logger.Info("job completed",
		logging.String(logging.FieldJobID, m.JobID),
		logging.String(logging.FieldJobType, string(m.JobType)))
	return Outcome{State: status.StateCompleted, Detail: detail, OutputDir: outputDir}, nil
}

// writeRejection leaves a terminal failed status behind for jobs that never
// reached an executor. Failures here are logged; the rejection error already
// carries the cause.
func (d *Dispatcher) writeRejection(m *manifest.Manifest, outputDir string, cause error) {
	writer, err := status.NewWriter(outputDir, m.JobID)
	if err == nil {
		err = writer.Fail(FailureReason(cause))
	}
	if err != nil {
		d.logger.Error("write rejection status failed",
			logging.String(logging.FieldJobID, m.JobID),
			logging.Error(err))
	}
}

func (d *Dispatcher) record(m *manifest.Manifest, outputDir string, state status.State, detail string) {
	d.history.Record(HistoryEntry{
		JobID:     m.JobID,
		JobType:   string(m.JobType),
		Status:    string(state),
		Detail:    detail,
		OutputDir: outputDir,
	})
}

func isDispatchError(err error) bool {
	for _, marker := range []error{ErrValidation, ErrTypeMismatch, ErrExecutor, ErrTimeout, ErrProtocol} {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}

func jobID(m *manifest.Manifest) string {
	if m == nil {
		return ""
	}
	return m.JobID
}
