package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileName is the status document written under each job's output directory.
const FileName = "job_status.json"

// PathFor returns the status file location for a job output directory.
func PathFor(outputDir string) string {
	return filepath.Join(outputDir, FileName)
}

// Writer owns exclusive write access to one job's status file for the job's
// lifetime. Every write goes to a temp file first and is renamed into place so
// a concurrent reader never observes a half-written document.
type Writer struct {
	path   string
	record Record
}

// NewWriter creates the status file in its pending state.
func NewWriter(outputDir, jobID string) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	now := time.Now().UTC()
	w := &Writer{
		path: PathFor(outputDir),
		record: Record{
			JobID:     jobID,
			State:     StatePending,
			StartTime: now,
			UpdatedAt: now,
		},
	}
	if err := w.flush(); err != nil {
		return nil, err
	}
	return w, nil
}

// Path returns the status file location.
func (w *Writer) Path() string { return w.path }

// Running transitions the record to running with an optional message.
func (w *Writer) Running(message string) error {
	if err := w.transition(StateRunning); err != nil {
		return err
	}
	w.record.Message = message
	return w.flush()
}

// SetProgress updates intermediate counters while the job runs.
func (w *Writer) SetProgress(current, total int) error {
	if w.record.State.Terminal() {
		return errors.New("status is terminal; progress updates are not allowed")
	}
	progress := Progress{CurrentFrame: current, TotalFrames: total}
	if total > 0 {
		progress.Percent = 100 * float64(current) / float64(total)
	}
	w.record.Progress = &progress
	w.record.Message = fmt.Sprintf("processing frame %d/%d", current, total)
	return w.flush()
}

// Complete writes the terminal completed state. Success false records a job
// that finished but did not produce a usable result.
func (w *Writer) Complete(success bool, message string) error {
	if err := w.transition(StateCompleted); err != nil {
		return err
	}
	w.record.Success = success
	w.record.Message = message
	if !success && w.record.Reason == "" {
		w.record.Reason = message
	}
	now := time.Now().UTC()
	w.record.EndTime = &now
	return w.flush()
}

// Fail writes the terminal failed state with a human-readable reason.
func (w *Writer) Fail(reason string) error {
	if err := w.transition(StateFailed); err != nil {
		return err
	}
	w.record.Success = false
	w.record.Reason = reason
	now := time.Now().UTC()
	w.record.EndTime = &now
	return w.flush()
}

// Record returns a copy of the current record.
func (w *Writer) Record() Record {
	return w.record
}

func (w *Writer) transition(next State) error {
	if w.record.State.Terminal() {
		return fmt.Errorf("status is already terminal (%s)", w.record.State)
	}
	if next.Before(w.record.State) {
		return fmt.Errorf("status cannot move backward from %s to %s", w.record.State, next)
	}
	w.record.State = next
	return nil
}

func (w *Writer) flush() error {
	w.record.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(&w.record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".job_status-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp status: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp status: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp status: %w", err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("publish status: %w", err)
	}
	return nil
}
