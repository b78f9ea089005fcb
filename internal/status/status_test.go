package status

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriterLifecycle(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "job-abc-1")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	record, err := Read(w.Path())
	if err != nil {
		t.Fatalf("Read pending: %v", err)
	}
	if record.State != StatePending || record.JobID != "job-abc-1" {
		t.Fatalf("pending record = %+v", record)
	}

	if err := w.Running("warming up"); err != nil {
		t.Fatalf("Running: %v", err)
	}
	if err := w.SetProgress(30, 120); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	record, err = Read(w.Path())
	if err != nil {
		t.Fatalf("Read running: %v", err)
	}
	if record.State != StateRunning {
		t.Fatalf("state = %q, want running", record.State)
	}
	if record.Progress == nil || record.Progress.CurrentFrame != 30 || record.Progress.Percent != 25 {
		t.Fatalf("progress = %+v", record.Progress)
	}

	if err := w.Complete(true, "done"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	record, err = Read(w.Path())
	if err != nil {
		t.Fatalf("Read terminal: %v", err)
	}
	if record.State != StateCompleted || !record.Success || record.EndTime == nil {
		t.Fatalf("terminal record = %+v", record)
	}
}

func TestWriterRejectsBackwardAndPostTerminalTransitions(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "job-abc-2")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Fail("engine crashed"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if err := w.Running("resurrected"); err == nil {
		t.Fatal("expected terminal state to reject running transition")
	}
	if err := w.SetProgress(1, 2); err == nil {
		t.Fatal("expected terminal state to reject progress")
	}
	if err := w.Complete(true, ""); err == nil {
		t.Fatal("expected terminal state to reject completion")
	}

	record, err := Read(w.Path())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if record.State != StateFailed || record.Reason != "engine crashed" {
		t.Fatalf("record = %+v", record)
	}
}

func TestWriterLeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "job-abc-3")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Running(""); err != nil {
		t.Fatalf("Running: %v", err)
	}
	if err := w.Complete(true, ""); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != FileName {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("directory contents = %v, want only %s", names, FileName)
	}
}

func TestParseStateAcceptsLegacySpelling(t *testing.T) {
	state, ok := ParseState("rendering")
	if !ok || state != StateRunning {
		t.Fatalf("ParseState(rendering) = %q, %v", state, ok)
	}
	if _, ok := ParseState("paused"); ok {
		t.Fatal("unknown state should not parse")
	}
}

func TestRecordUnmarshalNormalizesState(t *testing.T) {
	doc := `{"job_id":"job-x-1","status":"RENDERING","success":false}`
	var record Record
	if err := json.Unmarshal([]byte(doc), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record.State != StateRunning {
		t.Fatalf("state = %q, want running", record.State)
	}
}

func TestWaiterReturnsCompletedRecord(t *testing.T) {
	dir := t.TempDir()
	path := PathFor(dir)

	go func() {
		w, err := NewWriter(dir, "job-wait-1")
		if err != nil {
			return
		}
		_ = w.Running("")
		time.Sleep(50 * time.Millisecond)
		_ = w.Complete(true, "all frames rendered")
	}()

	waiter := &Waiter{Interval: 10 * time.Millisecond, Timeout: 5 * time.Second}
	record, err := waiter.Wait(context.Background(), path)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if record.State != StateCompleted || record.Message != "all frames rendered" {
		t.Fatalf("record = %+v", record)
	}
}

func TestWaiterDistinguishesJobFailure(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "job-wait-2")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Fail("out of GPU memory"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	waiter := &Waiter{Interval: 10 * time.Millisecond, Timeout: time.Second}
	record, err := waiter.Wait(context.Background(), w.Path())
	if !errors.Is(err, ErrJobFailed) {
		t.Fatalf("err = %v, want ErrJobFailed", err)
	}
	if errors.Is(err, ErrWaitTimeout) {
		t.Fatal("failure must not be reported as a timeout")
	}
	if record == nil || record.Reason != "out of GPU memory" {
		t.Fatalf("record = %+v", record)
	}
}

func TestWaiterTimesOutWithoutTerminalStatus(t *testing.T) {
	dir := t.TempDir()

	waiter := &Waiter{Interval: 10 * time.Millisecond, Timeout: 60 * time.Millisecond}
	record, err := waiter.Wait(context.Background(), PathFor(dir))
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("err = %v, want ErrWaitTimeout", err)
	}
	if record != nil {
		t.Fatalf("record = %+v, want nil on timeout", record)
	}
}

func TestWaiterHonorsContextCancellation(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	waiter := &Waiter{Interval: 10 * time.Millisecond, Timeout: time.Minute}
	_, err := waiter.Wait(ctx, PathFor(dir))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestWaiterCompletedWithoutSuccessIsFailure(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "job-wait-3")
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Complete(false, "no frames produced"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	waiter := &Waiter{Interval: 10 * time.Millisecond, Timeout: time.Second}
	_, err = waiter.Wait(context.Background(), w.Path())
	if !errors.Is(err, ErrJobFailed) {
		t.Fatalf("err = %v, want ErrJobFailed", err)
	}
}

func TestWaiterSurvivesMalformedIntermediateWrites(t *testing.T) {
	dir := t.TempDir()
	path := PathFor(dir)
	if err := os.WriteFile(path, []byte("{torn"), 0o644); err != nil {
		t.Fatalf("write torn file: %v", err)
	}

	go func() {
		time.Sleep(40 * time.Millisecond)
		w, err := NewWriter(filepath.Dir(path), "job-wait-4")
		if err != nil {
			return
		}
		_ = w.Complete(true, "")
	}()

	waiter := &Waiter{Interval: 10 * time.Millisecond, Timeout: 5 * time.Second}
	if _, err := waiter.Wait(context.Background(), path); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}
