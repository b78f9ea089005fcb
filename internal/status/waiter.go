package status

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"sceneforge/internal/logging"
)

var (
	// ErrWaitTimeout reports that the waiter's deadline expired before the job
	// reached a terminal state. Distinct from a job-reported failure: the job
	// may still be running, and its status file is left untouched.
	ErrWaitTimeout = errors.New("wait timed out")
	// ErrJobFailed reports a terminal failure written by the job itself.
	ErrJobFailed = errors.New("job failed")
)

// Waiter polls a job's status file until a terminal state appears, the
// deadline expires, or the context is cancelled. True IPC is unavailable
// between the host-engine process and an external controller, so polling a
// transactionally written JSON file is the coordination primitive.
type Waiter struct {
	// Interval between polls. Defaults to one second.
	Interval time.Duration
	// Timeout is the overall deadline. Defaults to 30 minutes.
	Timeout time.Duration
	// Logger receives progress and protocol-violation records.
	Logger *slog.Logger
	// FrameCount optionally samples a side artifact count (rendered frames on
	// disk). Growth is logged as a liveness signal when the status file is
	// stale; it never declares success by itself.
	FrameCount func() int
}

// Wait polls path until the job reports completion or failure.
//
// Success requires status completed and success true; any other terminal
// record returns ErrJobFailed carrying the job's reason. A missing file or a
// transient parse failure is retried until the deadline.
func (w *Waiter) Wait(ctx context.Context, path string) (*Record, error) {
	interval := w.Interval
	if interval <= 0 {
		interval = time.Second
	}
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	logger := w.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastState := StatePending
	lastFrames := 0
	sawRecord := false

	for {
		record, err := Read(path)
		switch {
		case err == nil:
			if sawRecord && record.State.Before(lastState) {
				logger.Warn("status moved backward; ignoring record as protocol violation",
					logging.String("observed", string(record.State)),
					logging.String("previous", string(lastState)))
			} else {
				sawRecord = true
				lastState = record.State

				if record.State.Terminal() {
					if record.State == StateCompleted && record.Success {
						return record, nil
					}
					reason := record.Reason
					if reason == "" {
						reason = record.Message
					}
					if reason == "" {
						reason = "job reported failure without a reason"
					}
					return record, fmt.Errorf("%w: %s", ErrJobFailed, reason)
				}
			}
		case errors.Is(err, fs.ErrNotExist):
			// Job has not started writing yet; keep polling.
		default:
			// Mid-write or torn read; the next poll sees a complete document.
			logger.Debug("transient status read failure", logging.Error(err))
		}

		if w.FrameCount != nil {
			if frames := w.FrameCount(); frames > lastFrames {
				logger.Info("output artifacts still growing",
					logging.Int("frames", frames),
					logging.Int("delta", frames-lastFrames))
				lastFrames = frames
			}
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w after %s", ErrWaitTimeout, timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
