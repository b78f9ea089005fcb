package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for worker failure classification. Callers test with
// errors.Is; the marker decides how a failure is reported, never whether the
// job retries (the queue has no automatic retry).
var (
	ErrValidation   = errors.New("validation error")
	ErrTypeMismatch = errors.New("job type mismatch")
	ErrExecutor     = errors.New("executor failure")
	ErrTimeout      = errors.New("timeout")
	ErrProtocol     = errors.New("status protocol error")
)

// Wrap builds an error message that carries job context while tagging it with
// the provided marker. The marker should be one of the exported sentinel
// errors above.
func Wrap(marker error, jobID, operation, message string, err error) error {
	detail := buildDetail(jobID, operation, message)
	if marker == nil {
		marker = ErrExecutor
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureReason condenses a dispatch error into the reason string recorded in
// the job's terminal status.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrTypeMismatch):
		return "job type is not handled by this worker"
	case errors.Is(err, ErrValidation):
		return "manifest failed validation"
	case errors.Is(err, ErrTimeout):
		return "job exceeded its time limit"
	}
	return err.Error()
}

func buildDetail(jobID, operation, message string) string {
	parts := make([]string, 0, 3)
	if jobID = strings.TrimSpace(jobID); jobID != "" {
		parts = append(parts, jobID)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "dispatch failure"
	}
	return strings.Join(parts, ": ")
}
