package dispatch

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sceneforge/internal/logging"
)

// HistoryEntry is one line of the append-only job history log.
type HistoryEntry struct {
	JobID      string    `json:"job_id"`
	JobType    string    `json:"job_type"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	OutputDir  string    `json:"output_dir,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// History appends completed-job records to a JSONL file. Recording is
// best-effort: a history failure is logged and never fails the job it
// describes.
type History struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewHistory returns a history log writing to path, or nil when path is
// empty (history disabled). A nil *History is safe to record against.
func NewHistory(path string, logger *slog.Logger) *History {
	if path == "" {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &History{path: path, logger: logging.WithComponent(logger, "history")}
}

// Record appends one entry. Errors are swallowed after logging.
func (h *History) Record(entry HistoryEntry) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		h.logger.Warn("encode history entry failed", logging.Error(err))
		return
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		h.logger.Warn("create history directory failed", logging.Error(err))
		return
	}
	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		h.logger.Warn("open history log failed", logging.Error(err))
		return
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		h.logger.Warn("append history entry failed",
			logging.String(logging.FieldJobID, entry.JobID),
			logging.Error(err))
	}
}
